package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-workout/internal/format"
	"github.com/alnah/go-workout/internal/tools"
)

// PreviewCmd creates the preview command.
func PreviewCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <audio-file>",
		Short: "Play a generated workout",
		Long: `Play a generated workout on the default audio device.

Any format ffmpeg can decode is accepted. Press Ctrl+C to stop.`,
		Example: `  workout preview legs.mp3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), env, args[0])
		},
	}
}

// runPreview decodes path and plays it, printing elapsed/total time.
func runPreview(parentCtx context.Context, env *Env, path string) error {
	ctx, stop := signal.NotifyContext(parentCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot access audio file: %w", err)
	}

	ffmpegPath, err := env.ToolResolver.Resolve(ctx, tools.FFmpeg)
	if err != nil {
		return err
	}

	buf, err := env.PipelineFactory.NewCodec(ffmpegPath).DecodeFile(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Playing %s (%s)... Ctrl+C to stop\n", path, format.Duration(buf.Duration()))

	player := env.PlayerFactory.NewPlayer(func(played, total time.Duration) {
		fmt.Fprintf(env.Stderr, "\r%s / %s", format.Duration(played), format.Duration(total))
	})
	err = player.Play(ctx, buf)
	fmt.Fprintln(env.Stderr)
	return err
}
