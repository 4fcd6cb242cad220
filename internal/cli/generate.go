package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/audio"
	"github.com/alnah/go-workout/internal/config"
	"github.com/alnah/go-workout/internal/format"
	"github.com/alnah/go-workout/internal/interrupt"
	"github.com/alnah/go-workout/internal/lang"
	"github.com/alnah/go-workout/internal/plan"
	"github.com/alnah/go-workout/internal/storage"
	"github.com/alnah/go-workout/internal/tools"
	"github.com/alnah/go-workout/internal/workout"
)

// generateOptions holds the parsed flags of the generate command.
type generateOptions struct {
	output       string
	language     string
	background   []string
	noBackground bool
	upload       bool
	verbose      bool
}

// textPlanExample is the text plan shown in the generate help.
const textPlanExample = `  # language: en
  # background: https://www.youtube.com/watch?v=dQw4w9WgXcQ
  Jumping jacks | 30
  Rest | 45
  Plank
`

// GenerateCmd creates the generate command.
// The env parameter provides injectable dependencies for testing.
func GenerateCmd(env *Env) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate <plan-file>",
		Short: "Render a workout plan to an MP3 guide",
		Long: `Render a workout plan to an MP3 guide.

Each instruction is spoken, followed by a silent pause and a 5-4-3-2-1
countdown that ends its duration. Background tracks listed in the plan
(or with --background) are downloaded, looped and mixed below the voice.

Plans are JSON (.json), YAML (.yaml, .yml) or text (.txt), one
"text | seconds" instruction per line (30 s when omitted):
` + textPlanExample + `
Press Ctrl+C once while background music is being fetched to finish
with the voice guide alone. Press it again within 2 seconds to abort.

Speech uses OpenAI when OPENAI_API_KEY is set, espeak otherwise.`,
		Example: `  workout generate legs.yaml
  workout generate hiit.json -o ~/Music/hiit.mp3 -l fr
  workout generate core.txt -b https://www.youtube.com/watch?v=dQw4w9WgXcQ
  workout generate core.txt --no-background --upload`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), env, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path (default: <plan>.mp3)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Instruction language (ISO 639-1 code, e.g., en, fr, pt-BR)")
	cmd.Flags().StringArrayVarP(&opts.background, "background", "b", nil, "Background track URL (repeatable, replaces the plan's)")
	cmd.Flags().BoolVar(&opts.noBackground, "no-background", false, "Voice guide only")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "Upload the result to the configured S3 bucket")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every fetch attempt")
	cmd.MarkFlagsMutuallyExclusive("background", "no-background")

	return cmd
}

// runGenerate executes the generation pipeline.
// Validation order: file exists -> plan parses -> overrides -> plan valid -> output free -> bucket
func runGenerate(parentCtx context.Context, env *Env, planPath string, opts generateOptions) error {
	// === VALIDATION (fail-fast) ===

	if _, err := os.Stat(planPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, planPath)
		}
		return fmt.Errorf("cannot access plan file: %w", err)
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	p, err := plan.Read(planPath, plan.WithDefaultLanguage(cfg.Language))
	if err != nil {
		return err
	}

	if opts.language != "" {
		if err := lang.Validate(opts.language); err != nil {
			return err
		}
		p.Language = lang.Normalize(opts.language)
	}
	switch {
	case opts.noBackground:
		p.Background = nil
	case len(opts.background) > 0:
		p.Background = opts.background
	}

	if err := p.Validate(); err != nil {
		return err
	}

	output := ensureMP3Extension(config.ResolveOutputPath(opts.output, cfg.OutputDir, defaultOutputName(planPath)))
	if _, err := os.Stat(output); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputExists, output)
	}

	if opts.upload && cfg.S3Bucket == "" {
		return fmt.Errorf("%w (set it with: workout config set %s <name>)", storage.ErrNoBucket, config.KeyS3Bucket)
	}

	// === SETUP ===

	logger := newConsoleLogger(env.Stderr, opts.verbose)
	defer func() { _ = logger.Sync() }()

	ffmpegPath, err := env.ToolResolver.Resolve(parentCtx, tools.FFmpeg)
	if err != nil {
		return err
	}
	env.ToolResolver.CheckVersion(parentCtx, ffmpegPath)

	apiKey := env.Getenv(EnvOpenAIAPIKey)
	espeakPath := ""
	if apiKey == "" {
		espeakPath, err = env.ToolResolver.Resolve(parentCtx, tools.Espeak)
		if err != nil {
			logger.Debug("espeak unavailable", zap.Error(err))
			espeakPath = ""
		}
	}

	ytdlpPath := ""
	if len(p.Background) > 0 {
		ytdlpPath, err = env.ToolResolver.Resolve(parentCtx, tools.YtDlp)
		if err != nil {
			fmt.Fprintln(env.Stderr, "Warning: yt-dlp not found, background tracks will use the Invidious API only")
			logger.Debug("yt-dlp unavailable", zap.Error(err))
			ytdlpPath = ""
		}
	}

	pipeline, err := env.PipelineFactory.NewPipeline(parentCtx, PipelineOptions{
		FFmpegPath: ffmpegPath,
		YtDlpPath:  ytdlpPath,
		EspeakPath: espeakPath,
		APIKey:     apiKey,
		CacheURL:   cfg.CacheURL,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	// === VOICE GUIDE ===

	total := time.Duration(p.TotalSeconds()) * time.Second
	fmt.Fprintf(env.Stderr, "Building voice guide (%s, %s, %s)...\n",
		format.Count(len(p.Instructions), "instruction"), format.DurationHuman(total), lang.DisplayName(p.Language))

	handler, bgCtx := env.InterruptFactory(parentCtx)
	defer handler.Stop()

	guide := pipeline.Generator.BuildGuide(parentCtx, p.Instructions, p.Language)
	if err := parentCtx.Err(); err != nil {
		return err
	}

	// === BACKGROUND ===

	result, err := addBackground(bgCtx, env, pipeline, handler, guide, p)
	if err != nil {
		return err
	}
	handler.Stop()

	// === ENCODE ===

	fmt.Fprintln(env.Stderr, "Encoding MP3...")
	var mp3 bytes.Buffer
	if err := pipeline.Codec.Encode(parentCtx, result, &mp3); err != nil {
		return err
	}
	if err := writeFileAtomic(output, mp3.Bytes()); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s (%s, %s)\n",
		output, format.Duration(result.Duration()), format.Size(int64(mp3.Len())))

	// === UPLOAD (optional) ===

	if opts.upload {
		return uploadWorkout(parentCtx, env, cfg, mp3.Bytes())
	}
	return nil
}

// addBackground lays the background bed under guide. A first Ctrl+C
// returns the guide alone; a second one within the window aborts.
func addBackground(ctx context.Context, env *Env, pipeline *Pipeline, handler InterruptHandler, guide audio.Buffer, p workout.Plan) (audio.Buffer, error) {
	if len(p.Background) == 0 {
		return guide, nil
	}

	fmt.Fprintf(env.Stderr, "Fetching %s (Ctrl+C to skip)...\n", format.Count(len(p.Background), "background track"))
	result := pipeline.Generator.AddBackground(ctx, guide, p.Background)

	if handler.Interrupted() {
		if handler.Decide() == interrupt.Abort {
			return audio.Buffer{}, ErrInterrupted
		}
		return guide, nil
	}
	return result, nil
}

// uploadWorkout stores data under a fresh object key and prints its location.
func uploadWorkout(ctx context.Context, env *Env, cfg config.Config, data []byte) error {
	uploader, err := env.UploaderFactory.NewUploader(ctx, storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     env.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: env.Getenv("AWS_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		return err
	}
	if err := uploader.EnsureBucket(ctx); err != nil {
		return err
	}

	location, err := uploader.Upload(ctx, storage.NewObjectKey(), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Uploaded: %s\n", location)
	return nil
}
