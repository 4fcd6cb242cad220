package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// pipeRunner runs an external command with stdin/stdout attached to the caller.
type pipeRunner interface {
	Pipe(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// --- Default implementation using real OS functions ---

// osPipeRunner implements pipeRunner using exec.CommandContext.
type osPipeRunner struct{}

func (osPipeRunner) Pipe(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	// #nosec G204 -- name is the resolved ffmpeg path, args are built by Codec
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

var _ pipeRunner = osPipeRunner{}
