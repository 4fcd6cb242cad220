package audio

import (
	"context"
	"io"
)

// Export internal types for testing.
// This file is only compiled during tests (suffix _test.go).

// PipeFunc adapts a function to the pipeRunner interface.
type PipeFunc func(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error

func (f PipeFunc) Pipe(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	return f(ctx, name, args, stdin, stdout)
}
