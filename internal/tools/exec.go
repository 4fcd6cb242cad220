package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// probeTimeout bounds a single version probe.
const probeTimeout = 15 * time.Second

// minFFmpegMajorVersion is the minimum supported ffmpeg version.
// Older builds may lack libmp3lame or the s16le pipe muxer options we use.
const minFFmpegMajorVersion = 4

// runOutputFn is the function type for running a command and capturing output.
type runOutputFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs short-lived tool commands and captures their output.
type Executor struct {
	runOutput runOutputFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunOutput sets a custom runOutput function (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{runOutput: defaultRunOutput}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput executes a tool and returns its combined stdout and stderr.
// ffmpeg prints its banner on stderr while yt-dlp and espeak use stdout.
func (e *Executor) RunOutput(ctx context.Context, path string, args []string) (string, error) {
	return e.runOutput(ctx, path, args)
}

// Available reports whether path runs and exits cleanly with args
// (typically a version flag).
func (e *Executor) Available(ctx context.Context, path string, args ...string) bool {
	if path == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := e.runOutput(ctx, path, args)
	return err == nil
}

// defaultRunOutput returns output even when the command fails, since the
// diagnostic text is useful for error messages.
func defaultRunOutput(ctx context.Context, path string, args []string) (string, error) {
	// #nosec G204 -- path is a resolved tool binary, args are fixed flags
	cmd := exec.CommandContext(ctx, path, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}

// VersionChecker verifies ffmpeg version requirements.
type VersionChecker struct {
	executor *Executor
	stderr   io.Writer
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionExecutor sets the executor for running ffmpeg.
func WithVersionExecutor(e *Executor) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.executor = e }
}

// WithVersionStderr sets the writer for warning messages.
func WithVersionStderr(w io.Writer) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.stderr = w }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		executor: NewExecutor(),
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// Check warns on stderr when ffmpeg is older than the supported minimum.
// Returns true if the version was parsed, false otherwise. Never fails.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) bool {
	output, err := vc.executor.RunOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && output == "" {
		return false
	}

	first, _, _ := strings.Cut(output, "\n")
	if first == "" {
		return false
	}

	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err != nil {
		// Git builds print "ffmpeg version n6.1.1".
		if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err != nil {
			return false
		}
	}

	if major < minFFmpegMajorVersion {
		fmt.Fprintf(vc.stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			major, minFFmpegMajorVersion)
	}
	return true
}
