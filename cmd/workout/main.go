package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-workout/internal/audio"
	"github.com/alnah/go-workout/internal/cli"
	"github.com/alnah/go-workout/internal/interrupt"
	"github.com/alnah/go-workout/internal/lang"
	"github.com/alnah/go-workout/internal/plan"
	"github.com/alnah/go-workout/internal/playback"
	"github.com/alnah/go-workout/internal/storage"
	"github.com/alnah/go-workout/internal/tools"
	"github.com/alnah/go-workout/internal/workout"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitEncode     = 5
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Commands install their own signal handling: generate needs the
	// two-step Ctrl+C, serve and preview a plain cancel.
	ctx := context.Background()

	env := cli.NewEnv(cli.WithVersion(version))

	rootCmd := &cobra.Command{
		Use:     "workout",
		Short:   "Turn workout plans into spoken MP3 guides with background music",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.GenerateCmd(env))
	rootCmd.AddCommand(cli.ServeCmd(env))
	rootCmd.AddCommand(cli.PreviewCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, cli.ErrInterrupted) || errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	if errors.Is(err, tools.ErrNotFound) || errors.Is(err, tools.ErrUnsupportedPlatform) ||
		errors.Is(err, tools.ErrChecksumMismatch) || errors.Is(err, tools.ErrDownloadFailed) ||
		errors.Is(err, cli.ErrNoSpeechEngine) || errors.Is(err, storage.ErrNoBucket) ||
		errors.Is(err, playback.ErrDeviceUnavailable) {
		return ExitSetup
	}

	if errors.Is(err, workout.ErrInvalidPlan) || errors.Is(err, lang.ErrInvalid) ||
		errors.Is(err, plan.ErrMalformed) || errors.Is(err, plan.ErrUnsupportedFormat) ||
		errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrOutputExists) {
		return ExitValidation
	}

	if errors.Is(err, audio.ErrEncodeFailed) {
		return ExitEncode
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"if any flags in the group",
	"accepts ",
	"requires at least",
	"requires at most",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
