package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrNoSpeechEngine indicates neither OPENAI_API_KEY nor espeak is available.
	ErrNoSpeechEngine = errors.New("no speech engine available")

	// ErrInterrupted indicates the user aborted with a second Ctrl+C.
	ErrInterrupted = errors.New("interrupted")
)
