package speech

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alnah/go-workout/internal/lang"
)

// defaultEspeakRate is the speaking rate in words per minute.
const defaultEspeakRate = 160

// Espeak speaks offline through the espeak binary, reading WAV from stdout.
type Espeak struct {
	path   string
	rate   int
	runner outputRunner
}

// EspeakOption configures an Espeak engine.
type EspeakOption func(*Espeak)

// WithRate sets the speaking rate in words per minute.
func WithRate(wpm int) EspeakOption {
	return func(e *Espeak) {
		if wpm > 0 {
			e.rate = wpm
		}
	}
}

// WithOutputRunner sets a custom command runner (for testing).
func WithOutputRunner(r outputRunner) EspeakOption {
	return func(e *Espeak) { e.runner = r }
}

// NewEspeak creates an engine running the espeak binary at path.
func NewEspeak(path string, opts ...EspeakOption) *Espeak {
	e := &Espeak{path: path, rate: defaultEspeakRate, runner: osOutputRunner{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Engine.
func (e *Espeak) Name() string { return "espeak" }

// Speak returns WAV speech for text in the voice mapped from language.
func (e *Espeak) Speak(ctx context.Context, text, language string) ([]byte, error) {
	args := []string{
		"-v", lang.EspeakVoice(language),
		"-s", strconv.Itoa(e.rate),
		"--stdout",
		"--", text,
	}
	out, err := e.runner.Output(ctx, e.path, args)
	if err != nil {
		return nil, fmt.Errorf("espeak: %w", err)
	}
	return out, nil
}
