package speech

import (
	"context"
	"os/exec"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-workout/internal/audio"
)

// speechClient is the slice of the OpenAI client used for synthesis.
// *openai.Client implements this implicitly.
type speechClient interface {
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// outputRunner runs a command and returns its stdout.
type outputRunner interface {
	Output(ctx context.Context, name string, args []string) ([]byte, error)
}

// decoder turns compressed speech into PCM. Satisfied by *audio.Codec.
type decoder interface {
	Decode(ctx context.Context, media []byte) (audio.Buffer, error)
}

// osOutputRunner implements outputRunner using exec.CommandContext.
type osOutputRunner struct{}

func (osOutputRunner) Output(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name is the resolved espeak path, text is passed as one argument
	return exec.CommandContext(ctx, name, args...).Output()
}

// Compile-time interface compliance checks.
var (
	_ speechClient = (*openai.Client)(nil)
	_ outputRunner = osOutputRunner{}
	_ decoder      = (*audio.Codec)(nil)
)
