// Package speech turns instruction text into PCM speech.
//
// A Synthesizer tries its engines in order (OpenAI when an API key is set,
// espeak otherwise) and never fails: when every engine errors it returns a
// short silent placeholder so the workout keeps its timing.
package speech

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/audio"
)

// PlaceholderMs is the length of the silence returned when synthesis fails.
const PlaceholderMs = 1000

// Engine produces compressed speech (any format ffmpeg can decode).
type Engine interface {
	Name() string
	Speak(ctx context.Context, text, language string) ([]byte, error)
}

// Compile-time interface compliance checks.
var (
	_ Engine = (*OpenAI)(nil)
	_ Engine = (*Espeak)(nil)
)

// DefaultEngines returns OpenAI when apiKey is set, then espeak when
// espeakPath is set.
func DefaultEngines(apiKey, espeakPath string) []Engine {
	var engines []Engine
	if apiKey != "" {
		engines = append(engines, NewOpenAI(openai.NewClient(apiKey)))
	}
	if espeakPath != "" {
		engines = append(engines, NewEspeak(espeakPath))
	}
	return engines
}

// Synthesizer decodes the output of the first engine that succeeds.
type Synthesizer struct {
	engines []Engine
	decoder decoder
	format  audio.Format
	logger  *zap.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithLogger sets the logger for engine failures.
func WithLogger(l *zap.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSynthesizer creates a Synthesizer over engines, decoding with dec.
func NewSynthesizer(dec decoder, engines []Engine, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		engines: engines,
		decoder: dec,
		format:  audio.Default,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize speaks text in language. On total failure it returns
// PlaceholderMs of silence.
func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) audio.Buffer {
	buf, err := s.speak(ctx, text, language)
	if err != nil {
		s.logger.Warn("speech synthesis failed, using silence",
			zap.String("text", text),
			zap.String("language", language),
			zap.Error(err))
		return audio.Silence(s.format, PlaceholderMs)
	}
	return buf
}

func (s *Synthesizer) speak(ctx context.Context, text, language string) (audio.Buffer, error) {
	if strings.TrimSpace(text) == "" {
		return audio.Buffer{}, ErrEmptyText
	}

	lastErr := ErrNoEngine
	for _, e := range s.engines {
		buf, err := s.try(ctx, e, text, language)
		if err == nil {
			return buf, nil
		}
		s.logger.Debug("speech engine failed",
			zap.String("engine", e.Name()),
			zap.Error(err))
		lastErr = fmt.Errorf("%s: %w", e.Name(), err)
		if ctx.Err() != nil {
			break
		}
	}
	return audio.Buffer{}, lastErr
}

func (s *Synthesizer) try(ctx context.Context, e Engine, text, language string) (audio.Buffer, error) {
	data, err := e.Speak(ctx, text, language)
	if err != nil {
		return audio.Buffer{}, err
	}
	if len(data) == 0 {
		return audio.Buffer{}, ErrEmptySpeech
	}
	buf, err := s.decoder.Decode(ctx, data)
	if err != nil {
		return audio.Buffer{}, err
	}
	if buf.IsEmpty() {
		return audio.Buffer{}, ErrEmptySpeech
	}
	return buf, nil
}
