package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-workout/internal/apierr"
	"github.com/alnah/go-workout/internal/lang"
)

// Default retry configuration for the speech API.
const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 15 * time.Second
)

// OpenAI speaks through the OpenAI speech endpoint. The language reaches the
// model as a spoken instruction, since bare countdown digits carry none.
type OpenAI struct {
	client     speechClient
	model      openai.SpeechModel
	voice      openai.SpeechVoice
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// OpenAIOption configures an OpenAI engine.
type OpenAIOption func(*OpenAI)

// WithVoice selects the OpenAI voice.
func WithVoice(v string) OpenAIOption {
	return func(o *OpenAI) {
		if v != "" {
			o.voice = openai.SpeechVoice(v)
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) OpenAIOption {
	return func(o *OpenAI) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, maxDelay time.Duration) OpenAIOption {
	return func(o *OpenAI) {
		if base > 0 {
			o.baseDelay = base
		}
		if maxDelay > 0 {
			o.maxDelay = maxDelay
		}
	}
}

// withClient swaps the API client (for testing).
func withClient(c speechClient) OpenAIOption {
	return func(o *OpenAI) { o.client = c }
}

// NewOpenAI creates an engine using model gpt-4o-mini-tts and voice alloy.
// tts-1 ignores instructions and would read digits in English.
func NewOpenAI(client *openai.Client, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		client:     client,
		model:      openai.TTSModelGPT4oMini,
		voice:      openai.VoiceAlloy,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name implements Engine.
func (o *OpenAI) Name() string { return "openai" }

// Speak returns MP3 speech for text in language, retrying transient API
// failures.
func (o *OpenAI) Speak(ctx context.Context, text, language string) ([]byte, error) {
	req := openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          o.voice,
		Instructions:   speakInstructions(language),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}
	cfg := apierr.RetryConfig{
		MaxRetries: o.maxRetries,
		BaseDelay:  o.baseDelay,
		MaxDelay:   o.maxDelay,
	}

	return apierr.RetryWithBackoff(ctx, cfg, func() ([]byte, error) {
		resp, err := o.client.CreateSpeech(ctx, req)
		if err != nil {
			return nil, classifyError(err)
		}
		defer func() { _ = resp.Close() }()

		data, err := io.ReadAll(resp)
		if err != nil {
			return nil, fmt.Errorf("read speech: %w", err)
		}
		return data, nil
	}, apierr.IsRetryable)
}

// speakInstructions asks the model to read the input, numbers included, in
// the given language.
func speakInstructions(language string) string {
	code := lang.OrDefault(language)
	return fmt.Sprintf("Speak in %s (%s). Read numbers as %s words. Use a clear, energetic coaching tone.",
		lang.DisplayName(code), code, lang.DisplayName(code))
}

// classifyError maps OpenAI API errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apierr.ClassifyStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return apierr.ClassifyStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	return err
}
