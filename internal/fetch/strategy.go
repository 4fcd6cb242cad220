package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/apierr"
	"github.com/alnah/go-workout/internal/audio"
)

// Strategy acquires one track for a target. Implementations never panic on
// external failures; they report them in Result.Err.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, target Target) Result
}

// Result is the outcome of one strategy for one target.
// Success means Err is nil; Media holds the raw bytes Buffer was decoded from.
type Result struct {
	Buffer audio.Buffer
	Media  []byte
	Err    error
}

// OK reports whether the strategy produced a track.
func (r Result) OK() bool { return r.Err == nil }

// Downloader fetches raw media bytes for a target in a single call.
type Downloader interface {
	Download(ctx context.Context, target Target) ([]byte, error)
}

// Policy bounds the retries of a strategy.
type Policy struct {
	// Attempts is the total number of calls, including the first.
	Attempts int

	// MinDelay and MaxDelay bound the jittered base delay. Retry n waits
	// uniform(MinDelay, MaxDelay) × n.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Timeout bounds each call. Zero leaves the call bounded only by ctx.
	Timeout time.Duration

	// Jitter returns a value in [0, 1). Nil uses math/rand/v2.
	Jitter func() float64
}

// Default policies per strategy family.
var (
	DefaultYtDlpPolicy = Policy{
		Attempts: 3,
		MinDelay: 5 * time.Second,
		MaxDelay: 10 * time.Second,
		Timeout:  120 * time.Second,
	}
	DefaultInvidiousPolicy = Policy{
		Attempts: 2,
		MinDelay: 5 * time.Second,
		MaxDelay: 10 * time.Second,
	}
)

// retryConfig converts the policy to the shared retry parameters.
func (p Policy) retryConfig() apierr.RetryConfig {
	return apierr.RetryConfig{
		MaxRetries: max(p.Attempts, 1) - 1,
		BaseDelay:  p.MinDelay,
		MaxDelay:   p.MaxDelay,
		Backoff:    apierr.BackoffLinearJitter,
		Jitter:     p.Jitter,
	}
}

// retrying wraps a Downloader with a retry policy and decoding.
type retrying struct {
	name       string
	policy     Policy
	downloader Downloader
	decoder    decoder
	logger     *zap.Logger
}

// NewStrategy builds a Strategy that calls d under policy and decodes the
// downloaded media with dec.
func NewStrategy(name string, policy Policy, d Downloader, dec decoder, logger *zap.Logger) Strategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retrying{name: name, policy: policy, downloader: d, decoder: dec, logger: logger}
}

func (s *retrying) Name() string { return s.name }

func (s *retrying) Attempt(ctx context.Context, target Target) Result {
	attempt := 0
	media, err := apierr.RetryWithBackoff(ctx, s.policy.retryConfig(),
		func() ([]byte, error) {
			attempt++
			data, err := s.call(ctx, target)
			if err != nil {
				s.logger.Debug("download attempt failed",
					zap.String("strategy", s.name),
					zap.String("url", target.String()),
					zap.Int("attempt", attempt),
					zap.Error(err))
			}
			return data, err
		},
		func(err error) bool {
			return ctx.Err() == nil && !errors.Is(err, ErrNoVideoID) && !errors.Is(err, ErrMediaTooLarge)
		},
	)
	if err != nil {
		return Result{Err: fmt.Errorf("%s: %w", s.name, err)}
	}

	buf, err := s.decoder.Decode(ctx, media)
	if err != nil {
		return Result{Err: fmt.Errorf("%s: %w", s.name, err)}
	}
	return Result{Buffer: buf, Media: media}
}

// call runs one download bounded by the policy timeout.
func (s *retrying) call(ctx context.Context, target Target) ([]byte, error) {
	if s.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.policy.Timeout)
		defer cancel()
	}
	data, err := s.downloader.Download(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyMedia
	}
	return data, nil
}
