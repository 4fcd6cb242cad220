// Package fetch acquires background tracks from media page URLs.
//
// Each target is tried against an ordered list of strategies (yt-dlp, yt-dlp
// with browser headers, the Invidious API); the first success wins. Batches
// run on a small worker pool with paced starts, and failures are logged
// rather than returned: FetchAll yields whatever subset succeeded.
package fetch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-workout/internal/apierr"
	"github.com/alnah/go-workout/internal/audio"
)

// MaxWorkers is the default number of targets fetched concurrently.
const MaxWorkers = 3

// maxWorkersLimit keeps the pool small regardless of configuration.
const maxWorkersLimit = 4

// Default pacing: target i waits uniform(1s, 3s) × i before queueing.
const (
	defaultPaceMin = 1 * time.Second
	defaultPaceMax = 3 * time.Second
)

const tracerName = "github.com/alnah/go-workout/internal/fetch"

// Cache stores raw media by URL. Get reports a miss with ok == false.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
}

// Engine runs strategies over batches of targets.
type Engine struct {
	strategies []Strategy
	workers    int
	paceMin    time.Duration
	paceMax    time.Duration
	jitter     func() float64
	cache      Cache
	decoder    decoder
	logger     *zap.Logger
	tracer     trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWorkers sets the pool size, clamped to [1, 4].
func WithWorkers(n int) EngineOption {
	return func(e *Engine) { e.workers = min(max(n, 1), maxWorkersLimit) }
}

// WithPacing sets the per-index start delay range. Zero disables pacing.
func WithPacing(minDelay, maxDelay time.Duration) EngineOption {
	return func(e *Engine) {
		e.paceMin = max(minDelay, 0)
		e.paceMax = max(maxDelay, e.paceMin)
	}
}

// WithJitter sets the random source for pacing (for testing).
func WithJitter(fn func() float64) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.jitter = fn
		}
	}
}

// WithCache enables the media cache. Cached bytes are decoded with dec.
func WithCache(c Cache, dec decoder) EngineOption {
	return func(e *Engine) {
		e.cache = c
		e.decoder = dec
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewEngine creates an Engine trying strategies in the given order.
func NewEngine(strategies []Strategy, opts ...EngineOption) *Engine {
	e := &Engine{
		strategies: strategies,
		workers:    MaxWorkers,
		paceMin:    defaultPaceMin,
		paceMax:    defaultPaceMax,
		jitter:     rand.Float64,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategies returns the strategy names in priority order.
func (e *Engine) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// FetchAll acquires one track per target. It never fails: targets that
// exhaust every strategy are logged and left out. Result order is not
// guaranteed.
func (e *Engine) FetchAll(ctx context.Context, targets []Target) []audio.Buffer {
	if len(targets) == 0 {
		return nil
	}

	ctx, span := e.tracer.Start(ctx, "fetch.FetchAll",
		trace.WithAttributes(attribute.Int("fetch.targets", len(targets))))
	defer span.End()

	var (
		mu     sync.Mutex
		tracks []audio.Buffer
	)
	sem := make(chan struct{}, min(len(targets), e.workers))

	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			defer e.recoverPanic(target)

			if err := apierr.Sleep(ctx, e.startDelay(i)); err != nil {
				return nil
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			defer func() { <-sem }()

			if buf, ok := e.fetch(ctx, target); ok {
				mu.Lock()
				tracks = append(tracks, buf)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(attribute.Int("fetch.tracks", len(tracks)))
	e.logger.Info("background fetch finished",
		zap.Int("targets", len(targets)),
		zap.Int("tracks", len(tracks)))
	return tracks
}

// Fetch acquires a single target, reporting whether any strategy succeeded.
func (e *Engine) Fetch(ctx context.Context, target Target) (audio.Buffer, bool) {
	return e.fetch(ctx, target)
}

func (e *Engine) fetch(ctx context.Context, target Target) (audio.Buffer, bool) {
	ctx, span := e.tracer.Start(ctx, "fetch.Target",
		trace.WithAttributes(attribute.String("fetch.url", target.String())))
	defer span.End()

	if buf, ok := e.fromCache(ctx, target); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return buf, true
	}

	for _, s := range e.strategies {
		if ctx.Err() != nil {
			break
		}
		r := s.Attempt(ctx, target)
		if !r.OK() {
			e.logger.Warn("strategy failed",
				zap.String("url", target.String()),
				zap.String("strategy", s.Name()),
				zap.Error(r.Err))
			continue
		}

		span.SetAttributes(attribute.String("fetch.strategy", s.Name()))
		e.logger.Debug("track acquired",
			zap.String("url", target.String()),
			zap.String("strategy", s.Name()),
			zap.Duration("duration", r.Buffer.Duration()))
		e.toCache(ctx, target, r.Media)
		return r.Buffer, true
	}

	span.SetStatus(codes.Error, "all strategies failed")
	e.logger.Warn("all strategies failed", zap.String("url", target.String()))
	return audio.Buffer{}, false
}

func (e *Engine) fromCache(ctx context.Context, target Target) (audio.Buffer, bool) {
	if e.cache == nil || e.decoder == nil {
		return audio.Buffer{}, false
	}
	data, ok, err := e.cache.Get(ctx, target.String())
	if err != nil {
		e.logger.Warn("cache read failed", zap.String("url", target.String()), zap.Error(err))
		return audio.Buffer{}, false
	}
	if !ok {
		return audio.Buffer{}, false
	}
	buf, err := e.decoder.Decode(ctx, data)
	if err != nil {
		e.logger.Warn("cached media unreadable", zap.String("url", target.String()), zap.Error(err))
		return audio.Buffer{}, false
	}
	return buf, true
}

func (e *Engine) toCache(ctx context.Context, target Target, media []byte) {
	if e.cache == nil || len(media) == 0 {
		return
	}
	if err := e.cache.Set(ctx, target.String(), media); err != nil {
		e.logger.Warn("cache write failed", zap.String("url", target.String()), zap.Error(err))
	}
}

// startDelay paces target i: uniform(paceMin, paceMax) × i.
func (e *Engine) startDelay(i int) time.Duration {
	if i == 0 || e.paceMax <= 0 {
		return 0
	}
	base := float64(e.paceMin) + float64(e.paceMax-e.paceMin)*e.jitter()
	return time.Duration(base * float64(i))
}

func (e *Engine) recoverPanic(target Target) {
	if r := recover(); r != nil {
		e.logger.Error("fetch panicked",
			zap.String("url", target.String()),
			zap.Error(fmt.Errorf("%v", r)))
	}
}
