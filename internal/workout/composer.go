// Package workout turns a validated plan into one audio track: every
// instruction rendered in order, leveled, and optionally laid over a looped
// background bed. Background problems never fail a generation; the voice
// guide alone is returned instead.
package workout

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/audio"
	"github.com/alnah/go-workout/internal/fetch"
	"github.com/alnah/go-workout/internal/loudness"
	"github.com/alnah/go-workout/internal/mix"
)

// Levels applied by the Composer.
const (
	// GuideLoudness is the integrated loudness of the voice guide.
	GuideLoudness = -23.0

	// BackgroundOffset is how far the background bed sits below the guide.
	BackgroundOffset = -10.0
)

const tracerName = "github.com/alnah/go-workout/internal/workout"

// instructionBuilder renders one instruction. Satisfied by *instruction.Builder.
type instructionBuilder interface {
	Build(ctx context.Context, text string, durationSeconds int, language string) audio.Buffer
}

// trackFetcher acquires background tracks. Satisfied by *fetch.Engine.
type trackFetcher interface {
	FetchAll(ctx context.Context, targets []fetch.Target) []audio.Buffer
}

// normalizer levels a buffer. Satisfied by *loudness.Normalizer.
type normalizer interface {
	Normalize(buf audio.Buffer, targetLUFS float64) audio.Buffer
}

// merger builds a bed of an exact duration. Satisfied by *mix.Mixer.
type merger interface {
	Merge(tracks []audio.Buffer, durationMs int64) audio.Buffer
}

// Compile-time interface compliance checks.
var (
	_ trackFetcher = (*fetch.Engine)(nil)
	_ normalizer   = (*loudness.Normalizer)(nil)
	_ merger       = (*mix.Mixer)(nil)
)

// Composer assembles workouts.
type Composer struct {
	builder instructionBuilder
	fetcher trackFetcher
	norm    normalizer
	mixer   merger
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Option configures a Composer.
type Option func(*Composer)

// WithFetcher enables background music. Without it AddBackground returns
// the guide unchanged.
func WithFetcher(f trackFetcher) Option {
	return func(c *Composer) { c.fetcher = f }
}

// WithNormalizer sets the loudness normalizer.
func WithNormalizer(n normalizer) Option {
	return func(c *Composer) {
		if n != nil {
			c.norm = n
		}
	}
}

// WithMixer sets the background merger.
func WithMixer(m merger) Option {
	return func(c *Composer) {
		if m != nil {
			c.mixer = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Composer) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewComposer creates a Composer rendering instructions with b.
func NewComposer(b instructionBuilder, opts ...Option) *Composer {
	c := &Composer{
		builder: b,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.norm == nil {
		c.norm = loudness.NewNormalizer(loudness.WithLogger(c.logger))
	}
	if c.mixer == nil {
		c.mixer = mix.NewMixer(mix.WithNormalizer(c.norm), mix.WithLogger(c.logger))
	}
	return c
}

// Generate renders the guide for plan and adds its background.
func (c *Composer) Generate(ctx context.Context, plan Plan) audio.Buffer {
	ctx, span := c.tracer.Start(ctx, "workout.Generate",
		trace.WithAttributes(
			attribute.Int("workout.instructions", len(plan.Instructions)),
			attribute.Int("workout.background_urls", len(plan.Background)),
		))
	defer span.End()

	guide := c.BuildGuide(ctx, plan.Instructions, plan.Language)
	return c.AddBackground(ctx, guide, plan.Background)
}

// BuildGuide renders every instruction in order and levels the result to
// GuideLoudness.
func (c *Composer) BuildGuide(ctx context.Context, instructions []Instruction, language string) audio.Buffer {
	_, span := c.tracer.Start(ctx, "workout.BuildGuide")
	defer span.End()

	segments := make([]audio.Buffer, 0, len(instructions))
	for _, in := range instructions {
		segments = append(segments, c.builder.Build(ctx, in.Text, in.DurationSeconds, language))
	}

	guide, err := audio.Concat(segments...)
	if err != nil {
		// Segments from one builder share a format; rebuild as silence to keep timing.
		c.logger.Error("guide segments disagree on format", zap.Error(err))
		total := 0
		for _, in := range instructions {
			total += in.DurationSeconds
		}
		guide = audio.Silence(audio.Default, int64(total)*1000)
	}

	span.SetAttributes(attribute.Int64("workout.guide_ms", guide.Len()))
	return c.norm.Normalize(guide, GuideLoudness)
}

// AddBackground mixes tracks fetched from urls under guide. The result
// always has guide's length. Any failure, including a panic, yields guide.
func (c *Composer) AddBackground(ctx context.Context, guide audio.Buffer, urls []string) (out audio.Buffer) {
	targets := fetch.Targets(urls)
	if len(targets) == 0 || c.fetcher == nil || guide.IsEmpty() {
		return guide
	}

	ctx, span := c.tracer.Start(ctx, "workout.AddBackground",
		trace.WithAttributes(attribute.Int("workout.background_urls", len(targets))))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("background mixing panicked: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Error("background failed, returning guide only", zap.Error(err))
			out = guide
		}
	}()

	tracks := c.fetcher.FetchAll(ctx, targets)
	if len(tracks) == 0 {
		c.logger.Warn("no background tracks acquired, returning guide only",
			zap.Int("urls", len(targets)))
		return guide
	}
	if err := ctx.Err(); err != nil {
		c.logger.Warn("background cancelled, returning guide only", zap.Error(err))
		return guide
	}

	leveled := make([]audio.Buffer, 0, len(tracks))
	for _, t := range tracks {
		if t.Format() != guide.Format() {
			c.logger.Warn("dropping background track in a different format",
				zap.Stringer("format", t.Format()))
			continue
		}
		leveled = append(leveled, c.norm.Normalize(t, GuideLoudness).Gain(BackgroundOffset))
	}
	if len(leveled) == 0 {
		return guide
	}

	bed := c.mixer.Merge(leveled, guide.Len())
	bed = c.norm.Normalize(bed, GuideLoudness+BackgroundOffset)

	span.SetAttributes(attribute.Int("workout.background_tracks", len(leveled)))
	c.logger.Info("background mixed",
		zap.Int("tracks", len(leveled)),
		zap.Int64("duration_ms", guide.Len()))
	return guide.Overlay(bed)
}
