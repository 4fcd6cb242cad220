// Package instruction renders one workout instruction as audio: the spoken
// text, a silent pause, then a spoken countdown, sized to the instruction's
// duration.
package instruction

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/alnah/go-workout/internal/audio"
)

// Countdown defaults.
const (
	DefaultCountdownStart = 5
	DefaultCountdownEnd   = 1
	DefaultTickMs         = 1000
)

// synthesizer speaks text. Satisfied by *speech.Synthesizer.
type synthesizer interface {
	Synthesize(ctx context.Context, text, language string) audio.Buffer
}

// Countdown describes the spoken countdown closing every instruction.
type Countdown struct {
	Start  int
	End    int
	TickMs int64
}

// DefaultCountdown counts 5 to 1 with one-second ticks.
var DefaultCountdown = Countdown{
	Start:  DefaultCountdownStart,
	End:    DefaultCountdownEnd,
	TickMs: DefaultTickMs,
}

type speechKey struct {
	text, language string
}

type countdownKey struct {
	countdown Countdown
	language  string
}

// Builder builds instruction audio. Speech and countdowns are memoized for
// the Builder's lifetime, and concurrent requests for the same key share a
// single synthesis.
type Builder struct {
	tts       synthesizer
	countdown Countdown
	format    audio.Format
	logger    *zap.Logger

	mu         sync.Mutex
	speech     map[speechKey]audio.Buffer
	countdowns map[countdownKey]audio.Buffer
	group      singleflight.Group
}

// Option configures a Builder.
type Option func(*Builder)

// WithCountdown replaces the default countdown. Invalid values are ignored.
func WithCountdown(c Countdown) Option {
	return func(b *Builder) {
		if c.Start >= c.End && c.End >= 0 && c.TickMs > 0 {
			b.countdown = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder speaking through tts.
func NewBuilder(tts synthesizer, opts ...Option) *Builder {
	b := &Builder{
		tts:        tts,
		countdown:  DefaultCountdown,
		format:     audio.Default,
		logger:     zap.NewNop(),
		speech:     make(map[speechKey]audio.Buffer),
		countdowns: make(map[countdownKey]audio.Buffer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns speech, then silence, then the countdown. The pause fills
// durationSeconds exactly unless speech and countdown alone are longer.
func (b *Builder) Build(ctx context.Context, text string, durationSeconds int, language string) audio.Buffer {
	speech := b.Speech(ctx, text, language)
	countdown := b.Countdown(ctx, language)

	pauseMs := max(0, int64(durationSeconds)*1000-speech.Len()-countdown.Len())
	out, err := audio.Concat(speech, audio.Silence(speech.Format(), pauseMs), countdown)
	if err != nil {
		b.logger.Warn("instruction parts disagree on format, using silence",
			zap.String("text", text), zap.Error(err))
		return audio.Silence(b.format, int64(durationSeconds)*1000)
	}

	b.logger.Debug("instruction built",
		zap.String("text", text),
		zap.Int64("speech_ms", speech.Len()),
		zap.Int64("pause_ms", pauseMs),
		zap.Int64("countdown_ms", countdown.Len()))
	return out
}

// Speech returns the memoized speech for text in language.
func (b *Builder) Speech(ctx context.Context, text, language string) audio.Buffer {
	key := speechKey{text: text, language: language}
	if buf, ok := b.cachedSpeech(key); ok {
		return buf
	}

	v, _, _ := b.group.Do("speech\x00"+language+"\x00"+text, func() (any, error) {
		if buf, ok := b.cachedSpeech(key); ok {
			return buf, nil
		}
		buf := b.tts.Synthesize(ctx, text, language)
		if ctx.Err() == nil {
			b.mu.Lock()
			b.speech[key] = buf
			b.mu.Unlock()
		}
		return buf, nil
	})
	return v.(audio.Buffer)
}

// Countdown returns the memoized countdown for language: each number from
// Start down to End, padded with silence to TickMs.
func (b *Builder) Countdown(ctx context.Context, language string) audio.Buffer {
	key := countdownKey{countdown: b.countdown, language: language}
	if buf, ok := b.cachedCountdown(key); ok {
		return buf
	}

	flight := "countdown\x00" + language
	v, _, _ := b.group.Do(flight, func() (any, error) {
		if buf, ok := b.cachedCountdown(key); ok {
			return buf, nil
		}

		out := audio.Silence(b.format, 0)
		for n := b.countdown.Start; n >= b.countdown.End; n-- {
			tick := b.Speech(ctx, strconv.Itoa(n), language)
			pad := max(0, b.countdown.TickMs-tick.Len())
			out = out.Append(tick).Append(audio.Silence(tick.Format(), pad))
		}

		if ctx.Err() == nil {
			b.mu.Lock()
			b.countdowns[key] = out
			b.mu.Unlock()
		}
		return out, nil
	})
	return v.(audio.Buffer)
}

func (b *Builder) cachedSpeech(key speechKey) (audio.Buffer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.speech[key]
	return buf, ok
}

func (b *Builder) cachedCountdown(key countdownKey) (audio.Buffer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.countdowns[key]
	return buf, ok
}
