// Package playback plays a rendered workout on the default audio device.
package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hajimehoshi/oto"

	"github.com/alnah/go-workout/internal/audio"
)

// ErrNothingToPlay indicates an empty buffer.
var ErrNothingToPlay = errors.New("nothing to play")

// ErrDeviceUnavailable indicates the audio device could not be opened.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// DefaultChunkMs is the amount of audio written between cancellation checks.
const DefaultChunkMs = 200

// deviceBufferBytes is the oto driver buffer (about 85 ms at 48 kHz stereo).
const deviceBufferBytes = 16384

// device is an open output stream. Write blocks until the device accepts data.
type device interface {
	Write(p []byte) (int, error)
	Close() error
}

// openFn opens an output stream for a PCM layout.
type openFn func(f audio.Format) (device, error)

// Player writes buffers to an output device.
type Player struct {
	open     openFn
	chunkMs  int64
	progress func(played, total time.Duration)
}

// Option configures a Player.
type Option func(*Player)

// WithOpener sets a custom device opener (for testing).
func WithOpener(fn openFn) Option {
	return func(p *Player) { p.open = fn }
}

// WithChunk sets how much audio is written per device call.
func WithChunk(ms int64) Option {
	return func(p *Player) {
		if ms > 0 {
			p.chunkMs = ms
		}
	}
}

// WithProgress registers a callback invoked after each chunk.
func WithProgress(fn func(played, total time.Duration)) Option {
	return func(p *Player) { p.progress = fn }
}

// NewPlayer creates a Player on the system audio device.
func NewPlayer(opts ...Option) *Player {
	p := &Player{open: openOto, chunkMs: DefaultChunkMs}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play blocks until buf has been written or ctx is cancelled.
// Cancellation is not an error: the caller asked to stop.
func (p *Player) Play(ctx context.Context, buf audio.Buffer) error {
	if buf.IsEmpty() {
		return ErrNothingToPlay
	}
	dev, err := p.open(buf.Format())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer func() { _ = dev.Close() }()

	total := buf.Duration()
	for start := int64(0); start < buf.Len(); start += p.chunkMs {
		if ctx.Err() != nil {
			return nil
		}
		chunk := buf.Slice(start, start+p.chunkMs)
		if _, err := dev.Write(audio.SamplesToBytes(chunk.Samples())); err != nil {
			return fmt.Errorf("write to audio device: %w", err)
		}
		if p.progress != nil {
			p.progress(min(time.Duration(start+p.chunkMs)*time.Millisecond, total), total)
		}
	}
	return nil
}

// otoDevice owns both the oto context and its player; oto v1 allows a
// single context per process, so each Play opens and closes its own.
type otoDevice struct {
	ctx    *oto.Context
	player *oto.Player
}

func openOto(f audio.Format) (device, error) {
	ctx, err := oto.NewContext(f.SampleRate, f.Channels, 2, deviceBufferBytes)
	if err != nil {
		return nil, err
	}
	return &otoDevice{ctx: ctx, player: ctx.NewPlayer()}, nil
}

func (d *otoDevice) Write(p []byte) (int, error) {
	return d.player.Write(p)
}

func (d *otoDevice) Close() error {
	return errors.Join(d.player.Close(), d.ctx.Close())
}
