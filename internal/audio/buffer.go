// Package audio holds the in-memory PCM representation shared by every stage
// of the workout pipeline, plus the ffmpeg codec used at its boundaries.
//
// A Buffer is immutable by convention: every operation returns a new Buffer
// and never mutates its receiver or arguments.
package audio

import (
	"fmt"
	"math"
	"time"
)

// Canonical format. 48 kHz gives an integral 48 frames per millisecond,
// so millisecond slicing never rounds.
const (
	SampleRate = 48000
	Channels   = 2

	// SampleWidth is the size in bytes of one sample (signed 16-bit).
	SampleWidth = 2
)

// Format describes the layout of interleaved samples.
type Format struct {
	SampleRate int
	Channels   int
}

// Default is the format expected by the encoder.
var Default = Format{SampleRate: SampleRate, Channels: Channels}

// framesFor returns the number of frames spanning ms milliseconds.
func (f Format) framesFor(ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int(ms * int64(f.SampleRate) / 1000)
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return fmt.Sprintf("%d Hz/%dch/s16", f.SampleRate, f.Channels)
}

// Buffer is decoded interleaved int16 PCM.
// The zero value is an empty buffer in the Default format.
type Buffer struct {
	format  Format
	samples []int16
}

// New wraps samples in a Buffer. The slice is copied.
// A partial trailing frame is dropped.
func New(format Format, samples []int16) Buffer {
	if format.Channels <= 0 || format.SampleRate <= 0 {
		format = Default
	}
	n := len(samples) - len(samples)%format.Channels
	out := make([]int16, n)
	copy(out, samples[:n])
	return Buffer{format: format, samples: out}
}

// wrap builds a Buffer around samples without copying.
// Callers must own samples exclusively.
func wrap(format Format, samples []int16) Buffer {
	return Buffer{format: format, samples: samples}
}

// Silence returns ms milliseconds of digital silence.
func Silence(format Format, ms int64) Buffer {
	if format.Channels <= 0 || format.SampleRate <= 0 {
		format = Default
	}
	return wrap(format, make([]int16, format.framesFor(ms)*format.Channels))
}

// Format returns the sample layout.
func (b Buffer) Format() Format {
	if b.format.Channels == 0 {
		return Default
	}
	return b.format
}

// Frames returns the number of frames (one sample per channel).
func (b Buffer) Frames() int {
	return len(b.samples) / b.Format().Channels
}

// Len returns the duration in whole milliseconds.
func (b Buffer) Len() int64 {
	f := b.Format()
	return int64(b.Frames()) * 1000 / int64(f.SampleRate)
}

// Duration returns the duration as a time.Duration.
func (b Buffer) Duration() time.Duration {
	f := b.Format()
	return time.Duration(b.Frames()) * time.Second / time.Duration(f.SampleRate)
}

// IsEmpty reports whether the buffer holds no frames.
func (b Buffer) IsEmpty() bool {
	return len(b.samples) == 0
}

// Samples returns the interleaved samples. The slice must not be modified.
func (b Buffer) Samples() []int16 {
	return b.samples
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() int {
	peak := 0
	for _, s := range b.samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Slice returns the region [startMs, endMs). Bounds are clamped.
func (b Buffer) Slice(startMs, endMs int64) Buffer {
	f := b.Format()
	start := min(f.framesFor(startMs), b.Frames())
	end := min(f.framesFor(endMs), b.Frames())
	if end < start {
		end = start
	}
	return b.sliceFrames(start, end)
}

// Head returns the first ms milliseconds.
func (b Buffer) Head(ms int64) Buffer {
	return b.Slice(0, ms)
}

// Tail returns the last ms milliseconds.
func (b Buffer) Tail(ms int64) Buffer {
	f := b.Format()
	n := min(f.framesFor(ms), b.Frames())
	return b.sliceFrames(b.Frames()-n, b.Frames())
}

// sliceFrames copies frames [start, end).
func (b Buffer) sliceFrames(start, end int) Buffer {
	ch := b.Format().Channels
	out := make([]int16, (end-start)*ch)
	copy(out, b.samples[start*ch:end*ch])
	return wrap(b.Format(), out)
}

// Append returns b followed by other.
// other must share b's format; Concat reports mismatches as errors.
func (b Buffer) Append(other Buffer) Buffer {
	out := make([]int16, 0, len(b.samples)+len(other.samples))
	out = append(out, b.samples...)
	out = append(out, other.samples...)
	return wrap(b.Format(), out)
}

// Concat joins buffers in order. All buffers must share one format.
func Concat(parts ...Buffer) (Buffer, error) {
	if len(parts) == 0 {
		return Buffer{}, nil
	}
	format := parts[0].Format()
	total := 0
	for i, p := range parts {
		if p.Format() != format {
			return Buffer{}, fmt.Errorf("part %d is %s, want %s: %w", i, p.Format(), format, ErrFormatMismatch)
		}
		total += len(p.samples)
	}
	out := make([]int16, 0, total)
	for _, p := range parts {
		out = append(out, p.samples...)
	}
	return wrap(format, out), nil
}

// Overlay mixes other on top of b starting at b's first frame.
// The result always has b's length; excess frames of other are dropped.
func (b Buffer) Overlay(other Buffer) Buffer {
	out := make([]int16, len(b.samples))
	copy(out, b.samples)
	n := min(len(out), len(other.samples))
	for i := 0; i < n; i++ {
		out[i] = clip(float64(out[i]) + float64(other.samples[i]))
	}
	return wrap(b.Format(), out)
}

// Gain scales every sample by db decibels, clipping at full scale.
// A gain of 0 returns an identical copy.
func (b Buffer) Gain(db float64) Buffer {
	out := make([]int16, len(b.samples))
	if db == 0 {
		copy(out, b.samples)
		return wrap(b.Format(), out)
	}
	factor := math.Pow(10, db/20)
	for i, s := range b.samples {
		out[i] = clip(float64(s) * factor)
	}
	return wrap(b.Format(), out)
}

// clip rounds v to the nearest int16, saturating at the type bounds.
func clip(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
