// Package mix fits background tracks to an exact duration: looping a single
// clip with crossfaded seams and distributing several clips across a bed.
package mix

import "github.com/alnah/go-workout/internal/audio"

// DefaultCrossfadeMs is the overlap used at loop seams and segment boundaries.
const DefaultCrossfadeMs = 2000

// LoopToDuration returns exactly targetMs milliseconds built from buf.
//
// A source at least targetMs long is truncated. A shorter source is repeated,
// each repetition joined with a smoothstep crossfade of
// min(crossfadeMs, len(buf)/2), then trimmed. An empty source yields silence.
func LoopToDuration(buf audio.Buffer, targetMs, crossfadeMs int64) audio.Buffer {
	if targetMs <= 0 {
		return audio.Silence(buf.Format(), 0)
	}
	if buf.IsEmpty() {
		return audio.Silence(buf.Format(), targetMs)
	}
	if buf.Len() >= targetMs {
		return buf.Head(targetMs)
	}
	return fit(buf.Repeat(targetMs, crossfadeMs), targetMs)
}

// fit trims b or pads it with trailing silence to exactly targetMs.
func fit(b audio.Buffer, targetMs int64) audio.Buffer {
	if b.Len() >= targetMs {
		return b.Head(targetMs)
	}
	return b.Append(audio.Silence(b.Format(), targetMs-b.Len()+1)).Head(targetMs)
}
