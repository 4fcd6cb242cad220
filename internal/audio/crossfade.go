package audio

// Smoothstep returns 3t² - 2t³ for t clamped to [0,1].
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// AppendCrossfade returns b followed by other, with the last crossfadeMs of b
// blended into the first crossfadeMs of other. The result is
// len(b) + len(other) - crossfade long.
//
// The crossfade is clamped to the shorter of the two buffers. A crossfade of
// zero is a plain Append.
func (b Buffer) AppendCrossfade(other Buffer, crossfadeMs int64) Buffer {
	n := b.Format().framesFor(crossfadeMs)
	n = min(n, b.Frames(), other.Frames())
	if n <= 0 {
		return b.Append(other)
	}

	out := make([]int16, 0, len(b.samples)+len(other.samples)-n*b.Format().Channels)
	out = append(out, b.samples...)
	return wrap(b.Format(), appendBlended(out, other.samples, n, b.Format().Channels))
}

// Repeat joins b to itself with crossfadeMs seams until the result is at
// least minMs long. The crossfade is clamped to half of b.
// Repeating an empty buffer returns an empty buffer.
func (b Buffer) Repeat(minMs int64, crossfadeMs int64) Buffer {
	f := b.Format()
	want := f.framesFor(minMs)
	if b.IsEmpty() || b.Frames() >= want {
		return b.sliceFrames(0, b.Frames())
	}

	n := min(f.framesFor(crossfadeMs), b.Frames()/2)
	out := make([]int16, 0, (want+b.Frames())*f.Channels)
	out = append(out, b.samples...)
	for len(out)/f.Channels < want {
		out = appendBlended(out, b.samples, n, f.Channels)
	}
	return wrap(f, out)
}

// appendBlended overlaps the last n frames of dst with the first n frames of
// src using a smoothstep fade, then appends the rest of src.
func appendBlended(dst, src []int16, n, ch int) []int16 {
	if n > 0 {
		tail := dst[len(dst)-n*ch:]
		for f := 0; f < n; f++ {
			gain := Smoothstep(float64(f) / float64(n))
			for c := 0; c < ch; c++ {
				i := f*ch + c
				tail[i] = clip(float64(tail[i])*(1-gain) + float64(src[i])*gain)
			}
		}
	}
	return append(dst, src[n*ch:]...)
}
