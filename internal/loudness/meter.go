// Package loudness measures integrated loudness (ITU-R BS.1770-4, EBU R128)
// and applies gain so a buffer reaches a target level in LUFS.
package loudness

import (
	"fmt"
	"math"

	"github.com/alnah/go-workout/internal/audio"
)

// Gating constants from BS.1770-4.
const (
	blockMs          = 400
	stepMs           = 100 // 75 % overlap
	absoluteGateLUFS = -70.0
	relativeGateLU   = -10.0

	// loudnessOffset calibrates K-weighted mean square to LUFS.
	loudnessOffset = -0.691
)

// biquad is a direct form I second-order IIR section with normalized coefficients.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func (q *biquad) process(x float64) float64 {
	y := q.b0*x + q.b1*q.x1 + q.b2*q.x2 - q.a1*q.y1 - q.a2*q.y2
	q.x2, q.x1 = q.x1, x
	q.y2, q.y1 = q.y1, y
	return y
}

// shelf returns the K-weighting pre-filter, a +4 dB high shelf near 1.7 kHz.
// At 48 kHz the coefficients equal the BS.1770 reference table.
func shelf(rate float64) *biquad {
	const (
		gainDB = 3.999843853973347
		fc     = 1681.974450955533
		q      = 0.7071752369554196
	)
	k := math.Tan(math.Pi * fc / rate)
	vh := math.Pow(10, gainDB/20)
	vb := math.Pow(vh, 0.4996667741545416)
	a0 := 1 + k/q + k*k
	return &biquad{
		b0: (vh + vb*k/q + k*k) / a0,
		b1: 2 * (k*k - vh) / a0,
		b2: (vh - vb*k/q + k*k) / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}
}

// highpass returns the RLB weighting filter, a second-order high-pass at 38 Hz.
func highpass(rate float64) *biquad {
	const (
		fc = 38.13547087602444
		q  = 0.5003270373238773
	)
	k := math.Tan(math.Pi * fc / rate)
	a0 := 1 + k/q + k*k
	return &biquad{
		b0: 1,
		b1: -2,
		b2: 1,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}
}

// Integrated returns the gated integrated loudness of buf in LUFS,
// measured on the mono downmix.
//
// Returns ErrTooShort when buf is shorter than one 400 ms block and
// ErrNoSignal when every block falls below the absolute gate.
func Integrated(buf audio.Buffer) (float64, error) {
	f := buf.Format()
	blockFrames := f.SampleRate * blockMs / 1000
	stepFrames := f.SampleRate * stepMs / 1000
	if buf.Frames() < blockFrames {
		return 0, fmt.Errorf("%dms < %dms: %w", buf.Len(), blockMs, ErrTooShort)
	}

	weighted := kWeightedSquares(buf)

	// Prefix sums give each overlapping block's mean square in O(1).
	prefix := make([]float64, len(weighted)+1)
	for i, v := range weighted {
		prefix[i+1] = prefix[i] + v
	}

	var powers []float64
	for start := 0; start+blockFrames <= len(weighted); start += stepFrames {
		z := (prefix[start+blockFrames] - prefix[start]) / float64(blockFrames)
		if blockLoudness(z) > absoluteGateLUFS {
			powers = append(powers, z)
		}
	}
	if len(powers) == 0 {
		return 0, ErrNoSignal
	}

	relativeGate := blockLoudness(mean(powers)) + relativeGateLU
	var gated []float64
	for _, z := range powers {
		if blockLoudness(z) > relativeGate {
			gated = append(gated, z)
		}
	}
	if len(gated) == 0 {
		return 0, ErrNoSignal
	}

	return blockLoudness(mean(gated)), nil
}

// kWeightedSquares downmixes buf to mono, applies K-weighting and returns
// the squared filtered samples in full-scale units.
func kWeightedSquares(buf audio.Buffer) []float64 {
	f := buf.Format()
	rate := float64(f.SampleRate)
	pre, rlb := shelf(rate), highpass(rate)

	samples := buf.Samples()
	out := make([]float64, buf.Frames())
	for i := range out {
		var sum float64
		for c := 0; c < f.Channels; c++ {
			sum += float64(samples[i*f.Channels+c])
		}
		x := sum / float64(f.Channels) / 32768
		y := rlb.process(pre.process(x))
		out[i] = y * y
	}
	return out
}

func blockLoudness(z float64) float64 {
	if z <= 0 {
		return math.Inf(-1)
	}
	return loudnessOffset + 10*math.Log10(z)
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
