package loudness

import (
	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/audio"
)

// Normalizer applies gain to reach a target integrated loudness.
type Normalizer struct {
	logger *zap.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for measurement warnings.
func WithLogger(l *zap.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns buf scaled so its integrated loudness equals targetLUFS.
//
// The gain is uniform with no limiter: samples pushed past full scale
// saturate in audio.Buffer.Gain. Silent input is returned unchanged. When loudness cannot be measured the
// input is returned unchanged and a warning is logged.
func (n *Normalizer) Normalize(buf audio.Buffer, targetLUFS float64) audio.Buffer {
	if buf.Peak() == 0 {
		return buf
	}

	measured, err := Integrated(buf)
	if err != nil {
		n.logger.Warn("loudness measurement failed, leaving level unchanged",
			zap.Int64("duration_ms", buf.Len()),
			zap.Error(err))
		return buf
	}

	gain := targetLUFS - measured
	n.logger.Debug("normalizing",
		zap.Float64("measured_lufs", measured),
		zap.Float64("target_lufs", targetLUFS),
		zap.Float64("gain_db", gain))
	return buf.Gain(gain)
}
