package mix

import (
	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/audio"
	"github.com/alnah/go-workout/internal/loudness"
)

// DefaultTrackLoudness is the level every track is brought to before a
// multi-track merge, so no single source dominates the bed.
const DefaultTrackLoudness = -23.0

// normalizer levels a buffer to a target loudness.
type normalizer interface {
	Normalize(buf audio.Buffer, targetLUFS float64) audio.Buffer
}

var _ normalizer = (*loudness.Normalizer)(nil)

// Mixer merges background tracks into one bed of a target duration.
type Mixer struct {
	norm        normalizer
	crossfadeMs int64
	trackLUFS   float64
	logger      *zap.Logger
}

// Option configures a Mixer.
type Option func(*Mixer)

// WithNormalizer sets the normalizer used to level tracks before merging.
func WithNormalizer(n normalizer) Option {
	return func(m *Mixer) { m.norm = n }
}

// WithCrossfade sets the crossfade used at loop seams and segment boundaries.
func WithCrossfade(ms int64) Option {
	return func(m *Mixer) {
		if ms >= 0 {
			m.crossfadeMs = ms
		}
	}
}

// WithTrackLoudness sets the per-track level applied in multi-track merges.
func WithTrackLoudness(lufs float64) Option {
	return func(m *Mixer) { m.trackLUFS = lufs }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mixer) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMixer creates a Mixer with a 2 s crossfade and -23 LUFS track level.
func NewMixer(opts ...Option) *Mixer {
	m := &Mixer{
		crossfadeMs: DefaultCrossfadeMs,
		trackLUFS:   DefaultTrackLoudness,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.norm == nil {
		m.norm = loudness.NewNormalizer(loudness.WithLogger(m.logger))
	}
	return m
}

// Merge returns a bed of exactly durationMs milliseconds.
//
// No tracks yields silence. A single track is looped to the duration.
// Several tracks are each leveled, then given an equal share of the
// duration in order, adjacent shares joined by a crossfade. The last share
// absorbs the remainder of the division.
func (m *Mixer) Merge(tracks []audio.Buffer, durationMs int64) audio.Buffer {
	switch len(tracks) {
	case 0:
		return audio.Silence(audio.Default, durationMs)
	case 1:
		return LoopToDuration(tracks[0], durationMs, m.crossfadeMs)
	}

	share := durationMs / int64(len(tracks))
	var bed audio.Buffer
	var position int64
	for i, track := range tracks {
		segment := share
		if i == len(tracks)-1 {
			segment = durationMs - position
		}

		leveled := m.norm.Normalize(track, m.trackLUFS)
		looped := LoopToDuration(leveled, segment+m.crossfadeMs, m.crossfadeMs)
		if i == 0 {
			bed = looped
		} else {
			bed = bed.Head(position).AppendCrossfade(looped, m.crossfadeMs)
		}
		position += segment

		m.logger.Debug("placed background track",
			zap.Int("track", i),
			zap.Int64("segment_ms", segment),
			zap.Int64("source_ms", track.Len()))
	}

	return fit(bed, durationMs)
}
