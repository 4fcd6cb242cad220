package cli

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/audio"
	"github.com/alnah/go-workout/internal/fetch"
	"github.com/alnah/go-workout/internal/instruction"
	"github.com/alnah/go-workout/internal/speech"
	"github.com/alnah/go-workout/internal/storage"
	"github.com/alnah/go-workout/internal/tools"
	"github.com/alnah/go-workout/internal/workout"
)

// Generator renders workouts. Satisfied by *workout.Composer.
type Generator interface {
	Generate(ctx context.Context, plan workout.Plan) audio.Buffer
	BuildGuide(ctx context.Context, instructions []workout.Instruction, language string) audio.Buffer
	AddBackground(ctx context.Context, guide audio.Buffer, urls []string) audio.Buffer
}

// Codec decodes media files and encodes the final MP3. Satisfied by *audio.Codec.
type Codec interface {
	Encode(ctx context.Context, buf audio.Buffer, w io.Writer) error
	DecodeFile(ctx context.Context, path string) (audio.Buffer, error)
}

// PipelineOptions carries the resolved tools and credentials.
type PipelineOptions struct {
	FFmpegPath string
	YtDlpPath  string // empty disables the yt-dlp strategies
	EspeakPath string // empty disables offline speech
	APIKey     string
	CacheURL   string // redis URL; empty disables the track cache
	Logger     *zap.Logger
}

// Pipeline is a ready-to-use generator with its codec.
type Pipeline struct {
	Generator Generator
	Codec     Codec

	// Strategies names the acquisition strategies in the order they are tried.
	Strategies []string

	closers []func() error
}

// Close releases connections opened by the pipeline.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, c := range p.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// defaultPipelineFactory wires the real packages together.
type defaultPipelineFactory struct{}

func (defaultPipelineFactory) NewCodec(ffmpegPath string) Codec {
	return audio.NewCodec(ffmpegPath)
}

func (defaultPipelineFactory) NewPipeline(ctx context.Context, opts PipelineOptions) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engines := speech.DefaultEngines(opts.APIKey, opts.EspeakPath)
	if len(engines) == 0 {
		return nil, fmt.Errorf("%w: %w (or install espeak)", ErrNoSpeechEngine, speech.ErrAPIKeyMissing)
	}

	codec := audio.NewCodec(opts.FFmpegPath)
	p := &Pipeline{Codec: codec}

	caps := fetch.Probe(ctx, tools.NewExecutor(), opts.YtDlpPath)
	strategies := fetch.NewStrategies(caps, codec, fetch.WithStrategyLogger(logger))

	engineOpts := []fetch.EngineOption{fetch.WithLogger(logger)}
	if opts.CacheURL != "" {
		client, err := storage.OpenRedis(ctx, opts.CacheURL)
		if err != nil {
			logger.Warn("track cache disabled", zap.Error(err))
		} else {
			engineOpts = append(engineOpts, fetch.WithCache(storage.NewRedisCache(client), codec))
			p.closers = append(p.closers, client.Close)
		}
	}
	engine := fetch.NewEngine(strategies, engineOpts...)
	p.Strategies = engine.Strategies()

	synth := speech.NewSynthesizer(codec, engines, speech.WithLogger(logger))
	builder := instruction.NewBuilder(synth, instruction.WithLogger(logger))
	p.Generator = workout.NewComposer(builder,
		workout.WithFetcher(engine),
		workout.WithLogger(logger),
	)
	return p, nil
}

// Compile-time interface verification.
var (
	_ Generator = (*workout.Composer)(nil)
	_ Codec     = (*audio.Codec)(nil)
)
