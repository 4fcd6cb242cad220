package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/alnah/go-workout/internal/audio"
	"github.com/alnah/go-workout/internal/config"
	"github.com/alnah/go-workout/internal/interrupt"
	"github.com/alnah/go-workout/internal/playback"
	"github.com/alnah/go-workout/internal/server"
	"github.com/alnah/go-workout/internal/storage"
	"github.com/alnah/go-workout/internal/tools"
)

// EnvOpenAIAPIKey enables OpenAI speech when set.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stderr  io.Writer
	Stdout  io.Writer
	Getenv  func(string) string
	Now     func() time.Time
	Version string

	// Factories for domain objects
	ToolResolver     ToolResolver
	ConfigLoader     ConfigLoader
	PipelineFactory  PipelineFactory
	UploaderFactory  UploaderFactory
	PlayerFactory    PlayerFactory
	InterruptFactory InterruptFactory

	// Serve runs the HTTP app until ctx is cancelled.
	Serve func(ctx context.Context, app *fiber.App, addr string) error
}

// ToolResolver locates external binaries.
type ToolResolver interface {
	Resolve(ctx context.Context, tool tools.Tool) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// PipelineFactory assembles the generation pipeline.
type PipelineFactory interface {
	NewPipeline(ctx context.Context, opts PipelineOptions) (*Pipeline, error)
	NewCodec(ffmpegPath string) Codec
}

// Uploader publishes finished workouts.
type Uploader interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, key string, data []byte) (string, error)
}

// UploaderFactory creates uploaders for a bucket.
type UploaderFactory interface {
	NewUploader(ctx context.Context, cfg storage.S3Config) (Uploader, error)
}

// Player plays a rendered workout on the default output device.
type Player interface {
	Play(ctx context.Context, buf audio.Buffer) error
}

// PlayerFactory creates players reporting progress through fn.
type PlayerFactory interface {
	NewPlayer(progress func(played, total time.Duration)) Player
}

// InterruptHandler tracks Ctrl+C presses during generation.
type InterruptHandler interface {
	Interrupted() bool
	Decide() interrupt.Decision
	Stop()
}

// InterruptFactory installs an interrupt handler and returns the context it cancels.
type InterruptFactory func(ctx context.Context) (InterruptHandler, context.Context)

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithVersion sets the version reported by telemetry and the server.
func WithVersion(v string) EnvOption {
	return func(e *Env) {
		e.Version = v
	}
}

// WithToolResolver sets the tool resolver.
func WithToolResolver(r ToolResolver) EnvOption {
	return func(e *Env) {
		e.ToolResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithPipelineFactory sets the pipeline factory.
func WithPipelineFactory(f PipelineFactory) EnvOption {
	return func(e *Env) {
		e.PipelineFactory = f
	}
}

// WithUploaderFactory sets the uploader factory.
func WithUploaderFactory(f UploaderFactory) EnvOption {
	return func(e *Env) {
		e.UploaderFactory = f
	}
}

// WithPlayerFactory sets the player factory.
func WithPlayerFactory(f PlayerFactory) EnvOption {
	return func(e *Env) {
		e.PlayerFactory = f
	}
}

// WithInterruptFactory sets the interrupt handler factory.
func WithInterruptFactory(f InterruptFactory) EnvOption {
	return func(e *Env) {
		e.InterruptFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:           os.Stderr,
		Stdout:           os.Stdout,
		Getenv:           os.Getenv,
		Now:              time.Now,
		Version:          "dev",
		ToolResolver:     &defaultToolResolver{},
		ConfigLoader:     &defaultConfigLoader{},
		PipelineFactory:  &defaultPipelineFactory{},
		UploaderFactory:  &defaultUploaderFactory{},
		PlayerFactory:    &defaultPlayerFactory{},
		InterruptFactory: defaultInterruptFactory,
		Serve:            server.Run,
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultToolResolver implements ToolResolver using the tools package.
type defaultToolResolver struct{}

func (defaultToolResolver) Resolve(ctx context.Context, tool tools.Tool) (string, error) {
	return tools.Resolve(ctx, tool)
}

func (defaultToolResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	tools.NewVersionChecker().Check(ctx, ffmpegPath)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultUploaderFactory implements UploaderFactory with S3.
type defaultUploaderFactory struct{}

func (defaultUploaderFactory) NewUploader(ctx context.Context, cfg storage.S3Config) (Uploader, error) {
	return storage.NewUploader(ctx, cfg)
}

// defaultPlayerFactory implements PlayerFactory with the system audio device.
type defaultPlayerFactory struct{}

func (defaultPlayerFactory) NewPlayer(progress func(played, total time.Duration)) Player {
	return playback.NewPlayer(playback.WithProgress(progress))
}

func defaultInterruptFactory(ctx context.Context) (InterruptHandler, context.Context) {
	return interrupt.NewHandler(ctx)
}

// Compile-time interface verification.
var (
	_ ToolResolver     = (*defaultToolResolver)(nil)
	_ ConfigLoader     = (*defaultConfigLoader)(nil)
	_ PipelineFactory  = (*defaultPipelineFactory)(nil)
	_ UploaderFactory  = (*defaultUploaderFactory)(nil)
	_ PlayerFactory    = (*defaultPlayerFactory)(nil)
	_ InterruptHandler = (*interrupt.Handler)(nil)
	_ Uploader         = (*storage.Uploader)(nil)
	_ Player           = (*playback.Player)(nil)
)
