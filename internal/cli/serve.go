package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/server"
	"github.com/alnah/go-workout/internal/telemetry"
	"github.com/alnah/go-workout/internal/tools"
)

// serviceName identifies the HTTP service in telemetry.
const serviceName = "go-workout"

// ServeCmd creates the serve command.
func ServeCmd(env *Env) *cobra.Command {
	var (
		addr    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve workout generation over HTTP",
		Long: `Serve workout generation over HTTP.

  POST /workout  JSON plan in, audio/mpeg out
  GET  /health   liveness

Traces and metrics are exported over OTLP/HTTP when
OTEL_EXPORTER_OTLP_ENDPOINT is set.`,
		Example: `  workout serve
  workout serve --addr 127.0.0.1:9000
  curl -X POST localhost:8080/workout -d '{"instructions":[{"text":"Plank","duration_seconds":30}]}' -o plank.mp3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), env, addr, verbose)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "Listen address")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

// runServe wires the pipeline into the HTTP app and serves until SIGINT/SIGTERM.
func runServe(parentCtx context.Context, env *Env, addr string, verbose bool) error {
	ctx, stop := signal.NotifyContext(parentCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newServerLogger(env.Stderr, verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		logger.Warn("config not loaded", zap.Error(err))
	}

	ffmpegPath, err := env.ToolResolver.Resolve(ctx, tools.FFmpeg)
	if err != nil {
		return err
	}
	env.ToolResolver.CheckVersion(ctx, ffmpegPath)

	apiKey := env.Getenv(EnvOpenAIAPIKey)
	espeakPath, err := env.ToolResolver.Resolve(ctx, tools.Espeak)
	if err != nil {
		logger.Debug("espeak unavailable", zap.Error(err))
		espeakPath = ""
	}
	ytdlpPath, err := env.ToolResolver.Resolve(ctx, tools.YtDlp)
	if err != nil {
		logger.Warn("yt-dlp unavailable, using the Invidious API only", zap.Error(err))
		ytdlpPath = ""
	}

	pipeline, err := env.PipelineFactory.NewPipeline(ctx, PipelineOptions{
		FFmpegPath: ffmpegPath,
		YtDlpPath:  ytdlpPath,
		EspeakPath: espeakPath,
		APIKey:     apiKey,
		CacheURL:   cfg.CacheURL,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	tcfg := telemetry.ConfigFromEnv(env.Getenv, serviceName, env.Version)
	provider, err := telemetry.Initialize(ctx, tcfg, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	app := server.NewApp(server.Dependencies{
		Composer:  pipeline.Generator,
		Encoder:   pipeline.Codec,
		Metrics:   metrics,
		Logger:    logger,
		Tracing:   tcfg.Enabled(),
		AccessLog: env.Stderr,
	})

	logger.Info("listening",
		zap.String("addr", addr),
		zap.Strings("strategies", pipeline.Strategies),
		zap.Bool("telemetry", tcfg.Enabled()),
	)
	return env.Serve(ctx, app, addr)
}
