// Package server exposes workout generation over HTTP.
//
//	POST /workout  JSON plan in, audio/mpeg out
//	GET  /health   liveness
package server

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/audio"
	"github.com/alnah/go-workout/internal/telemetry"
	"github.com/alnah/go-workout/internal/workout"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// shutdownTimeout bounds in-flight requests once the context is cancelled.
const shutdownTimeout = 30 * time.Second

// maxBodyBytes caps a request body; plans are small JSON documents.
const maxBodyBytes = 1 << 20

// generator renders a validated plan.
type generator interface {
	Generate(ctx context.Context, plan workout.Plan) audio.Buffer
}

// encoder turns the rendered workout into MP3 bytes.
type encoder interface {
	Encode(ctx context.Context, buf audio.Buffer, w io.Writer) error
}

// Dependencies are the collaborators NewApp wires into handlers.
type Dependencies struct {
	Composer generator
	Encoder  encoder
	Metrics  *telemetry.Metrics
	Logger   *zap.Logger

	// Tracing adds the OpenTelemetry middleware.
	Tracing bool

	// AccessLog receives one line per request. Nil disables access logging.
	AccessLog io.Writer
}

// NewApp builds the fiber application with its middleware and routes.
func NewApp(deps Dependencies) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-workout",
		BodyLimit:             maxBodyBytes,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	app.Use(recover.New())
	if deps.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: deps.AccessLog}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	if deps.Tracing {
		app.Use(telemetry.FiberMiddleware())
	}

	h := &workoutHandler{
		composer: deps.Composer,
		encoder:  deps.Encoder,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
	app.Get("/health", h.Health)
	app.Post("/workout", h.Generate)

	return app
}

// Run serves app on addr until ctx is cancelled, then drains in-flight
// requests for up to 30 seconds.
func Run(ctx context.Context, app *fiber.App, addr string) error {
	errc := make(chan error, 1)
	go func() { errc <- app.Listen(addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

// errorHandler renders every error as {"detail": ...}. Client errors carry
// their message; anything else is logged and reported generically.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		detail := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			if code < fiber.StatusInternalServerError {
				detail = fe.Message
			}
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(code).JSON(fiber.Map{"detail": detail})
	}
}
