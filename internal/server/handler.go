package server

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/alnah/go-workout/internal/plan"
	"github.com/alnah/go-workout/internal/telemetry"
)

// Response headers.
const (
	HeaderWorkoutID = "X-Workout-ID"
	contentTypeMP3  = "audio/mpeg"
	attachmentName  = "workout_guide.mp3"
)

type workoutHandler struct {
	composer generator
	encoder  encoder
	metrics  *telemetry.Metrics
	logger   *zap.Logger
}

// Health reports liveness.
func (h *workoutHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Generate parses and validates the JSON plan, renders it, and streams the MP3.
// Plan problems are 400s; encoder failures are 500s.
func (h *workoutHandler) Generate(c *fiber.Ctx) error {
	start := time.Now()
	ctx := c.UserContext()
	id := ulid.Make().String()

	p, err := plan.Parse(c.Body(), plan.FormatJSON)
	if err == nil {
		err = p.Validate()
	}
	if err != nil {
		h.metrics.RecordGeneration(ctx, "invalid", time.Since(start), 0)
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	log := h.logger.With(zap.String("workout_id", id))
	log.Info("generating workout",
		zap.Int("instructions", len(p.Instructions)),
		zap.Int("total_seconds", p.TotalSeconds()),
		zap.String("language", p.Language),
		zap.Int("background_urls", len(p.Background)),
	)

	track := h.composer.Generate(ctx, p)

	var out bytes.Buffer
	if err := h.encoder.Encode(ctx, track, &out); err != nil {
		h.metrics.RecordGeneration(ctx, "error", time.Since(start), len(p.Background))
		return fmt.Errorf("workout %s: %w", id, err)
	}

	h.metrics.RecordGeneration(ctx, "ok", time.Since(start), len(p.Background))
	log.Info("workout ready",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", out.Len()),
	)

	c.Set(fiber.HeaderContentType, contentTypeMP3)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+attachmentName)
	c.Set(HeaderWorkoutID, id)
	return c.Send(out.Bytes())
}
