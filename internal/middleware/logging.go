// Package middleware holds the Fiber middleware shared by every route.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const localRequestID = "requestID"

// Logging assigns every request an ID and logs it once it completes.
func Logging() fiber.Handler {
	log := slog.Default().With("component", "http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		id := c.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(localRequestID, id)
		c.Set(RequestIDHeader, id)

		// Fiber reuses ctx buffers; copy before the handler runs.
		method := utils.CopyString(c.Method())
		path := utils.CopyString(c.Path())

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		attrs := []any{
			"request_id", id,
			"method", method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if uid := UserID(c); uid != "" {
			attrs = append(attrs, "user_id", uid)
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed", append(attrs, "error", err)...)
		} else {
			log.Info("request", attrs...)
		}
		return err
	}
}

// RequestID returns the ID assigned by Logging, or "".
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}
