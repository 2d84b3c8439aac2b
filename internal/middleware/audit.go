package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionIDKey is the fiber local a handler sets to tag the audit entry with
// the screen session it served.
const SessionIDKey = "session_id"

// Audit emits structured logs for each request/response lifecycle event.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
		duration := time.Since(start)
		requestID, _ := c.Locals(requestIDHeader).(string)
		sessionID, _ := c.Locals(SessionIDKey).(string)

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		}
		if requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if sessionID != "" {
			attrs = append(attrs, slog.String("session_id", sessionID))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			if status < fiber.StatusInternalServerError {
				logger.Warn("request completed", attrs...)
				return err
			}
			logger.Error("request completed", attrs...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}
