package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gofu-framework/gofu/logging"
)

// RequestLogger emits one structured log line per request. Server
// errors log at error level, client errors at warn, the rest at info.
// Health check endpoints (/_health) are not logged to reduce noise.
func RequestLogger(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		stop := time.Since(start)

		path := c.Path()
		if strings.HasPrefix(path, "/_health") {
			return err
		}

		status := c.Response().StatusCode()
		fields := []any{
			"method", c.Method(),
			"path", path,
			"status", status,
			"duration", stop,
			"ip", c.IP(),
			"bytes", len(c.Response().Body()),
		}
		if id := RequestIDFrom(c); id != "" {
			fields = append(fields, "request_id", id)
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("http request", fields...)
		case status >= fiber.StatusBadRequest:
			logger.Warn("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}

		return err
	}
}
