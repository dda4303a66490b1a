package gofu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/gofu-framework/gofu/middleware"
)

// DefaultErrorHandler builds the error handler installed when the
// server block declares none. It logs the failure, then answers JSON
// for requests accepting it and plain text otherwise. In production
// the detail of 5xx errors is hidden from clients.
func DefaultErrorHandler(logger *slog.Logger, production bool) func(*Context, error) error {
	return func(c *Context, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		fields := []any{
			"error", err,
			"method", c.Method(),
			"path", c.Path(),
			"status", code,
		}
		if id := middleware.RequestIDFrom(c.Ctx); id != "" {
			fields = append(fields, "request_id", id)
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}

		message := err.Error()
		if production && code >= fiber.StatusInternalServerError {
			message = "internal server error"
		}

		if c.Accepts(fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON {
			return c.Status(code).JSON(fiber.Map{
				"error":   ErrorCodeName(code),
				"message": message,
			})
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(code).SendString(fmt.Sprintf("%d %s: %s", code, ErrorCodeName(code), message))
	}
}

// ErrorCodeName maps a status code to the stable error name used in
// JSON error bodies.
func ErrorCodeName(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusNotAcceptable:
		return "not_acceptable"
	case fiber.StatusConflict:
		return "conflict"
	case fiber.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case fiber.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case fiber.StatusTooManyRequests:
		return "too_many_requests"
	case fiber.StatusInternalServerError:
		return "internal_server_error"
	case fiber.StatusBadGateway:
		return "bad_gateway"
	case fiber.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return fmt.Sprintf("error_%d", code)
	}
}
