package middleware

import (
	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
)

// Recover creates a panic recovery middleware with stack traces
// enabled. A panicking handler produces a 500 instead of tearing down
// the connection.
func Recover() fiber.Handler {
	return fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	})
}
