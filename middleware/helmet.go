package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
)

// Helmet creates a security headers middleware. It sets the usual
// hardening headers (nosniff, frame denial, referrer policy) on every
// response.
func Helmet() fiber.Handler {
	return helmet.New(helmet.Config{
		ReferrerPolicy: "same-origin",
	})
}

// HelmetWithConfig creates a Helmet middleware with custom headers.
func HelmetWithConfig(config helmet.Config) fiber.Handler {
	return helmet.New(config)
}
