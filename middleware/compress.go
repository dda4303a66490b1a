package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
)

// Compress creates a response compression middleware honoring the
// client's Accept-Encoding (gzip, deflate, brotli).
func Compress() fiber.Handler {
	return compress.New(compress.Config{
		Level: compress.LevelDefault,
	})
}
