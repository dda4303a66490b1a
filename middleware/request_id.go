package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// RequestIDContextKey is the locals key the request id is stored
// under.
const RequestIDContextKey = "requestid"

// RequestIDHeader is the response header carrying the request id.
const RequestIDHeader = fiber.HeaderXRequestID

// RequestID tags every request with a UUID, echoing an incoming
// X-Request-ID when the client already set one.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     RequestIDHeader,
		ContextKey: RequestIDContextKey,
		Generator:  uuid.NewString,
	})
}

// RequestIDFrom returns the request id assigned by RequestID, or ""
// when the middleware is not mounted.
func RequestIDFrom(c *fiber.Ctx) string {
	if id, ok := c.Locals(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}
