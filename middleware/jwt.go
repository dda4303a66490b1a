package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gofu-framework/gofu/security"
)

// ClaimsContextKey is the locals key the validated claims are stored
// under.
const ClaimsContextKey = "claims"

// JWT creates a bearer token guard validating HS256 tokens from the
// Authorization header. Valid claims are exposed to handlers via
// ClaimsFrom.
func JWT(secret []byte) fiber.Handler {
	return JWTWithMethods(secret, []string{security.DefaultSigningMethod.Alg()})
}

// JWTWithMethods creates a bearer token guard restricted to the named
// signing methods.
func JWTWithMethods(secret []byte, methods []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c, "bearer token required")
		}

		claims, err := security.ParseTokenWithMethods(secret, token, methods)
		if err != nil {
			return unauthorized(c, "invalid token")
		}

		c.Locals(ClaimsContextKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by the JWT guard, or nil when
// the request did not pass through it.
func ClaimsFrom(c *fiber.Ctx) jwt.MapClaims {
	if claims, ok := c.Locals(ClaimsContextKey).(jwt.MapClaims); ok {
		return claims
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": message,
	})
}
