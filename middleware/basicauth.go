package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/gofu-framework/gofu/security"
)

// BasicAuthUserContextKey is the locals key carrying the authenticated
// username.
const BasicAuthUserContextKey = "username"

// BasicAuth creates an HTTP Basic Auth guard. The users map holds
// bcrypt hashes, never plaintext passwords; build it with
// security.HashPassword.
func BasicAuth(realm string, users map[string]string) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: realm,
		Authorizer: func(user, password string) bool {
			hash, ok := users[user]
			if !ok {
				return false
			}
			return security.VerifyPassword(hash, password)
		},
		ContextUsername: BasicAuthUserContextKey,
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="`+realm+`"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "valid credentials required",
			})
		},
	})
}
