// Package middleware provides the HTTP middleware the server wires in
// by default plus the guards the security DSL mounts. Everything here
// is a plain fiber.Handler so applications can also use the pieces
// directly.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// MatchesPrefix reports whether path falls under any of the given
// prefixes. An empty prefix list matches everything.
func MatchesPrefix(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Protected limits a guard middleware to the given path prefixes.
// Requests outside the prefixes pass through untouched.
func Protected(guard fiber.Handler, prefixes ...string) fiber.Handler {
	if len(prefixes) == 0 {
		return guard
	}
	return func(c *fiber.Ctx) error {
		if !MatchesPrefix(c.Path(), prefixes) {
			return c.Next()
		}
		return guard(c)
	}
}
