package middleware

import (
	"encoding/base64"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofu-framework/gofu/security"
)

func basicAuthApp(t *testing.T) *fiber.App {
	t.Helper()
	hash, err := security.HashPassword("s3cret")
	require.NoError(t, err)

	app := fiber.New()
	app.Use(BasicAuth("admin area", map[string]string{"alice": hash}))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(BasicAuthUserContextKey).(string))
	})
	return app
}

func TestBasicAuth(t *testing.T) {
	t.Run("rejects missing credentials", func(t *testing.T) {
		app := basicAuthApp(t)

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, resp.Header.Get(fiber.HeaderWWWAuthenticate), "admin area")
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		app := basicAuthApp(t)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(fiber.HeaderAuthorization, basicHeader("alice", "wrong"))

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects an unknown user", func(t *testing.T) {
		app := basicAuthApp(t)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(fiber.HeaderAuthorization, basicHeader("mallory", "s3cret"))

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("accepts valid credentials and exposes the user", func(t *testing.T) {
		app := basicAuthApp(t)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(fiber.HeaderAuthorization, basicHeader("alice", "s3cret"))

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := make([]byte, 5)
		_, _ = resp.Body.Read(body)
		assert.Equal(t, "alice", string(body))
	})
}

func basicHeader(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func jwtApp(secret []byte) *fiber.App {
	app := fiber.New()
	app.Use(JWT(secret))
	app.Get("/", func(c *fiber.Ctx) error {
		claims := ClaimsFrom(c)
		if claims == nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(claims["sub"].(string))
	})
	return app
}

func TestJWT(t *testing.T) {
	secret := []byte("jwt-secret")

	t.Run("rejects a missing header", func(t *testing.T) {
		app := jwtApp(secret)

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects a malformed header", func(t *testing.T) {
		app := jwtApp(secret)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Token abc")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		app := jwtApp(secret)

		forged, err := security.SignToken([]byte("other-secret"), "user", time.Minute, nil)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+forged)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		app := jwtApp(secret)

		expired, err := security.SignToken(secret, "user", -time.Minute, nil)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+expired)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("accepts a valid token and exposes claims", func(t *testing.T) {
		app := jwtApp(secret)

		token, err := security.SignToken(secret, "user-42", time.Minute, map[string]any{"role": "admin"})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := make([]byte, 7)
		_, _ = resp.Body.Read(body)
		assert.Equal(t, "user-42", string(body))
	})
}
