package middleware

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level  string
	msg    string
	fields []any
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{}
}

func (l *recordingLogger) record(level, msg string, fields []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.record("debug", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.record("info", msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...any)  { l.record("warn", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.record("error", msg, kv) }

func (l *recordingLogger) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.msg == msg {
			n++
		}
	}
	return n
}

func (l *recordingLogger) last() (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return logEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

func (e logEntry) field(key string) (any, bool) {
	for i := 0; i+1 < len(e.fields); i += 2 {
		if e.fields[i] == key {
			return e.fields[i+1], true
		}
	}
	return nil, false
}

func TestMatchesPrefix(t *testing.T) {
	assert.True(t, MatchesPrefix("/admin/users", []string{"/admin"}))
	assert.True(t, MatchesPrefix("/anything", nil), "empty prefix list matches everything")
	assert.False(t, MatchesPrefix("/public", []string{"/admin", "/api"}))
}

func TestProtected(t *testing.T) {
	deny := func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	app := fiber.New()
	app.Use(Protected(deny, "/admin"))
	app.Get("/admin/panel", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/public", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/admin/panel", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "guard applies under /admin")

	resp, err = app.Test(httptest.NewRequest("GET", "/public", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "guard skipped outside /admin")
}

func TestRequestID(t *testing.T) {
	t.Run("generates a uuid", func(t *testing.T) {
		app := fiber.New()
		app.Use(RequestID())

		var seen string
		app.Get("/", func(c *fiber.Ctx) error {
			seen = RequestIDFrom(c)
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)

		header := resp.Header.Get(RequestIDHeader)
		assert.Equal(t, seen, header, "handler and response header see the same id")
		_, err = uuid.Parse(header)
		assert.NoError(t, err, "generated ids are uuids")
	})

	t.Run("echoes a client-supplied id", func(t *testing.T) {
		app := fiber.New()
		app.Use(RequestID())
		app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "client-chosen-id")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "client-chosen-id", resp.Header.Get(RequestIDHeader))
	})
}

func TestRequestLogger(t *testing.T) {
	newApp := func(logger *recordingLogger) *fiber.App {
		app := fiber.New()
		app.Use(RequestID())
		app.Use(RequestLogger(logger))
		app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("hello") })
		app.Get("/missing", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
		app.Get("/broken", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusInternalServerError) })
		app.Get("/_health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
		return app
	}

	t.Run("logs at level matching status", func(t *testing.T) {
		cases := []struct {
			path  string
			level string
		}{
			{"/ok", "info"},
			{"/missing", "warn"},
			{"/broken", "error"},
		}
		for _, tc := range cases {
			logger := newRecordingLogger()
			app := newApp(logger)

			_, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
			require.NoError(t, err)

			entry, ok := logger.last()
			require.True(t, ok, "expected a log entry for %s", tc.path)
			assert.Equal(t, tc.level, entry.level, "level for %s", tc.path)
			assert.Equal(t, "http request", entry.msg)

			path, _ := entry.field("path")
			assert.Equal(t, tc.path, path)
			id, ok := entry.field("request_id")
			require.True(t, ok, "request id should be attached")
			assert.NotEmpty(t, id)
		}
	})

	t.Run("skips health checks", func(t *testing.T) {
		logger := newRecordingLogger()
		app := newApp(logger)

		_, err := app.Test(httptest.NewRequest("GET", "/_health", nil))
		require.NoError(t, err)
		assert.Zero(t, logger.count("http request"))
	})
}

func TestHelmet(t *testing.T) {
	app := fiber.New()
	app.Use(Helmet())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "same-origin", resp.Header.Get("Referrer-Policy"))
}

func TestCompress(t *testing.T) {
	app := fiber.New()
	app.Use(Compress())
	app.Get("/big", func(c *fiber.Ctx) error {
		return c.SendString(strings.Repeat("compressible content ", 500))
	})

	req := httptest.NewRequest("GET", "/big", nil)
	req.Header.Set(fiber.HeaderAcceptEncoding, "gzip")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "gzip", resp.Header.Get(fiber.HeaderContentEncoding))
}

func TestRateLimiter(t *testing.T) {
	t.Run("enforces the budget", func(t *testing.T) {
		app := fiber.New()
		app.Use(RateLimiter(WithMax(2), WithDuration(time.Minute)))
		app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

		for i := 0; i < 2; i++ {
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		}

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	})

	t.Run("skip predicate bypasses the limiter", func(t *testing.T) {
		app := fiber.New()
		app.Use(RateLimiter(
			WithMax(1),
			WithDuration(time.Minute),
			WithSkip(func(c *fiber.Ctx) bool { return c.Get("X-Internal") == "1" }),
		))
		app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("X-Internal", "1")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		}
	})
}
