// Package testsupport provides helpers for testing applications: an
// in-process app harness, an HTTP client that skips the socket, temp
// config and message files, and an in-memory test database.
package testsupport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofu-framework/gofu"
)

const closeTimeout = 5 * time.Second

// RunApp starts an application for a test and closes it via t.Cleanup.
// The harness activates the test profile, discards log output, and
// fails the test when the start fails.
func RunApp(t *testing.T, configure func(*gofu.ApplicationDSL)) *gofu.AppContext {
	t.Helper()
	return startApp(t, gofu.Application(testConfigure(configure)))
}

// RunWebApp is RunApp with a guaranteed web server bound to an
// ephemeral port, so parallel tests never fight over an address.
func RunWebApp(t *testing.T, configure func(*gofu.ApplicationDSL)) *gofu.AppContext {
	t.Helper()
	return startApp(t, gofu.WebApplication(func(app *gofu.ApplicationDSL) {
		app.Server(func(s *gofu.ServerDSL) {
			s.Port(0)
			s.DisableRequestLogging()
		})
		testConfigure(configure)(app)
	}))
}

func testConfigure(configure func(*gofu.ApplicationDSL)) func(*gofu.ApplicationDSL) {
	return func(app *gofu.ApplicationDSL) {
		app.Profiles("test")
		app.Logging(func(l *gofu.LoggingDSL) { l.Output(io.Discard) })
		if configure != nil {
			configure(app)
		}
	}
}

func startApp(t *testing.T, app *gofu.App) *gofu.AppContext {
	t.Helper()

	appCtx, err := app.Start(context.Background())
	if err != nil {
		t.Fatalf("testsupport: start application: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := appCtx.Close(ctx); err != nil {
			t.Errorf("testsupport: close application: %v", err)
		}
	})

	return appCtx
}

// Client performs in-process requests against a started web
// application. Requests go straight to the engine; no socket involved.
type Client struct {
	t   *testing.T
	app *gofu.AppContext
}

// NewClient wraps a started application for request assertions.
func NewClient(t *testing.T, app *gofu.AppContext) *Client {
	t.Helper()
	return &Client{t: t, app: app}
}

// Request performs a request and returns the response. An optional body
// is sent as application/json.
func (c *Client) Request(method, path string, body ...string) *http.Response {
	c.t.Helper()

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = strings.NewReader(body[0])
	}

	req := httptest.NewRequest(method, path, bodyReader)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.Do(req)
}

// Do performs a prepared request, for tests that need custom headers.
func (c *Client) Do(req *http.Request) *http.Response {
	c.t.Helper()

	resp, err := c.app.Test(req)
	if err != nil {
		c.t.Fatalf("testsupport: request %s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

// Get performs a GET request.
func (c *Client) Get(path string) *http.Response {
	c.t.Helper()
	return c.Request(http.MethodGet, path)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(path, body string) *http.Response {
	c.t.Helper()
	return c.Request(http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(path, body string) *http.Response {
	c.t.Helper()
	return c.Request(http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(path string) *http.Response {
	c.t.Helper()
	return c.Request(http.MethodDelete, path)
}

// Body reads and returns the full response body.
func (c *Client) Body(resp *http.Response) string {
	c.t.Helper()

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("testsupport: read response body: %v", err)
	}
	return string(data)
}
