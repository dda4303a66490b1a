package gofu_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofu-framework/gofu"
	"github.com/gofu-framework/gofu/testsupport"
)

func conflictApp(t *testing.T) *testsupport.Client {
	t.Helper()
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/conflict", func(c *gofu.Context) error {
					return fiber.NewError(fiber.StatusConflict, "already exists")
				})
			})
		})
	})
	return testsupport.NewClient(t, app)
}

func TestDefaultErrorHandlerWritesJSON(t *testing.T) {
	client := conflictApp(t)

	resp := client.Get("/conflict")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.JSONEq(t, `{"error":"conflict","message":"already exists"}`, client.Body(resp))
}

func TestDefaultErrorHandlerWritesPlainText(t *testing.T) {
	client := conflictApp(t)

	req := httptest.NewRequest(http.MethodGet, "/conflict", nil)
	req.Header.Set("Accept", "text/plain")
	resp := client.Do(req)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "409 conflict: already exists", client.Body(resp))
}

func TestUnmatchedRoutesUseErrorHandler(t *testing.T) {
	app := testsupport.RunWebApp(t, nil)
	client := testsupport.NewClient(t, app)

	resp := client.Get("/no/such/route")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, client.Body(resp), "not_found")
}

func TestProductionHidesServerErrorDetail(t *testing.T) {
	app := gofu.WebApplication(func(a *gofu.ApplicationDSL) {
		a.Profiles("production")
		a.Logging(func(l *gofu.LoggingDSL) { l.Output(io.Discard) })
		a.Server(func(s *gofu.ServerDSL) {
			s.Port(0)
			s.DisableRequestLogging()
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/boom", func(c *gofu.Context) error {
					return errors.New("connection string leaked")
				})
			})
		})
	})

	appCtx, err := app.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = appCtx.Close(context.Background()) })

	resp, err := appCtx.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "internal server error")
	assert.NotContains(t, string(body), "leaked")
}

func TestDevelopmentKeepsServerErrorDetail(t *testing.T) {
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/boom", func(c *gofu.Context) error {
					return errors.New("widget exploded")
				})
			})
		})
	})
	client := testsupport.NewClient(t, app)

	resp := client.Get("/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, client.Body(resp), "widget exploded")
}

func TestCustomErrorHandlerReplacesDefault(t *testing.T) {
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.ErrorHandler(func(c *gofu.Context, err error) error {
				return c.Status(http.StatusTeapot).JSON(fiber.Map{"custom": err.Error()})
			})
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/boom", func(c *gofu.Context) error {
					return errors.New("kaput")
				})
			})
		})
	})
	client := testsupport.NewClient(t, app)

	resp := client.Get("/boom")
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.JSONEq(t, `{"custom":"kaput"}`, client.Body(resp))
}

func TestPanicsRecoverToServerError(t *testing.T) {
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/panic", func(c *gofu.Context) error {
					panic("handler bug")
				})
			})
		})
	})
	client := testsupport.NewClient(t, app)

	resp := client.Get("/panic")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestErrorCodeNames(t *testing.T) {
	assert.Equal(t, "bad_request", gofu.ErrorCodeName(http.StatusBadRequest))
	assert.Equal(t, "not_found", gofu.ErrorCodeName(http.StatusNotFound))
	assert.Equal(t, "conflict", gofu.ErrorCodeName(http.StatusConflict))
	assert.Equal(t, "too_many_requests", gofu.ErrorCodeName(http.StatusTooManyRequests))
	assert.Equal(t, "internal_server_error", gofu.ErrorCodeName(http.StatusInternalServerError))
	assert.Equal(t, "error_418", gofu.ErrorCodeName(http.StatusTeapot))
}
