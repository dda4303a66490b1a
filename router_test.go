package gofu_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"

	"github.com/gofu-framework/gofu"
	"github.com/gofu-framework/gofu/testsupport"
)

func TestRouterMountsRoutesAndNestedGroups(t *testing.T) {
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/hello/:name", func(c *gofu.Context) error {
					return c.OK(fiber.Map{"hello": c.Params("name")})
				})
				r.Path("/api", func(api *gofu.RouterDSL) {
					api.Path("/v1", func(v1 *gofu.RouterDSL) {
						v1.GET("/items", func(c *gofu.Context) error {
							return c.OK([]string{"a", "b"})
						})
					})
				})
			})
		})
	})

	client := testsupport.NewClient(t, app)

	resp := client.Get("/hello/gofu")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"hello":"gofu"}`, client.Body(resp))

	resp = client.Get("/api/v1/items")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["a","b"]`, client.Body(resp))
}

func TestRouterVerbsMount(t *testing.T) {
	echoMethod := func(c *gofu.Context) error {
		return c.OK(fiber.Map{"method": c.Method()})
	}

	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/thing", echoMethod)
				r.POST("/thing", echoMethod)
				r.PUT("/thing", echoMethod)
				r.PATCH("/thing", echoMethod)
				r.DELETE("/thing", echoMethod)
			})
		})
	})

	client := testsupport.NewClient(t, app)

	for _, method := range []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete,
	} {
		resp := client.Do(httptest.NewRequest(method, "/thing", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode, method)
		assert.Contains(t, client.Body(resp), method)
	}
}

func TestFiltersScopeToTheirRouterBlock(t *testing.T) {
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				// Declared after the route on purpose: filters cover the
				// whole block regardless of position.
				r.GET("/tagged", func(c *gofu.Context) error {
					return c.SendString("ok")
				})
				r.Filter(func(c *gofu.Context) error {
					c.Set("X-Block", "a")
					return c.Next()
				})
			})
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/plain", func(c *gofu.Context) error {
					return c.SendString("ok")
				})
			})
		})
	})

	client := testsupport.NewClient(t, app)

	resp := client.Get("/tagged")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a", resp.Header.Get("X-Block"))

	resp = client.Get("/plain")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Block"))
}

func TestGroupFiltersApplyToSubgroups(t *testing.T) {
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/outside", func(c *gofu.Context) error {
					return c.SendString("ok")
				})
				r.Path("/api", func(api *gofu.RouterDSL) {
					api.Filter(func(c *gofu.Context) error {
						c.Set("X-Api", "yes")
						return c.Next()
					})
					api.Path("/v1", func(v1 *gofu.RouterDSL) {
						v1.GET("/ping", func(c *gofu.Context) error {
							return c.SendString("pong")
						})
					})
				})
			})
		})
	})

	client := testsupport.NewClient(t, app)

	resp := client.Get("/api/v1/ping")
	assert.Equal(t, "yes", resp.Header.Get("X-Api"))

	resp = client.Get("/outside")
	assert.Empty(t, resp.Header.Get("X-Api"))
}

func TestFilterShortCircuitsWithoutNext(t *testing.T) {
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.Filter(func(c *gofu.Context) error {
					if c.Get("X-Token") == "" {
						return fiber.NewError(fiber.StatusUnauthorized, "missing token")
					}
					return c.Next()
				})
				r.GET("/secret", func(c *gofu.Context) error {
					return c.OK(fiber.Map{"ok": true})
				})
			})
		})
	})

	client := testsupport.NewClient(t, app)

	resp := client.Get("/secret")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("X-Token", "letmein")
	resp = client.Do(req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouteCORSOption(t *testing.T) {
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/open", func(c *gofu.Context) error {
					return c.OK(fiber.Map{"ok": true})
				}, gofu.WithCORS())
				r.GET("/closed", func(c *gofu.Context) error {
					return c.OK(fiber.Map{"ok": true})
				})
			})
		})
	})

	client := testsupport.NewClient(t, app)

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Origin", "https://example.com")
	resp := client.Do(req)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.Header.Set("Origin", "https://example.com")
	resp = client.Do(req)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouteMiddlewareOption(t *testing.T) {
	traced := func(c *fiber.Ctx) error {
		c.Set("X-Traced", "yes")
		return c.Next()
	}

	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.GET("/traced", func(c *gofu.Context) error {
					return c.SendString("ok")
				}, gofu.WithMiddleware(traced))
			})
		})
	})

	client := testsupport.NewClient(t, app)

	resp := client.Get("/traced")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "yes", resp.Header.Get("X-Traced"))
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := testsupport.RunWebApp(t, func(a *gofu.ApplicationDSL) {
		a.Server(func(s *gofu.ServerDSL) {
			s.Router(func(r *gofu.RouterDSL) {
				r.WebSocket("/ws", func(conn *websocket.Conn) {
					_ = conn.Close()
				})
			})
		})
	})

	client := testsupport.NewClient(t, app)

	resp := client.Get("/ws")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
