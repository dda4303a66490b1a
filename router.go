package gofu

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
)

// RouterDSL declares routes, nested groups, and filters. Filters are
// group-scoped: they run for every route of the group and its
// subgroups no matter where in the block they are declared. Routes and
// subgroups mount in declaration order.
type RouterDSL struct {
	prefix  string
	filters []filterEntry
	entries []mountEntry
}

// filterEntry holds either a gofu handler, wrapped at mount time, or
// raw fiber middleware.
type filterEntry struct {
	fn  HandlerFunc
	raw fiber.Handler
}

type mountEntry struct {
	method  string
	path    string
	handler HandlerFunc
	options []RouteOption

	group  *RouterDSL
	socket func(*websocket.Conn)
}

// RouteOption customizes a single route.
type RouteOption func(*routeOptions)

type routeOptions struct {
	cors  *cors.Config
	extra []fiber.Handler
}

// WithCORS enables permissive CORS for the route.
func WithCORS() RouteOption {
	return func(o *routeOptions) { o.cors = &cors.Config{} }
}

// WithCORSConfig enables CORS for the route with explicit settings.
func WithCORSConfig(cfg cors.Config) RouteOption {
	return func(o *routeOptions) { o.cors = &cfg }
}

// WithMiddleware runs extra fiber middleware before the handler.
func WithMiddleware(handlers ...fiber.Handler) RouteOption {
	return func(o *routeOptions) { o.extra = append(o.extra, handlers...) }
}

// Filter registers a handler that runs before every route in this
// group and its subgroups. Call c.Next to continue the chain.
func (r *RouterDSL) Filter(f HandlerFunc) {
	if f != nil {
		r.filters = append(r.filters, filterEntry{fn: f})
	}
}

// Use registers raw fiber middleware scoped to this group, for
// plugging in ecosystem middleware directly.
func (r *RouterDSL) Use(handlers ...fiber.Handler) {
	for _, h := range handlers {
		if h != nil {
			r.filters = append(r.filters, filterEntry{raw: h})
		}
	}
}

// GET declares a GET route.
func (r *RouterDSL) GET(path string, handler HandlerFunc, opts ...RouteOption) {
	r.add(fiber.MethodGet, path, handler, opts)
}

// POST declares a POST route.
func (r *RouterDSL) POST(path string, handler HandlerFunc, opts ...RouteOption) {
	r.add(fiber.MethodPost, path, handler, opts)
}

// PUT declares a PUT route.
func (r *RouterDSL) PUT(path string, handler HandlerFunc, opts ...RouteOption) {
	r.add(fiber.MethodPut, path, handler, opts)
}

// DELETE declares a DELETE route.
func (r *RouterDSL) DELETE(path string, handler HandlerFunc, opts ...RouteOption) {
	r.add(fiber.MethodDelete, path, handler, opts)
}

// PATCH declares a PATCH route.
func (r *RouterDSL) PATCH(path string, handler HandlerFunc, opts ...RouteOption) {
	r.add(fiber.MethodPatch, path, handler, opts)
}

// HEAD declares a HEAD route.
func (r *RouterDSL) HEAD(path string, handler HandlerFunc, opts ...RouteOption) {
	r.add(fiber.MethodHead, path, handler, opts)
}

// OPTIONS declares an OPTIONS route.
func (r *RouterDSL) OPTIONS(path string, handler HandlerFunc, opts ...RouteOption) {
	r.add(fiber.MethodOptions, path, handler, opts)
}

// Path declares a nested group under prefix.
func (r *RouterDSL) Path(prefix string, fn func(*RouterDSL)) {
	child := &RouterDSL{prefix: prefix}
	if fn != nil {
		fn(child)
	}
	r.entries = append(r.entries, mountEntry{group: child})
}

// WebSocket declares a websocket endpoint. Plain HTTP requests to the
// path receive 426 Upgrade Required.
func (r *RouterDSL) WebSocket(path string, handler func(*websocket.Conn)) {
	r.entries = append(r.entries, mountEntry{path: path, socket: handler})
}

func (r *RouterDSL) add(method, path string, handler HandlerFunc, opts []RouteOption) {
	r.entries = append(r.entries, mountEntry{
		method:  method,
		path:    path,
		handler: handler,
		options: opts,
	})
}

// mount registers the recorded tree on a fiber router. Filters become
// part of every route's handler chain, prepended before per-route
// options, so they stay scoped to this block: sibling Router blocks
// and their routes never see them.
func (r *RouterDSL) mount(router fiber.Router, srv *server, inherited []fiber.Handler) {
	scoped := make([]fiber.Handler, 0, len(inherited)+len(r.filters))
	scoped = append(scoped, inherited...)
	for _, f := range r.filters {
		if f.raw != nil {
			scoped = append(scoped, f.raw)
		} else {
			scoped = append(scoped, srv.wrap(f.fn))
		}
	}

	for _, e := range r.entries {
		switch {
		case e.group != nil:
			e.group.mount(router.Group(e.group.prefix), srv, scoped)
		case e.socket != nil:
			handlers := append(append([]fiber.Handler{}, scoped...),
				requireWebSocketUpgrade, websocket.New(e.socket))
			router.Get(e.path, handlers...)
		default:
			router.Add(e.method, e.path, buildRouteHandlers(e, srv, scoped)...)
		}
	}
}

func buildRouteHandlers(e mountEntry, srv *server, scoped []fiber.Handler) []fiber.Handler {
	var opts routeOptions
	for _, opt := range e.options {
		opt(&opts)
	}
	handlers := make([]fiber.Handler, 0, len(scoped)+len(opts.extra)+2)
	handlers = append(handlers, scoped...)
	if opts.cors != nil {
		handlers = append(handlers, cors.New(*opts.cors))
	}
	handlers = append(handlers, opts.extra...)
	handlers = append(handlers, srv.wrap(e.handler))
	return handlers
}

func requireWebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
