package gofu

import (
	"context"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/template/html/v2"

	"github.com/gofu-framework/gofu/codec"
	"github.com/gofu-framework/gofu/logging"
	"github.com/gofu-framework/gofu/middleware"
)

// Engine defaults, applied when the DSL leaves them unset.
const (
	defaultPort         = 8080
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// ServerDSL declares the web server: listener address, engine tuning,
// built-in middleware toggles, routing, codecs, security, metrics,
// templates, and static assets. Declaring the block at all is what
// makes the application a web application.
type ServerDSL struct {
	port *int
	host *string

	readTimeout  time.Duration
	writeTimeout time.Duration
	bodyLimit    int
	concurrency  int
	proxyHeader  string

	disableRequestID     bool
	disableRecovery      bool
	disableRequestLogger bool
	disableCompression   bool
	disableHelmet        bool

	secFetch         *middleware.SecFetchSiteConfig
	rateLimit        []middleware.RateLimiterOption
	rateLimitSet     bool
	concurrencyLimit *concurrencyLimitSpec

	routers      []func(*RouterDSL)
	codecs       []codec.Codec
	security     *securitySpec
	metrics      *metricsSpec
	templates    *templatesSpec
	statics      []staticSpec
	errorHandler func(*Context, error) error
}

type concurrencyLimitSpec struct {
	reads   int
	writes  int
	timeout time.Duration
}

type templatesSpec struct {
	dir  string
	ext  string
	fsys fs.FS
}

type staticSpec struct {
	prefix string
	dir    string
	fsys   fs.FS
}

func newServerDSL() *ServerDSL {
	return &ServerDSL{}
}

// Port sets the listener port, 8080 by default. Port 0 binds an
// ephemeral port readable from AppContext.ServerAddr.
func (s *ServerDSL) Port(port int) { s.port = &port }

// Host sets the bind address; empty binds all interfaces.
func (s *ServerDSL) Host(host string) { s.host = &host }

// ReadTimeout bounds reading the full request, 30s by default.
func (s *ServerDSL) ReadTimeout(timeout time.Duration) { s.readTimeout = timeout }

// WriteTimeout bounds writing the full response, 30s by default.
func (s *ServerDSL) WriteTimeout(timeout time.Duration) { s.writeTimeout = timeout }

// BodyLimit caps the request body size in bytes.
func (s *ServerDSL) BodyLimit(bytes int) { s.bodyLimit = bytes }

// Concurrency caps concurrent connections.
func (s *ServerDSL) Concurrency(n int) { s.concurrency = n }

// ProxyHeader trusts the given header for the client IP, for example
// "X-Forwarded-For" behind a reverse proxy.
func (s *ServerDSL) ProxyHeader(header string) { s.proxyHeader = header }

// DisableRequestID turns off request ID generation.
func (s *ServerDSL) DisableRequestID() { s.disableRequestID = true }

// DisableRecovery turns off panic recovery. Panics then kill the
// connection instead of producing a 500.
func (s *ServerDSL) DisableRecovery() { s.disableRecovery = true }

// DisableRequestLogging turns off per-request logging.
func (s *ServerDSL) DisableRequestLogging() { s.disableRequestLogger = true }

// DisableCompression turns off response compression.
func (s *ServerDSL) DisableCompression() { s.disableCompression = true }

// DisableHelmet turns off the security headers middleware.
func (s *ServerDSL) DisableHelmet() { s.disableHelmet = true }

// SecFetchSite blocks state-changing cross-site browser requests via
// the Sec-Fetch-Site header. Off unless declared.
func (s *ServerDSL) SecFetchSite(config ...middleware.SecFetchSiteConfig) {
	cfg := middleware.DefaultSecFetchSiteConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	s.secFetch = &cfg
}

// RateLimit enables per-client request rate limiting. Off unless
// declared.
func (s *ServerDSL) RateLimit(options ...middleware.RateLimiterOption) {
	s.rateLimit = options
	s.rateLimitSet = true
}

// ConcurrencyLimit caps concurrent reads and writes separately, suited
// to SQLite write serialization. Off unless declared.
func (s *ServerDSL) ConcurrencyLimit(reads, writes int, timeout time.Duration) {
	s.concurrencyLimit = &concurrencyLimitSpec{reads: reads, writes: writes, timeout: timeout}
}

// Router declares routes. The block may appear multiple times; blocks
// mount in declaration order.
func (s *ServerDSL) Router(fn func(*RouterDSL)) {
	if fn != nil {
		s.routers = append(s.routers, fn)
	}
}

// Codecs declares the codecs served. Declaring any replaces the
// default set (JSON, plain text, form data).
func (s *ServerDSL) Codecs(fn func(*CodecsDSL)) {
	if fn != nil {
		fn(&CodecsDSL{dsl: s})
	}
}

// Security guards routes with basic auth or JWT bearer tokens.
func (s *ServerDSL) Security(fn func(*SecurityDSL)) {
	if s.security == nil {
		s.security = &securitySpec{}
	}
	if fn != nil {
		fn(&SecurityDSL{spec: s.security})
	}
}

// Metrics exposes Prometheus metrics and instruments every request.
func (s *ServerDSL) Metrics(fn func(*MetricsDSL)) {
	if s.metrics == nil {
		s.metrics = &metricsSpec{}
	}
	if fn != nil {
		fn(&MetricsDSL{spec: s.metrics})
	}
}

// Templates enables the HTML view engine over a directory, making
// Context.Render available. Templates reload on change in development.
func (s *ServerDSL) Templates(dir, ext string) {
	s.templates = &templatesSpec{dir: dir, ext: ext}
}

// TemplatesFS enables the HTML view engine over an embedded
// filesystem.
func (s *ServerDSL) TemplatesFS(fsys fs.FS, ext string) {
	s.templates = &templatesSpec{fsys: fsys, ext: ext}
}

// Static serves files from a directory under the given URL prefix.
func (s *ServerDSL) Static(prefix, dir string) {
	s.statics = append(s.statics, staticSpec{prefix: prefix, dir: dir})
}

// StaticFS serves files from an embedded filesystem under the given
// URL prefix.
func (s *ServerDSL) StaticFS(prefix string, fsys fs.FS) {
	s.statics = append(s.statics, staticSpec{prefix: prefix, fsys: fsys})
}

// ErrorHandler replaces the default error handler.
func (s *ServerDSL) ErrorHandler(handler func(*Context, error) error) {
	s.errorHandler = handler
}

// CodecsDSL declares served codecs.
type CodecsDSL struct {
	dsl *ServerDSL
}

// JSON serves application/json.
func (c *CodecsDSL) JSON() { c.dsl.codecs = append(c.dsl.codecs, codec.JSON{}) }

// XML serves application/xml.
func (c *CodecsDSL) XML() { c.dsl.codecs = append(c.dsl.codecs, codec.XML{}) }

// Text serves text/plain.
func (c *CodecsDSL) Text() { c.dsl.codecs = append(c.dsl.codecs, codec.Text{}) }

// Form reads application/x-www-form-urlencoded request bodies.
func (c *CodecsDSL) Form() { c.dsl.codecs = append(c.dsl.codecs, codec.Form{}) }

// Register serves a custom codec.
func (c *CodecsDSL) Register(cd codec.Codec) { c.dsl.codecs = append(c.dsl.codecs, cd) }

type securitySpec struct {
	basicRealm string
	basicUsers map[string]string
	jwtSecret  []byte
	jwtMethods []string
	prefixes   []string
}

// SecurityDSL guards routes. Configure exactly one scheme; Protect
// limits the guard to path prefixes, all paths by default.
type SecurityDSL struct {
	spec *securitySpec
}

// BasicAuth requires HTTP basic credentials checked against bcrypt
// password hashes keyed by username.
func (s *SecurityDSL) BasicAuth(realm string, users map[string]string) {
	s.spec.basicRealm = realm
	s.spec.basicUsers = users
}

// JWT requires a bearer token signed with secret, HS256 by default.
func (s *SecurityDSL) JWT(secret []byte) { s.spec.jwtSecret = secret }

// JWTMethods restricts the accepted signing algorithms.
func (s *SecurityDSL) JWTMethods(methods ...string) { s.spec.jwtMethods = methods }

// Protect limits the guard to the given path prefixes. Without it the
// whole server is guarded.
func (s *SecurityDSL) Protect(prefixes ...string) {
	s.spec.prefixes = append(s.spec.prefixes, prefixes...)
}

type metricsSpec struct {
	namespace      string
	path           string
	disableRuntime bool
}

// MetricsDSL configures the Prometheus endpoint.
type MetricsDSL struct {
	spec *metricsSpec
}

// Namespace prefixes every metric name, "gofu" by default.
func (m *MetricsDSL) Namespace(ns string) { m.spec.namespace = ns }

// Path relocates the scrape endpoint, "/metrics" by default.
func (m *MetricsDSL) Path(path string) { m.spec.path = path }

// DisableRuntimeCollectors drops the Go runtime and process
// collectors, keeping only HTTP and custom metrics.
func (m *MetricsDSL) DisableRuntimeCollectors() { m.spec.disableRuntime = true }

// server is the built web server: a configured fiber app plus the
// listener lifecycle.
type server struct {
	app    *fiber.App
	appCtx *AppContext
	host   string
	port   int

	ln        net.Listener
	boundAddr net.Addr
	done      chan error
	exited    atomic.Bool
}

// newServer builds the fiber application from the recorded DSL. The
// listener is not opened here; start does that.
func newServer(d *ServerDSL, appCtx *AppContext, development bool) (*server, error) {
	srv := &server{
		appCtx: appCtx,
		host:   resolveHost(d, appCtx),
		port:   resolvePort(d, appCtx),
		done:   make(chan error, 1),
	}

	views, err := buildViews(d.templates, development)
	if err != nil {
		return nil, err
	}

	onError := d.errorHandler
	if onError == nil {
		onError = DefaultErrorHandler(appCtx.loggers.Named("http"), !development)
	}

	cfg := fiber.Config{
		DisableStartupMessage: true,
		DisableDefaultDate:    true,
		ReadTimeout:           d.readTimeout,
		WriteTimeout:          d.writeTimeout,
		BodyLimit:             d.bodyLimit,
		Concurrency:           d.concurrency,
		ProxyHeader:           d.proxyHeader,
		Views:                 views,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return onError(srv.newContext(c), err)
		},
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	app := fiber.New(cfg)
	srv.app = app

	if !d.disableRequestID {
		app.Use(middleware.RequestID())
	}
	if !d.disableRecovery {
		app.Use(middleware.Recover())
	}
	if !d.disableHelmet {
		app.Use(middleware.Helmet())
	}
	if !d.disableCompression {
		app.Use(middleware.Compress())
	}
	if d.secFetch != nil {
		app.Use(middleware.SecFetchSite(*d.secFetch))
	}
	if d.rateLimitSet {
		app.Use(middleware.RateLimiter(d.rateLimit...))
	}
	if cl := d.concurrencyLimit; cl != nil {
		limiter := middleware.NewConcurrencyLimiter(cl.reads, cl.writes, cl.timeout,
			logging.NewSlogAdapter(appCtx.loggers.Named("http")))
		app.Use(limiter.Limit())
	}
	if appCtx.metrics != nil {
		app.Use(appCtx.metrics.Middleware())
	}
	if !d.disableRequestLogger {
		app.Use(middleware.RequestLogger(logging.NewSlogAdapter(appCtx.loggers.Named("http"))))
	}

	app.Get("/_health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if d.security != nil {
		guard, err := buildSecurityGuard(d.security)
		if err != nil {
			return nil, err
		}
		app.Use(middleware.Protected(guard, d.security.prefixes...))
	}

	if appCtx.metrics != nil {
		app.Get(appCtx.metrics.Path(), appCtx.metrics.Handler())
	}

	for _, st := range d.statics {
		if st.fsys != nil {
			app.Use(st.prefix, filesystem.New(filesystem.Config{Root: http.FS(st.fsys)}))
			continue
		}
		app.Static(st.prefix, st.dir)
	}

	for _, fn := range d.routers {
		router := &RouterDSL{}
		fn(router)
		router.mount(app, srv, nil)
	}

	return srv, nil
}

func resolvePort(d *ServerDSL, appCtx *AppContext) int {
	if d.port != nil {
		return *d.port
	}
	return appCtx.props.IntOr("server.port", defaultPort)
}

func resolveHost(d *ServerDSL, appCtx *AppContext) string {
	if d.host != nil {
		return *d.host
	}
	return appCtx.props.StringOr("server.host", "")
}

func buildViews(spec *templatesSpec, development bool) (fiber.Views, error) {
	if spec == nil {
		return nil, nil
	}
	var engine *html.Engine
	switch {
	case spec.fsys != nil:
		engine = html.NewFileSystem(http.FS(spec.fsys), spec.ext)
	case spec.dir != "":
		engine = html.New(spec.dir, spec.ext)
	default:
		return nil, fmt.Errorf("gofu: templates block declares neither a directory nor a filesystem")
	}
	engine.Reload(development)
	return engine, nil
}

func buildSecurityGuard(spec *securitySpec) (fiber.Handler, error) {
	switch {
	case spec.basicUsers != nil && spec.jwtSecret != nil:
		return nil, fmt.Errorf("gofu: security block configures both basic auth and JWT; pick one")
	case spec.basicUsers != nil:
		return middleware.BasicAuth(spec.basicRealm, spec.basicUsers), nil
	case spec.jwtSecret != nil:
		if len(spec.jwtMethods) > 0 {
			return middleware.JWTWithMethods(spec.jwtSecret, spec.jwtMethods), nil
		}
		return middleware.JWT(spec.jwtSecret), nil
	default:
		return nil, fmt.Errorf("gofu: security block configures no scheme")
	}
}

// newContext wraps a fiber context for a gofu handler.
func (s *server) newContext(c *fiber.Ctx) *Context {
	return &Context{
		Ctx:    c,
		Logger: s.appCtx.logger,
		app:    s.appCtx,
		codecs: s.appCtx.codecs,
	}
}

// wrap adapts a gofu handler to fiber.
func (s *server) wrap(h HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return h(s.newContext(c))
	}
}

// start opens the listener and serves in the background. Binding
// first, rather than letting fiber listen, keeps port 0 usable: the
// ephemeral port is known before start returns.
func (s *server) start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("gofu: listen: %w", err)
	}
	s.ln = ln
	s.boundAddr = ln.Addr()
	go func() {
		err := s.app.Listener(ln)
		s.exited.Store(true)
		s.done <- err
	}()
	return nil
}

func (s *server) addr() net.Addr { return s.boundAddr }

// shutdown drains in-flight requests, giving up when ctx expires.
func (s *server) shutdown(ctx context.Context) error {
	if s.exited.Load() {
		return nil
	}
	s.appCtx.logger.Info("stopping http server", "addr", s.boundAddr.String())

	done := make(chan error, 1)
	go func() { done <- s.app.Shutdown() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("gofu: server shutdown: %w", ctx.Err())
	}
}
