package gofu

import (
	"io"
	"log/slog"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/gofu-framework/gofu/database"
	"github.com/gofu-framework/gofu/postgres"
	"github.com/gofu-framework/gofu/schedule"
	"github.com/gofu-framework/gofu/sqlite"
	"github.com/gofu-framework/gofu/webclient"
)

// JobContext is the context handed to scheduled job handlers.
type JobContext = schedule.JobContext

// JobHandler is the signature of scheduled job handlers.
type JobHandler = schedule.Handler

// ConfigurationDSL records the reusable part of a configuration: bean
// registrations, property sources and bindings, message bundles, and
// lifecycle hooks. Configurations compose through Enable, which keeps
// declaration order across imports.
type ConfigurationDSL struct {
	beans       []beanRegistration
	configProps []configPropsBinding
	props       propertiesSpec
	messages    messagesSpec
	onStart     []Hook
	onStop      []Hook
}

type beanRegistration struct {
	value       any
	constructor any
	opts        []BeanOption
}

type configPropsBinding struct {
	target any
	prefix string
}

type propertiesSpec struct {
	configName string
	paths      []string
	defaults   map[string]any
}

type messagesSpec struct {
	dir           string
	basename      string
	defaultLocale language.Tag
	watch         bool
}

// Beans declares bean registrations. The block may appear any number
// of times; registrations keep their declaration order.
func (c *ConfigurationDSL) Beans(fn func(*BeansDSL)) {
	if fn == nil {
		return
	}
	fn(&BeansDSL{conf: c})
}

// Enable imports another configuration function. It is applied
// immediately, so its beans, bindings, and hooks interleave with the
// enclosing configuration in declaration order.
func (c *ConfigurationDSL) Enable(configure func(*ConfigurationDSL)) {
	if configure != nil {
		configure(c)
	}
}

// ConfigurationProperties binds the configuration subtree under prefix
// onto target at start and registers the bound struct as a bean.
// Target must be a pointer. Binding the same target type twice fails
// the start.
func (c *ConfigurationDSL) ConfigurationProperties(target any, prefix string) {
	c.configProps = append(c.configProps, configPropsBinding{target: target, prefix: prefix})
}

// Properties tunes how the property source is loaded.
func (c *ConfigurationDSL) Properties(fn func(*PropertiesDSL)) {
	if fn == nil {
		return
	}
	fn(&PropertiesDSL{spec: &c.props})
}

// Messages configures the message bundle. Without the block the
// defaults scan ./messages.properties and locale variants.
func (c *ConfigurationDSL) Messages(fn func(*MessagesDSL)) {
	if fn == nil {
		return
	}
	fn(&MessagesDSL{spec: &c.messages})
}

// OnStart registers a hook that runs once every component is up,
// before Start returns. A hook error fails the start.
func (c *ConfigurationDSL) OnStart(hook Hook) {
	if hook != nil {
		c.onStart = append(c.onStart, hook)
	}
}

// OnStop registers a hook that runs first during Close, before any
// component shuts down. Hooks run in reverse registration order.
func (c *ConfigurationDSL) OnStop(hook Hook) {
	if hook != nil {
		c.onStop = append(c.onStop, hook)
	}
}

// BeansDSL registers beans into the enclosing configuration.
type BeansDSL struct {
	conf *ConfigurationDSL
}

// Bean registers an already constructed value.
func (b *BeansDSL) Bean(value any, opts ...BeanOption) {
	b.conf.beans = append(b.conf.beans, beanRegistration{value: value, opts: opts})
}

// Provide registers a constructor function. Its parameters are
// resolved against the other beans when the container starts; it must
// return the bean, optionally with an error.
func (b *BeansDSL) Provide(constructor any, opts ...BeanOption) {
	b.conf.beans = append(b.conf.beans, beanRegistration{constructor: constructor, opts: opts})
}

// PropertiesDSL tunes property loading.
type PropertiesDSL struct {
	spec *propertiesSpec
}

// ConfigName overrides the base config file name, "application" by
// default.
func (p *PropertiesDSL) ConfigName(name string) { p.spec.configName = name }

// Path adds directories searched for config files, in addition to "."
// and "./config".
func (p *PropertiesDSL) Path(paths ...string) {
	p.spec.paths = append(p.spec.paths, paths...)
}

// Default seeds a property value that files, environment variables,
// and profiles may override.
func (p *PropertiesDSL) Default(key string, value any) {
	if p.spec.defaults == nil {
		p.spec.defaults = make(map[string]any)
	}
	p.spec.defaults[key] = value
}

// MessagesDSL configures the message bundle.
type MessagesDSL struct {
	spec *messagesSpec
}

// Dir sets the directory scanned for bundle files.
func (m *MessagesDSL) Dir(dir string) { m.spec.dir = dir }

// Basename sets the bundle file prefix, "messages" by default.
func (m *MessagesDSL) Basename(name string) { m.spec.basename = name }

// DefaultLocale sets the locale assumed for language.Und lookups.
func (m *MessagesDSL) DefaultLocale(tag language.Tag) { m.spec.defaultLocale = tag }

// Watch reloads the bundle when its files change on disk.
func (m *MessagesDSL) Watch() { m.spec.watch = true }

// ApplicationDSL is the top-level builder. It extends ConfigurationDSL
// with the runtime blocks: logging, server, database, scheduling, and
// HTTP clients.
type ApplicationDSL struct {
	ConfigurationDSL

	name     string
	profiles []string
	logging  loggingSpec
	server   *ServerDSL
	database *databaseSpec
	jobs     []jobSpec
	clients  []*clientSpec
}

func newApplicationDSL() *ApplicationDSL {
	return &ApplicationDSL{}
}

// Name sets the application name, used for the environment variable
// prefix and the log file name.
func (a *ApplicationDSL) Name(name string) { a.name = name }

// Profiles activates configuration profiles explicitly, overriding the
// environment variable.
func (a *ApplicationDSL) Profiles(profiles ...string) {
	a.profiles = append(a.profiles, profiles...)
}

// Logging configures the application logger.
func (a *ApplicationDSL) Logging(fn func(*LoggingDSL)) {
	if fn == nil {
		return
	}
	fn(&LoggingDSL{spec: &a.logging})
}

// Server declares the web server. The block may appear multiple times;
// later calls refine the same server.
func (a *ApplicationDSL) Server(fn func(*ServerDSL)) {
	if a.server == nil {
		a.server = newServerDSL()
	}
	if fn != nil {
		fn(a.server)
	}
}

// Database declares the database client. The manager connects eagerly
// during Start and is registered as a bean.
func (a *ApplicationDSL) Database(fn func(*DatabaseDSL)) {
	if a.database == nil {
		a.database = &databaseSpec{cfg: database.DefaultConfig("")}
	}
	if fn != nil {
		fn(&DatabaseDSL{spec: a.database})
	}
}

// Scheduling declares cron jobs. The scheduler starts last in the
// pipeline and stops first on Close.
func (a *ApplicationDSL) Scheduling(fn func(*SchedulingDSL)) {
	if fn != nil {
		fn(&SchedulingDSL{app: a})
	}
}

// Client declares an outbound HTTP client bean. Multiple clients need
// distinct names.
func (a *ApplicationDSL) Client(fn func(*ClientDSL)) {
	spec := &clientSpec{}
	if fn != nil {
		fn(&ClientDSL{spec: spec})
	}
	a.clients = append(a.clients, spec)
}

type loggingSpec struct {
	level     string
	levels    map[string]string
	format    string
	directory string
	addSource bool

	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool

	output io.Writer
	zap    *zap.Logger
}

// LoggingDSL configures the shared log sink.
type LoggingDSL struct {
	spec *loggingSpec
}

// Level sets the root level. Without it, development and test run at
// info and production at error.
func (l *LoggingDSL) Level(level slog.Level) { l.spec.level = levelName(level) }

// LevelFor overrides the level for one named logger, such as
// "database" or "scheduler".
func (l *LoggingDSL) LevelFor(name string, level slog.Level) {
	if l.spec.levels == nil {
		l.spec.levels = make(map[string]string)
	}
	l.spec.levels[name] = levelName(level)
}

// JSON forces JSON output, the production default.
func (l *LoggingDSL) JSON() { l.spec.format = "json" }

// Console forces colored console output, the development default.
func (l *LoggingDSL) Console() { l.spec.format = "console" }

// Text forces plain key=value text output.
func (l *LoggingDSL) Text() { l.spec.format = "text" }

// File writes a rotating log file in directory alongside stdout.
// Honored in production only.
func (l *LoggingDSL) File(directory string) { l.spec.directory = directory }

// Rotation tunes the log file rotation: size per file in megabytes,
// number of retained backups, and retention in days.
func (l *LoggingDSL) Rotation(maxSizeMB, maxBackups, maxAgeDays int, compress bool) {
	l.spec.maxSizeMB = maxSizeMB
	l.spec.maxBackups = maxBackups
	l.spec.maxAgeDays = maxAgeDays
	l.spec.compress = compress
}

// AddSource includes source file positions in log records.
func (l *LoggingDSL) AddSource() { l.spec.addSource = true }

// Output redirects log output, disabling file rotation. Meant for
// tests.
func (l *LoggingDSL) Output(w io.Writer) { l.spec.output = w }

// Zap routes all framework logging through an existing zap logger.
// Level and format settings are ignored; the zap configuration rules.
func (l *LoggingDSL) Zap(logger *zap.Logger) { l.spec.zap = logger }

func levelName(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return "debug"
	case level <= slog.LevelInfo:
		return "info"
	case level <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

type databaseSpec struct {
	driver   database.Driver
	cfg      *database.Config
	models   []any
	migrator database.Migrator
}

// DatabaseDSL configures the database client.
type DatabaseDSL struct {
	spec *databaseSpec
}

// SQLite selects the SQLite driver with a file path or ":memory:".
// The pool defaults stay at the conservative SQLite settings.
func (d *DatabaseDSL) SQLite(path string) {
	d.spec.driver = sqlite.NewDriver()
	d.spec.cfg.DSN = path
}

// Postgres selects the PostgreSQL driver with a URL or key=value DSN
// and raises the pool limits to server-database defaults.
func (d *DatabaseDSL) Postgres(dsn string) {
	d.spec.driver = postgres.NewDriver()
	d.spec.cfg.DSN = dsn
	d.spec.cfg.MaxOpenConns = 25
	d.spec.cfg.MaxIdleConns = 5
}

// Driver selects a custom driver implementation.
func (d *DatabaseDSL) Driver(driver database.Driver, dsn string) {
	d.spec.driver = driver
	d.spec.cfg.DSN = dsn
}

// MaxOpenConns caps open connections.
func (d *DatabaseDSL) MaxOpenConns(n int) { d.spec.cfg.MaxOpenConns = n }

// MaxIdleConns caps idle pooled connections.
func (d *DatabaseDSL) MaxIdleConns(n int) { d.spec.cfg.MaxIdleConns = n }

// ConnMaxLifetime recycles connections older than the given age.
func (d *DatabaseDSL) ConnMaxLifetime(age time.Duration) { d.spec.cfg.ConnMaxLifetime = age }

// LogQueries logs every statement at debug level instead of only slow
// queries and failures.
func (d *DatabaseDSL) LogQueries() { d.spec.cfg.LogQueries = true }

// SlowQueryThreshold marks queries slower than the given duration in
// the log.
func (d *DatabaseDSL) SlowQueryThreshold(threshold time.Duration) {
	d.spec.cfg.SlowQueryThreshold = threshold
}

// Migrate auto-migrates the given GORM models after connecting.
func (d *DatabaseDSL) Migrate(models ...any) {
	d.spec.models = append(d.spec.models, models...)
}

// MigrateWith runs a custom migrator after connecting, instead of or
// in addition to model auto-migration.
func (d *DatabaseDSL) MigrateWith(migrator database.Migrator) {
	d.spec.migrator = migrator
}

type jobSpec struct {
	cronSpec string
	interval time.Duration
	name     string
	handler  schedule.Handler
}

// SchedulingDSL declares scheduled jobs.
type SchedulingDSL struct {
	app *ApplicationDSL
}

// Cron registers a handler on a six-field cron expression with seconds
// precision, evaluated in UTC.
func (s *SchedulingDSL) Cron(spec, name string, handler JobHandler) {
	s.app.jobs = append(s.app.jobs, jobSpec{cronSpec: spec, name: name, handler: handler})
}

// Every registers a handler on a fixed interval.
func (s *SchedulingDSL) Every(interval time.Duration, name string, handler JobHandler) {
	s.app.jobs = append(s.app.jobs, jobSpec{interval: interval, name: name, handler: handler})
}

type clientSpec struct {
	name string
	cfg  webclient.Config
}

// ClientDSL configures an outbound HTTP client bean.
type ClientDSL struct {
	spec *clientSpec
}

// Name sets the bean name. Required when declaring several clients.
func (c *ClientDSL) Name(name string) { c.spec.name = name }

// BaseURL sets the base URL every request path is joined to.
func (c *ClientDSL) BaseURL(url string) { c.spec.cfg.BaseURL = url }

// Timeout bounds each request.
func (c *ClientDSL) Timeout(timeout time.Duration) { c.spec.cfg.Timeout = timeout }

// Header adds a default header sent with every request.
func (c *ClientDSL) Header(key, value string) {
	if c.spec.cfg.Headers == nil {
		c.spec.cfg.Headers = make(map[string]string)
	}
	c.spec.cfg.Headers[key] = value
}

// UserAgent overrides the User-Agent header.
func (c *ClientDSL) UserAgent(ua string) { c.spec.cfg.UserAgent = ua }

// BasicAuth sends the credentials with every request.
func (c *ClientDSL) BasicAuth(username, password string) {
	c.spec.cfg.Username = username
	c.spec.cfg.Password = password
}
