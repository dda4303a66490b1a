// Package logging builds the slog loggers an application and its beans
// share: colored console output while developing, JSON with file
// rotation in production, and per-component level overrides.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatText    = "text"
)

// Config controls how the shared log sink is built. The zero value
// gives a sensible production setup: JSON to stdout at error level.
type Config struct {
	// Level is the root level: debug, info, warn, or error. Empty
	// picks info in development and test, error in production.
	Level string

	// Levels overrides the level for named loggers, keyed by the name
	// passed to Loggers.Named.
	Levels map[string]string

	// Format selects console, text, or json output. Empty picks
	// console in development and test, json in production.
	Format string

	// Directory enables a rotating log file next to stdout output.
	// Only honored in production.
	Directory string

	// AppName names the log file. Defaults to "app".
	AppName string

	// Rotation settings for the production log file.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// AddSource includes source positions in records.
	AddSource bool

	// Development switches the profile-driven defaults above.
	Development bool

	// Output overrides the destination stream. Used by tests; when set,
	// file rotation is disabled.
	Output io.Writer

	// Handler overrides the built handler entirely, routing records
	// through an existing backend such as zap. Format, Output, and
	// file rotation are ignored; Level and Levels still gate records.
	Handler slog.Handler
}

// Loggers mints slog loggers that share one sink. The root level can be
// changed at runtime; named loggers may carry their own level.
type Loggers struct {
	handler   slog.Handler
	rootLevel *slog.LevelVar
	root      *slog.Logger
	rotator   *lumberjack.Logger

	mu     sync.RWMutex
	levels map[string]slog.Level
}

// New builds the shared sink from cfg. It fails on unknown level or
// format names rather than guessing.
func New(cfg Config) (*Loggers, error) {
	rootLevel := new(slog.LevelVar)
	level, err := resolveLevel(cfg.Level, cfg.Development)
	if err != nil {
		return nil, err
	}
	rootLevel.Set(level)

	levels := make(map[string]slog.Level, len(cfg.Levels))
	for name, raw := range cfg.Levels {
		lv, err := ParseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("logging: logger %q: %w", name, err)
		}
		levels[name] = lv
	}

	format := cfg.Format
	if format == "" {
		if cfg.Development {
			format = FormatConsole
		} else {
			format = FormatJSON
		}
	}

	l := &Loggers{rootLevel: rootLevel, levels: levels}

	if cfg.Handler != nil {
		l.handler = &leveledHandler{Handler: cfg.Handler, level: rootLevel}
		l.root = slog.New(l.handler)
		return l, nil
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
		if !cfg.Development && cfg.Directory != "" {
			if rotator, err := newRotator(cfg); err == nil {
				l.rotator = rotator
				out = io.MultiWriter(os.Stdout, rotator)
			}
		}
	}

	opts := &slog.HandlerOptions{Level: rootLevel, AddSource: cfg.AddSource}
	switch format {
	case FormatConsole:
		l.handler = tint.NewHandler(out, &tint.Options{
			Level:      rootLevel,
			TimeFormat: "15:04:05",
			AddSource:  cfg.AddSource,
		})
	case FormatJSON:
		l.handler = slog.NewJSONHandler(out, opts)
	case FormatText:
		l.handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	l.root = slog.New(l.handler)
	return l, nil
}

// newRotator prepares the rotating file writer, creating the directory
// if needed.
func newRotator(cfg Config) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, err
	}
	appName := cfg.AppName
	if appName == "" {
		appName = "app"
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}
	maxAge := cfg.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 28
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, appName+".log"),
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   cfg.Compress,
	}, nil
}

// Root returns the application logger.
func (l *Loggers) Root() *slog.Logger { return l.root }

// Named returns a logger tagged with the component name. If a level
// override exists for the name it applies instead of the root level.
func (l *Loggers) Named(name string) *slog.Logger {
	l.mu.RLock()
	level, ok := l.levels[name]
	l.mu.RUnlock()

	handler := l.handler
	if ok {
		handler = &leveledHandler{Handler: handler, level: level}
	}
	return slog.New(handler).With("logger", name)
}

// SetRootLevel changes the root level for all loggers already minted.
func (l *Loggers) SetRootLevel(level slog.Level) { l.rootLevel.Set(level) }

// SetLevel installs or replaces the level override for a named logger.
// Loggers minted afterwards observe the change.
func (l *Loggers) SetLevel(name string, level slog.Level) {
	l.mu.Lock()
	l.levels[name] = level
	l.mu.Unlock()
}

// Close flushes and closes the rotating file writer, when one exists.
func (l *Loggers) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// leveledHandler pins a minimum level independent of the wrapped
// handler's own gating. The level may be fixed or a LevelVar.
type leveledHandler struct {
	slog.Handler
	level slog.Leveler
}

func (h *leveledHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *leveledHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &leveledHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *leveledHandler) WithGroup(name string) slog.Handler {
	return &leveledHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
}

// resolveLevel applies the profile default when no level is set.
func resolveLevel(raw string, development bool) (slog.Level, error) {
	if raw == "" {
		if development {
			return slog.LevelInfo, nil
		}
		return slog.LevelError, nil
	}
	return ParseLevel(raw)
}

// Fatal logs at error level and exits. slog has no fatal level of its
// own.
func Fatal(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
