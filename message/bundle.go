package message

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/language"
)

// DefaultBasename is the bundle file prefix looked for when none is
// configured.
const DefaultBasename = "messages"

// ErrNotFound reports a code absent from every layer of a source.
var ErrNotFound = errors.New("message: code not found")

// Options configures a Bundle.
type Options struct {
	// Dir is the directory holding the bundle files. Empty means only
	// the embedded framework defaults are served.
	Dir string

	// Basename is the file prefix, "messages" by default.
	Basename string

	// DefaultLocale is assumed when callers pass language.Und.
	DefaultLocale language.Tag

	// Logger receives reload activity. Nil disables logging.
	Logger *slog.Logger
}

// Bundle is a reloadable Source over locale-suffixed properties files.
type Bundle struct {
	dir           string
	basename      string
	defaultLocale language.Tag
	logger        *slog.Logger

	catalog atomic.Pointer[catalog]

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ Source = (*Bundle)(nil)

// NewBundle loads the bundle once. Missing directories are fine; every
// Bundle serves at least the embedded framework defaults.
func NewBundle(opts Options) (*Bundle, error) {
	basename := opts.Basename
	if basename == "" {
		basename = DefaultBasename
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b := &Bundle{
		dir:           opts.Dir,
		basename:      basename,
		defaultLocale: opts.DefaultLocale,
		logger:        logger,
	}
	if err := b.reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Message implements Source.
func (b *Bundle) Message(code string, locale language.Tag, args ...any) (string, error) {
	if locale == language.Und {
		locale = b.defaultLocale
	}
	msg, ok := b.catalog.Load().resolve(code, locale)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, code)
	}
	return format(msg, args), nil
}

// MessageOr resolves code, returning fallback when it is unknown.
func (b *Bundle) MessageOr(code, fallback string, locale language.Tag, args ...any) string {
	msg, err := b.Message(code, locale, args...)
	if err != nil {
		return fallback
	}
	return msg
}

// MessageOrKey resolves code, returning the code itself when unknown.
func (b *Bundle) MessageOrKey(code string, locale language.Tag, args ...any) string {
	return b.MessageOr(code, code, locale, args...)
}

// Has reports whether code resolves for the locale.
func (b *Bundle) Has(code string, locale language.Tag) bool {
	_, err := b.Message(code, locale)
	return err == nil
}

// Locales returns the locales with dedicated bundle files.
func (b *Bundle) Locales() []language.Tag {
	tags := b.catalog.Load().tags
	out := make([]language.Tag, 0, len(tags))
	for _, tag := range tags {
		if tag != language.Und {
			out = append(out, tag)
		}
	}
	return out
}

// reload re-reads every bundle file and swaps the catalog atomically.
// Readers never observe a partially loaded state.
func (b *Bundle) reload() error {
	c, err := loadCatalog(b.dir, b.basename)
	if err != nil {
		return err
	}
	b.catalog.Store(c)
	return nil
}

// Watch starts reloading the bundle whenever its directory changes.
// It is a no-op for bundles without a directory.
func (b *Bundle) Watch() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dir == "" || b.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("message: watch: %w", err)
	}
	if err := watcher.Add(b.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("message: watch %s: %w", b.dir, err)
	}

	b.watcher = watcher
	b.done = make(chan struct{})
	go b.watchLoop(watcher, b.done)
	b.logger.Debug("message bundle watching", "dir", b.dir)
	return nil
}

func (b *Bundle) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".properties") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := b.reload(); err != nil {
				b.logger.Warn("message bundle reload failed", "error", err)
				continue
			}
			b.logger.Debug("message bundle reloaded", "file", event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			b.logger.Warn("message bundle watch error", "error", err)
		}
	}
}

// Close stops the watcher when one is running.
func (b *Bundle) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.watcher == nil {
		return nil
	}
	err := b.watcher.Close()
	<-b.done
	b.watcher = nil
	b.done = nil
	return err
}

// Static is a fixed in-memory Source, mostly useful in tests and tiny
// applications.
type Static map[string]string

// Message implements Source, ignoring the locale.
func (s Static) Message(code string, _ language.Tag, args ...any) (string, error) {
	msg, ok := s[code]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, code)
	}
	return format(msg, args), nil
}
