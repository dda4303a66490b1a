package gofu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gofu-framework/gofu/beans"
	"github.com/gofu-framework/gofu/codec"
	"github.com/gofu-framework/gofu/database"
	"github.com/gofu-framework/gofu/logging"
	"github.com/gofu-framework/gofu/message"
	"github.com/gofu-framework/gofu/metrics"
	"github.com/gofu-framework/gofu/properties"
	"github.com/gofu-framework/gofu/schedule"
)

// AppContext is a running application. It exposes the bound
// configuration, the logger, bean lookup, and shutdown. A context is
// produced by App.Start and closed exactly once; further Close calls
// are no-ops.
type AppContext struct {
	name      string
	props     *properties.Source
	loggers   *logging.Loggers
	logger    *slog.Logger
	container *beans.Container
	bundle    *message.Bundle
	codecs    *codec.Registry
	db        *database.Manager
	scheduler *schedule.Scheduler
	metrics   *metrics.Metrics
	server    *server
	onStop    []Hook

	closed atomic.Bool
}

// Name returns the application name.
func (c *AppContext) Name() string { return c.name }

// Properties returns the merged configuration source.
func (c *AppContext) Properties() *properties.Source { return c.props }

// Profiles returns the active configuration profiles.
func (c *AppContext) Profiles() []string { return c.props.Profiles() }

// Logger returns the application root logger.
func (c *AppContext) Logger() *slog.Logger { return c.logger }

// Loggers returns the log sink for minting named loggers and changing
// levels at runtime.
func (c *AppContext) Loggers() *logging.Loggers { return c.loggers }

// Beans returns the bean container for reflective lookup. Prefer the
// typed BeanOf.
func (c *AppContext) Beans() *beans.Container { return c.container }

// Messages returns the application message source.
func (c *AppContext) Messages() message.Source { return c.bundle }

// Database returns the database manager, nil when no Database block
// was declared.
func (c *AppContext) Database() *database.Manager { return c.db }

// Scheduler returns the job scheduler, nil when no jobs were declared.
func (c *AppContext) Scheduler() *schedule.Scheduler { return c.scheduler }

// IsWeb reports whether a web server was configured and started.
func (c *AppContext) IsWeb() bool { return c.server != nil }

// ServerAddr returns the bound listener address, or nil when the
// application runs without a server. With Port(0) this is where the
// ephemeral port can be read.
func (c *AppContext) ServerAddr() net.Addr {
	if c.server == nil {
		return nil
	}
	return c.server.addr()
}

// Test performs an in-process request against the web server, without
// a socket round trip. Meant for tests; fails when the application has
// no server.
func (c *AppContext) Test(req *http.Request) (*http.Response, error) {
	if c.server == nil {
		return nil, errors.New("gofu: application has no web server")
	}
	return c.server.app.Test(req, -1)
}

// serverDone exposes the listener outcome for Run. The nil channel of
// a server-less application blocks forever, which is the desired
// select behavior.
func (c *AppContext) serverDone() <-chan error {
	if c.server == nil {
		return nil
	}
	return c.server.done
}

// Close stops the application in reverse start order: stop hooks,
// scheduler, server, beans, database, message bundle, log flush.
// It is idempotent; only the first call does work.
func (c *AppContext) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.logger.Info("shutting down", "app", c.name)

	var errs []error
	for i := len(c.onStop) - 1; i >= 0; i-- {
		if err := c.onStop[i](ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("gofu: stop hook: %w", err))
		}
	}
	if c.scheduler != nil {
		if err := c.scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.server != nil {
		if err := c.server.shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.container != nil {
		if err := c.container.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.bundle != nil {
		if err := c.bundle.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	c.logger.Info("shutdown complete", "app", c.name)
	if c.loggers != nil {
		if err := c.loggers.Close(); err != nil {
			return err
		}
	}
	return nil
}

// BeanOf resolves the bean assignable to T: an exact type match first,
// otherwise the single registration assignable to T.
func BeanOf[T any](c *AppContext) (T, error) {
	return beans.Of[T](c.container)
}

// MustBeanOf is BeanOf that panics on lookup failure. Meant for
// application wiring where a missing bean is a programming error.
func MustBeanOf[T any](c *AppContext) T {
	v, err := BeanOf[T](c)
	if err != nil {
		panic(err)
	}
	return v
}
