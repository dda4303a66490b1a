package gofu

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofu-framework/gofu/beans"
)

// DefaultShutdownTimeout bounds the graceful close performed by Run.
const DefaultShutdownTimeout = 10 * time.Second

// ErrAlreadyStarted is returned by Start when the application has
// already been started once.
var ErrAlreadyStarted = errors.New("gofu: application already started")

// BeanOption customizes a bean registration.
type BeanOption = beans.Option

// Named assigns an explicit bean name, letting several beans of the
// same type coexist.
func Named(name string) BeanOption { return beans.WithName(name) }

// Unmanaged registers a bean the container must not close on shutdown,
// for values whose lifecycle is owned by the caller.
func Unmanaged() BeanOption { return beans.Unmanaged() }

// Hook runs during application startup or shutdown. Start hooks run
// after every component is up but before Start returns; stop hooks run
// first during Close, in reverse registration order.
type Hook func(ctx context.Context, app *AppContext) error

// App is a recorded application configuration. It carries no live
// resources until Start executes it.
type App struct {
	configure func(*ApplicationDSL)
	web       bool

	mu      sync.Mutex
	started bool
}

// Application records a configuration function. The function is not
// evaluated until Start.
func Application(configure func(*ApplicationDSL)) *App {
	return &App{configure: configure}
}

// WebApplication records a configuration function and guarantees a web
// server: when the configuration declares no Server block, a default
// listener is added at start.
func WebApplication(configure func(*ApplicationDSL)) *App {
	return &App{configure: configure, web: true}
}

// Start evaluates the recorded configuration and brings the
// application up: properties, logging, beans, property bindings,
// database, server, scheduler. It is one-shot and non-blocking. On
// failure everything already started is closed in reverse order before
// the error is returned.
func (a *App) Start(ctx context.Context) (*AppContext, error) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	a.started = true
	a.mu.Unlock()

	dsl := newApplicationDSL()
	if a.configure != nil {
		a.configure(dsl)
	}
	if a.web && dsl.server == nil {
		dsl.server = newServerDSL()
	}
	return start(ctx, dsl)
}

// Run starts the application and blocks until SIGINT or SIGTERM, then
// closes gracefully within DefaultShutdownTimeout.
func (a *App) Run() error {
	return a.RunWithTimeout(DefaultShutdownTimeout)
}

// RunWithTimeout starts the application and blocks until a termination
// signal arrives or the server fails, then closes gracefully within
// the given timeout.
func (a *App) RunWithTimeout(timeout time.Duration) error {
	appCtx, err := a.Start(context.Background())
	if err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		appCtx.Logger().Info("shutdown signal received", "signal", sig.String())
	case err := <-appCtx.serverDone():
		if err != nil {
			appCtx.Logger().Error("server terminated unexpectedly", "error", err)
			runErr = err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := appCtx.Close(ctx); err != nil {
		appCtx.Logger().Error("graceful shutdown failed", "error", err)
		return errors.Join(runErr, err)
	}
	return runErr
}
