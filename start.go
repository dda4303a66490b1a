package gofu

import (
	"context"
	"fmt"
	"reflect"

	"github.com/gofu-framework/gofu/beans"
	"github.com/gofu-framework/gofu/codec"
	"github.com/gofu-framework/gofu/database"
	"github.com/gofu-framework/gofu/logging"
	"github.com/gofu-framework/gofu/message"
	"github.com/gofu-framework/gofu/metrics"
	"github.com/gofu-framework/gofu/properties"
	"github.com/gofu-framework/gofu/schedule"
	"github.com/gofu-framework/gofu/webclient"
)

// start executes a recorded configuration. The pipeline order is
// fixed regardless of DSL declaration order: properties, logging,
// bean registration, property binding, database, scheduler jobs,
// codecs, clients, server build, eager bean construction, listener,
// start hooks, scheduler. Components started before a failure are
// undone in reverse before the error is returned.
func start(ctx context.Context, dsl *ApplicationDSL) (*AppContext, error) {
	props, err := properties.Load(properties.Options{
		AppName:    dsl.name,
		ConfigName: dsl.props.configName,
		Paths:      dsl.props.paths,
		Profiles:   dsl.profiles,
		Defaults:   dsl.props.defaults,
	})
	if err != nil {
		return nil, err
	}
	development := props.IsDevelopment() || props.IsTest()

	logCfg := logging.Config{
		Level:       dsl.logging.level,
		Levels:      dsl.logging.levels,
		Format:      dsl.logging.format,
		Directory:   dsl.logging.directory,
		AppName:     props.AppName(),
		MaxSizeMB:   dsl.logging.maxSizeMB,
		MaxBackups:  dsl.logging.maxBackups,
		MaxAgeDays:  dsl.logging.maxAgeDays,
		Compress:    dsl.logging.compress,
		AddSource:   dsl.logging.addSource,
		Development: development,
		Output:      dsl.logging.output,
	}
	if dsl.logging.zap != nil {
		logCfg.Handler = logging.NewZapHandler(dsl.logging.zap)
	}
	loggers, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}
	logger := loggers.Root()

	var undo []func()
	fail := func(err error) (*AppContext, error) {
		logger.Error("start failed", "app", props.AppName(), "error", err)
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		_ = loggers.Close()
		return nil, err
	}

	logger.Info("starting application", "app", props.AppName(), "profiles", props.Profiles())

	bundle, err := message.NewBundle(message.Options{
		Dir:           dsl.messages.dir,
		Basename:      dsl.messages.basename,
		DefaultLocale: dsl.messages.defaultLocale,
		Logger:        loggers.Named("messages"),
	})
	if err != nil {
		return fail(err)
	}
	if dsl.messages.watch {
		if err := bundle.Watch(); err != nil {
			return fail(err)
		}
	}
	undo = append(undo, func() { _ = bundle.Close() })

	// Framework singletons are registered for injection only; their
	// lifecycle belongs to the application context, not the container.
	container := beans.NewContainer(logger)
	for _, v := range []any{props, loggers, logger, bundle} {
		if err := container.Instance(v, beans.Unmanaged()); err != nil {
			return fail(err)
		}
	}
	for _, reg := range dsl.beans {
		if reg.constructor != nil {
			err = container.Provide(reg.constructor, reg.opts...)
		} else {
			err = container.Instance(reg.value, reg.opts...)
		}
		if err != nil {
			return fail(err)
		}
	}

	if err := bindConfigurationProperties(container, props, dsl.configProps); err != nil {
		return fail(err)
	}

	var dbManager *database.Manager
	if dsl.database != nil {
		dbManager, err = connectDatabase(ctx, dsl.database, loggers)
		if err != nil {
			return fail(err)
		}
		undo = append(undo, func() { _ = dbManager.Close() })
		if err := container.Instance(dbManager, beans.Unmanaged()); err != nil {
			return fail(err)
		}
		if err := container.Instance(dbManager.GetConnection(), beans.Unmanaged()); err != nil {
			return fail(err)
		}
	}

	var scheduler *schedule.Scheduler
	if len(dsl.jobs) > 0 {
		scheduler = schedule.NewScheduler(loggers.Named("scheduler"))
		for _, job := range dsl.jobs {
			if job.cronSpec != "" {
				err = scheduler.Cron(job.cronSpec, job.name, job.handler)
			} else {
				err = scheduler.Every(job.interval, job.name, job.handler)
			}
			if err != nil {
				return fail(err)
			}
		}
		if err := container.Instance(scheduler, beans.Unmanaged()); err != nil {
			return fail(err)
		}
	}

	var declared []codec.Codec
	if dsl.server != nil {
		declared = dsl.server.codecs
	}
	registry, err := codec.NewRegistry(declared...)
	if err != nil {
		return fail(err)
	}

	for _, spec := range dsl.clients {
		cfg := spec.cfg
		cfg.Codecs = registry
		client, err := webclient.New(cfg)
		if err != nil {
			return fail(err)
		}
		var opts []BeanOption
		if spec.name != "" {
			opts = append(opts, Named(spec.name))
		}
		if err := container.Instance(client, opts...); err != nil {
			return fail(err)
		}
	}

	appCtx := &AppContext{
		name:      props.AppName(),
		props:     props,
		loggers:   loggers,
		logger:    logger,
		container: container,
		bundle:    bundle,
		codecs:    registry,
		db:        dbManager,
		scheduler: scheduler,
		onStop:    dsl.onStop,
	}

	if dsl.server != nil {
		if dsl.server.metrics != nil {
			m := metrics.New(metrics.Config{
				Namespace:                dsl.server.metrics.namespace,
				Path:                     dsl.server.metrics.path,
				DisableRuntimeCollectors: dsl.server.metrics.disableRuntime,
			})
			if err := container.Instance(m); err != nil {
				return fail(err)
			}
			appCtx.metrics = m
		}
		srv, err := newServer(dsl.server, appCtx, development)
		if err != nil {
			return fail(err)
		}
		appCtx.server = srv
	}

	if err := container.Start(ctx); err != nil {
		_ = container.Close(context.Background())
		return fail(err)
	}
	undo = append(undo, func() { _ = container.Close(context.Background()) })

	if appCtx.server != nil {
		if err := appCtx.server.start(); err != nil {
			return fail(err)
		}
		undo = append(undo, func() { _ = appCtx.server.shutdown(context.Background()) })
		logger.Info("server listening", "addr", appCtx.server.addr().String())
	}

	for _, hook := range dsl.onStart {
		if err := hook(ctx, appCtx); err != nil {
			return fail(fmt.Errorf("gofu: start hook: %w", err))
		}
	}

	if scheduler != nil {
		scheduler.Start()
	}

	logger.Info("application started", "app", appCtx.name, "web", appCtx.IsWeb())
	return appCtx, nil
}

// bindConfigurationProperties binds each declared subtree onto its
// target and registers the bound struct as a bean. Binding two targets
// of the same type is rejected so bean lookup stays unambiguous.
func bindConfigurationProperties(container *beans.Container, props *properties.Source, bindings []configPropsBinding) error {
	seen := make(map[reflect.Type]bool, len(bindings))
	for _, binding := range bindings {
		if binding.target == nil {
			return fmt.Errorf("gofu: configuration properties target for prefix %q is nil", binding.prefix)
		}
		t := reflect.TypeOf(binding.target)
		if seen[t] {
			return fmt.Errorf("gofu: configuration properties %s bound twice", t)
		}
		seen[t] = true
		if err := props.Bind(binding.prefix, binding.target); err != nil {
			return err
		}
		if err := container.Instance(binding.target); err != nil {
			return err
		}
	}
	return nil
}

// connectDatabase brings the database up eagerly so a bad DSN or
// failing migration fails the start instead of the first request.
func connectDatabase(ctx context.Context, spec *databaseSpec, loggers *logging.Loggers) (*database.Manager, error) {
	if spec.driver == nil {
		return nil, fmt.Errorf("gofu: database block declares no driver; call SQLite, Postgres, or Driver")
	}
	manager := database.NewManager(spec.driver, spec.cfg, loggers.Named("database"))
	if _, err := manager.Connect(); err != nil {
		return nil, err
	}
	if err := manager.Ping(ctx); err != nil {
		_ = manager.Close()
		return nil, err
	}
	if len(spec.models) > 0 {
		if err := manager.Migrate(database.NewAutoMigrator(spec.models...)); err != nil {
			_ = manager.Close()
			return nil, err
		}
	}
	if spec.migrator != nil {
		if err := manager.Migrate(spec.migrator); err != nil {
			_ = manager.Close()
			return nil, err
		}
	}
	return manager, nil
}
