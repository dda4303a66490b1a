// Package gofu configures and runs applications through a declarative
// functional DSL. An application is described once as a configuration
// function and executed later: nothing is loaded, connected, or bound
// until Start.
//
//	app := gofu.Application(func(a *gofu.ApplicationDSL) {
//	    a.Beans(func(b *gofu.BeansDSL) {
//	        b.Provide(NewUserRepository)
//	        b.Provide(NewUserHandler)
//	    })
//	    a.Server(func(s *gofu.ServerDSL) {
//	        s.Port(8080)
//	        s.Router(func(r *gofu.RouterDSL) {
//	            r.GET("/users/:id", showUser)
//	        })
//	    })
//	})
//	if err := app.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Lifecycle
//
// Application and WebApplication only record the configuration. Start
// executes it: properties are loaded and merged with profile overrides,
// the logger is built, beans are registered and eagerly constructed,
// configuration properties are bound and validated, the database
// connects and migrates, the server begins listening, and the scheduler
// starts. Start is one-shot and non-blocking; it returns an AppContext
// for bean lookup and shutdown. Run wraps Start with signal handling
// and a graceful close.
//
// A failed Start tears down everything it already brought up, in
// reverse order, before returning the error.
//
// # Handlers
//
// All routes share one handler signature:
//
//	func(c *gofu.Context) error
//
// Context embeds *fiber.Ctx, so every Fiber method is available, plus
// codec-aware Decode and Respond, message resolution, validation, and
// request-scoped database sessions.
//
// # Reusable configurations
//
// Configuration functions compose. A library can export a
// func(*gofu.ConfigurationDSL) wiring its beans and properties, and
// applications import it with Enable:
//
//	a.Enable(storage.Configuration)
//
// Beans, hooks, and property bindings registered through Enable keep
// their declaration order relative to the enclosing configuration.
package gofu
