// Package beans implements the bean container backing an application:
// typed singleton registrations resolved by constructor injection.
//
// Beans are registered with either a constructor function or a ready
// instance, then built eagerly when the container starts. Constructors
// declare their dependencies as parameters; the container resolves each
// parameter by type against the other registrations, detects cycles, and
// fails fast on missing or ambiguous dependencies. After a successful
// start the container is immutable and safe for concurrent reads.
package beans

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Shutdowner is implemented by beans that need a context-aware stop.
// It takes precedence over io.Closer when both are implemented.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Definition records a single registration: how the bean is named, what
// type it produces, and how to build it.
type Definition struct {
	name        string
	typ         reflect.Type
	constructor reflect.Value
	instance    reflect.Value
	built       bool
	explicit    bool // name came from WithName, not derived from the type
	unmanaged   bool // lifecycle owned elsewhere; Close skips it
}

// Name returns the bean name, either explicit or derived from the type.
func (d *Definition) Name() string { return d.name }

// Type returns the type the definition produces.
func (d *Definition) Type() reflect.Type { return d.typ }

// Option customizes a registration.
type Option func(*Definition)

// WithName overrides the derived bean name. Names must be unique within
// a container; two beans of the same type need distinct names.
func WithName(name string) Option {
	return func(d *Definition) {
		d.name = name
		d.explicit = true
	}
}

// Unmanaged registers the bean without lifecycle ownership: Close will
// not stop it. For values whose lifecycle is owned outside the
// container.
func Unmanaged() Option {
	return func(d *Definition) {
		d.unmanaged = true
	}
}

// Container holds bean definitions and, once started, their singleton
// instances. Registration happens before Start; resolution after.
type Container struct {
	mu      sync.RWMutex
	defs    []*Definition
	byName  map[string]*Definition
	byType  map[reflect.Type][]*Definition
	closers []*Definition
	started bool
	logger  *slog.Logger
}

// NewContainer returns an empty container. The logger may be nil, in
// which case build activity is not logged.
func NewContainer(logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Container{
		byName: make(map[string]*Definition),
		byType: make(map[reflect.Type][]*Definition),
		logger: logger,
	}
}

// Provide registers a constructor for a bean. The constructor must be a
// non-variadic function returning (T) or (T, error); its parameters are
// resolved as dependencies when the container starts.
func (c *Container) Provide(constructor any, opts ...Option) error {
	if constructor == nil {
		return errors.New("beans: constructor is nil")
	}
	v := reflect.ValueOf(constructor)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return fmt.Errorf("beans: constructor must be a function, got %T", constructor)
	}
	if t.IsVariadic() {
		return fmt.Errorf("beans: variadic constructor %s is not supported", t)
	}
	switch t.NumOut() {
	case 1:
		if t.Out(0) == errType {
			return fmt.Errorf("beans: constructor %s returns only an error", t)
		}
	case 2:
		if t.Out(1) != errType {
			return fmt.Errorf("beans: constructor %s second return value must be error", t)
		}
	default:
		return fmt.Errorf("beans: constructor %s must return (T) or (T, error)", t)
	}

	def := &Definition{
		typ:         t.Out(0),
		constructor: v,
	}
	for _, opt := range opts {
		opt(def)
	}
	if def.name == "" {
		def.name = typeName(def.typ)
	}
	return c.register(def)
}

// Instance registers an already constructed value as a bean.
func (c *Container) Instance(value any, opts ...Option) error {
	if value == nil {
		return errors.New("beans: instance is nil")
	}
	rv := reflect.ValueOf(value)
	def := &Definition{
		typ:      rv.Type(),
		instance: rv,
		built:    true,
	}
	for _, opt := range opts {
		opt(def)
	}
	if def.name == "" {
		def.name = typeName(def.typ)
	}
	return c.register(def)
}

func (c *Container) register(def *Definition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("beans: cannot register %q after the container has started", def.name)
	}
	if existing, ok := c.byName[def.name]; ok {
		if def.explicit || existing.explicit {
			return fmt.Errorf("beans: bean name %q already registered", def.name)
		}
		return fmt.Errorf("beans: bean of type %s already registered, use WithName to disambiguate", def.typ)
	}

	c.defs = append(c.defs, def)
	c.byName[def.name] = def
	c.byType[def.typ] = append(c.byType[def.typ], def)
	if def.built {
		c.trackCloser(def)
	}
	return nil
}

// Start eagerly builds every registered bean in registration order,
// resolving constructor parameters against the other registrations.
// On failure the container stays unstarted; beans built so far are shut
// down via Close by the caller.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.New("beans: container already started")
	}

	resolving := make(map[*Definition]bool)
	for _, def := range c.defs {
		if err := c.build(ctx, def, resolving, nil); err != nil {
			return err
		}
	}
	c.started = true
	c.logger.Debug("bean container started", "beans", len(c.defs))
	return nil
}

// build constructs def and, recursively, its dependencies. The resolving
// map and the chain track the in-flight path for cycle reporting.
func (c *Container) build(ctx context.Context, def *Definition, resolving map[*Definition]bool, chain []string) error {
	if def.built {
		return nil
	}
	if resolving[def] {
		return fmt.Errorf("beans: dependency cycle: %s", strings.Join(append(chain, def.name), " -> "))
	}
	resolving[def] = true
	defer delete(resolving, def)
	chain = append(chain, def.name)

	ft := def.constructor.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		dep, err := c.resolveLocked(ctx, ft.In(i), resolving, chain)
		if err != nil {
			return fmt.Errorf("beans: building %q: %w", def.name, err)
		}
		args[i] = dep
	}

	out := def.constructor.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return fmt.Errorf("beans: constructor for %q: %w", def.name, out[1].Interface().(error))
	}
	def.instance = out[0]
	def.built = true
	c.trackCloser(def)
	c.logger.Debug("bean constructed", "name", def.name, "type", def.typ.String())
	return nil
}

// resolveLocked finds the unique definition satisfying t and returns its
// built instance, constructing it on demand. Callers hold c.mu.
func (c *Container) resolveLocked(ctx context.Context, t reflect.Type, resolving map[*Definition]bool, chain []string) (reflect.Value, error) {
	def, err := c.lookup(t)
	if err != nil {
		return reflect.Value{}, err
	}
	if err := c.build(ctx, def, resolving, chain); err != nil {
		return reflect.Value{}, err
	}
	return def.instance, nil
}

// lookup selects the definition for a requested type: exact matches win,
// then assignable ones. Ambiguity is an error rather than a guess.
func (c *Container) lookup(t reflect.Type) (*Definition, error) {
	matches := c.byType[t]
	if len(matches) == 0 {
		for _, def := range c.defs {
			if def.typ != t && def.typ.AssignableTo(t) {
				matches = append(matches, def)
			}
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no bean of type %s", t)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.name
		}
		sort.Strings(names)
		return nil, fmt.Errorf("multiple beans satisfy type %s: %s", t, strings.Join(names, ", "))
	}
}

func (c *Container) trackCloser(def *Definition) {
	if def.unmanaged {
		return
	}
	iface := def.instance.Interface()
	switch iface.(type) {
	case Shutdowner, io.Closer:
		c.closers = append(c.closers, def)
	}
}

// Get returns the built bean satisfying t. It is only valid after Start.
func (c *Container) Get(t reflect.Type) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started {
		return nil, errors.New("beans: container not started")
	}
	def, err := c.lookup(t)
	if err != nil {
		return nil, err
	}
	return def.instance.Interface(), nil
}

// GetNamed returns the built bean registered under name.
func (c *Container) GetNamed(name string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started {
		return nil, errors.New("beans: container not started")
	}
	def, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("no bean named %q", name)
	}
	return def.instance.Interface(), nil
}

// Contains reports whether some registration satisfies t.
func (c *Container) Contains(t reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, err := c.lookup(t)
	return err == nil
}

// Names returns the registered bean names in registration order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.defs))
	for i, def := range c.defs {
		names[i] = def.name
	}
	return names
}

// Close shuts down built beans in reverse construction order. Beans
// implementing Shutdowner are stopped with ctx; otherwise io.Closer is
// used. All errors are collected rather than aborting the sweep.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		def := c.closers[i]
		var err error
		switch v := def.instance.Interface().(type) {
		case Shutdowner:
			err = v.Shutdown(ctx)
		case io.Closer:
			err = v.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("closing bean %q: %w", def.name, err))
		}
	}
	c.closers = nil
	c.started = false
	return errors.Join(errs...)
}

// Of resolves a bean by its static type.
func Of[T any](c *Container) (T, error) {
	var zero T
	v, err := c.Get(reflect.TypeOf(&zero).Elem())
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// typeName derives the default bean name from a type, dropping the
// pointer marker so *pkg.Foo and pkg.Foo read the same in errors.
func typeName(t reflect.Type) string {
	return strings.TrimPrefix(t.String(), "*")
}
