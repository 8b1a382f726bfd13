package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"

	"github.com/kbukum/foundation/errors"
)

// Registry resolves concerns to memoized driver instances.
type Registry struct {
	host  Host
	mu    sync.RWMutex
	slots map[string]*slot
}

type slot struct {
	// mu serializes resolution so a factory runs at most once per
	// resolution cycle.
	mu       sync.Mutex
	concern  Concern
	builtins map[string]Factory
	custom   map[string]Factory
	instance any
	driver   string
	resolved bool
}

// NewRegistry creates an empty Registry bound to host.
func NewRegistry(host Host) *Registry {
	return &Registry{host: host, slots: make(map[string]*slot)}
}

func (r *Registry) slot(name string) *slot {
	r.mu.RLock()
	s, ok := r.slots[name]
	r.mu.RUnlock()
	if ok {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.slots[name]; ok {
		return s
	}
	s = &slot{
		concern:  Concern{Name: name},
		builtins: make(map[string]Factory),
		custom:   make(map[string]Factory),
	}
	r.slots[name] = s
	return s
}

// Define declares or replaces a concern's defaults and selector. Factories
// already registered for it are kept.
func (r *Registry) Define(c Concern) {
	s := r.slot(c.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concern = c
}

// RegisterBuiltin registers the built-in factory for driver.
func (r *Registry) RegisterBuiltin(concern, driver string, f Factory) {
	s := r.slot(concern)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builtins[driver] = f
}

// RegisterFactory registers a custom factory for driver. It takes
// precedence over a built-in of the same name; registering twice keeps the
// last one. Register before the concern is first resolved, or Forget it
// afterwards.
func (r *Registry) RegisterFactory(concern, driver string, f Factory) {
	s := r.slot(concern)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom[driver] = f
}

// Resolve returns the memoized instance for concern, building it on first
// use. Build failures are returned and nothing is memoized.
func (r *Registry) Resolve(concern string) (any, error) {
	s := r.slot(concern)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return s.instance, nil
	}

	store := r.host.Config()
	if s.concern.Defaults != nil {
		if patch := s.concern.Defaults(store); len(patch) > 0 {
			store = store.Merge(patch)
			r.host.RebindConfig(store)
		}
	}

	sel := s.concern.Select
	if sel == nil {
		sel = DefaultSelector(concern)
	}
	cfg, err := sel(store)
	if err != nil {
		return nil, err
	}
	cfg.Concern = concern

	factory, ok := s.custom[cfg.Driver]
	if !ok {
		factory, ok = s.builtins[cfg.Driver]
	}
	if !ok {
		return nil, errors.UnsupportedDriver(concern, cfg.Driver)
	}

	inst, err := factory(r.host, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve %s driver %q: %w", concern, cfg.Driver, err)
	}
	s.instance, s.driver, s.resolved = inst, cfg.Driver, true
	return inst, nil
}

// Rebind replaces the active instance of concern. Later Resolve calls
// return it until the next Rebind or Forget.
func (r *Registry) Rebind(concern string, instance any) {
	s := r.slot(concern)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instance, s.driver, s.resolved = instance, "", true
}

// Forget drops the memoized instance so the next Resolve builds a new one.
// The dropped instance is returned and is not closed.
func (r *Registry) Forget(concern string) any {
	s := r.slot(concern)
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.instance
	s.instance, s.driver, s.resolved = nil, "", false
	return old
}

// Resolved returns the memoized instance without building one.
func (r *Registry) Resolved(concern string) (any, bool) {
	s := r.slot(concern)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance, s.resolved
}

// Driver returns the driver name the active instance was built from, or
// "" when it was rebound or is not resolved.
func (r *Registry) Driver(concern string) string {
	s := r.slot(concern)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}

// Drivers returns the sorted names of every driver available for concern.
func (r *Registry) Drivers(concern string) []string {
	s := r.slot(concern)
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.builtins)+len(s.custom))
	for name := range s.builtins {
		seen[name] = true
	}
	for name := range s.custom {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Concerns returns the sorted names of every known concern.
func (r *Registry) Concerns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.slots))
	for name := range r.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every resolved instance that implements Closeable or
// io.Closer and forgets it.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, name := range r.Concerns() {
		switch c := r.Forget(name).(type) {
		case Closeable:
			if err := c.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		case io.Closer:
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
	}
	return stderrors.Join(errs...)
}

// Resolve returns the instance for concern as T.
func Resolve[T any](r *Registry, concern string) (T, error) {
	var zero T
	inst, err := r.Resolve(concern)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, errors.InvalidConfig(concern, fmt.Errorf("instance is %T, want %v", inst, reflect.TypeFor[T]()))
	}
	return typed, nil
}
