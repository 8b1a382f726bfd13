package foundation

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/foundation/cache"
	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/errors"
	"github.com/kbukum/foundation/events"
	"github.com/kbukum/foundation/httpclient"
	"github.com/kbukum/foundation/logger"
	"github.com/kbukum/foundation/provider"
)

// Fixed service slots. Any other name passed to Rebind is a registry
// concern.
const (
	SlotConfig = "config"
	SlotEvents = "events"
	SlotHTTP   = "http"
)

// App is the host context of an SDK. Services are built on first use and
// memoized until rebound. It is safe for concurrent use.
type App struct {
	mu       sync.RWMutex
	store    *config.Store
	registry *provider.Registry
	bus      *events.Bus
	http     *httpclient.Client
}

var _ provider.Host = (*App)(nil)

// New creates an App over values.
func New(values map[string]any, opts ...Option) (*App, error) {
	return newApp(config.New(values), resolveOptions(opts))
}

// Load creates an App from the service's config file and environment.
// See config.Load.
func Load(serviceName string, opts ...Option) (*App, error) {
	o := resolveOptions(opts)
	store, err := config.Load(serviceName, o.loader...)
	if err != nil {
		return nil, err
	}
	return newApp(store, o)
}

func newApp(store *config.Store, o *options) (*App, error) {
	a := &App{store: store}
	a.registry = provider.NewRegistry(a)

	cache.Register(a.registry)
	logger.Register(a.registry)

	for _, f := range o.factories {
		a.Extend(f.concern, f.driver, f.factory)
	}
	for i, p := range o.providers {
		if err := p.Register(a); err != nil {
			return nil, fmt.Errorf("service provider %d: %w", i, err)
		}
	}
	return a, nil
}

// Config returns the current configuration.
func (a *App) Config() *config.Store {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store
}

// RebindConfig replaces the configuration. Services already built keep
// the configuration they were built with.
func (a *App) RebindConfig(store *config.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store = store
}

// Registry returns the driver registry behind the cache and log concerns.
func (a *App) Registry() *provider.Registry { return a.registry }

// Extend registers a custom factory for driver under concern. It wins over
// a built-in driver of the same name.
func (a *App) Extend(concern, driver string, f provider.Factory) {
	a.registry.RegisterFactory(concern, driver, f)
}

// Cache returns the configured cache.
func (a *App) Cache() (cache.Cache, error) {
	return provider.Resolve[cache.Cache](a.registry, cache.Concern)
}

// Log returns the logger of the default log channel.
func (a *App) Log() (*logger.Logger, error) {
	return provider.Resolve[*logger.Logger](a.registry, logger.Concern)
}

// Events returns the event bus, built from events.listen on first use.
func (a *App) Events() (*events.Bus, error) {
	a.mu.RLock()
	bus := a.bus
	a.mu.RUnlock()
	if bus != nil {
		return bus, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bus != nil {
		return a.bus, nil
	}
	bus, err := events.FromConfig(a.store)
	if err != nil {
		return nil, err
	}
	a.bus = bus
	return bus, nil
}

// HTTP returns the HTTP pipeline, built from the http section on first
// use. Its log middleware and event dispatch go through Log and Events, so
// rebinding either takes effect on the next request.
func (a *App) HTTP() (*httpclient.Client, error) {
	a.mu.RLock()
	client := a.http
	a.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.http != nil {
		return a.http, nil
	}
	client, err := httpclient.NewFromConfig(a.store,
		httpclient.WithLoggerFunc(a.Log),
		httpclient.WithDispatcherFunc(a.dispatcher),
	)
	if err != nil {
		return nil, err
	}
	a.http = client
	return client, nil
}

func (a *App) dispatcher() (httpclient.Dispatcher, error) {
	bus, err := a.Events()
	if err != nil {
		return nil, err
	}
	return bus, nil
}

// Rebind replaces the service called name. config, events and http take
// a *config.Store, *events.Bus and *httpclient.Client; cache needs a
// cache.Cache and log a *logger.Logger. Other names rebind a registry
// concern with any value.
func (a *App) Rebind(name string, v any) error {
	switch name {
	case SlotConfig:
		store, ok := v.(*config.Store)
		if !ok || store == nil {
			return slotTypeError(name, v, "*config.Store")
		}
		a.RebindConfig(store)
	case SlotEvents:
		bus, ok := v.(*events.Bus)
		if !ok || bus == nil {
			return slotTypeError(name, v, "*events.Bus")
		}
		a.mu.Lock()
		a.bus = bus
		a.mu.Unlock()
	case SlotHTTP:
		client, ok := v.(*httpclient.Client)
		if !ok || client == nil {
			return slotTypeError(name, v, "*httpclient.Client")
		}
		a.mu.Lock()
		a.http = client
		a.mu.Unlock()
	case cache.Concern:
		if _, ok := v.(cache.Cache); !ok {
			return slotTypeError(name, v, "cache.Cache")
		}
		a.registry.Rebind(name, v)
	case logger.Concern:
		if l, ok := v.(*logger.Logger); !ok || l == nil {
			return slotTypeError(name, v, "*logger.Logger")
		}
		a.registry.Rebind(name, v)
	default:
		a.registry.Rebind(name, v)
	}
	return nil
}

func slotTypeError(name string, v any, want string) error {
	return errors.InvalidConfig(name, fmt.Errorf("cannot bind %T, want %s", v, want))
}

// Close releases the HTTP transport and every resolved concern that holds
// resources.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	client := a.http
	a.http = nil
	a.mu.Unlock()

	var errs []error
	if client != nil {
		if err := client.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.registry.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}
