package foundation

import (
	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/provider"
)

// ServiceProvider registers extra concerns or drivers on an App. Providers
// run after the built-in ones, in the order given.
type ServiceProvider interface {
	Register(app *App) error
}

// ProviderFunc adapts a function to ServiceProvider.
type ProviderFunc func(app *App) error

// Register implements ServiceProvider.
func (f ProviderFunc) Register(app *App) error { return f(app) }

// Option configures an App.
type Option func(*options)

type options struct {
	providers []ServiceProvider
	factories []factoryOverride
	loader    []config.LoaderOption
}

type factoryOverride struct {
	concern string
	driver  string
	factory provider.Factory
}

// WithProviders appends service providers.
func WithProviders(p ...ServiceProvider) Option {
	return func(o *options) { o.providers = append(o.providers, p...) }
}

// WithFactory registers a custom driver factory, like App.Extend.
func WithFactory(concern, driver string, f provider.Factory) Option {
	return func(o *options) {
		o.factories = append(o.factories, factoryOverride{concern, driver, f})
	}
}

// WithLoaderOptions passes options to config.Load when the App is created
// with Load.
func WithLoaderOptions(opts ...config.LoaderOption) Option {
	return func(o *options) { o.loader = append(o.loader, opts...) }
}

func resolveOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
