package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/errors"
)

// Host is the configuration owner a Registry resolves against. Concern
// defaults are merged into its store and swapped back in with
// RebindConfig before selection.
type Host interface {
	Config() *config.Store
	RebindConfig(store *config.Store)
}

// Factory builds a concern instance from the host and the selected driver
// configuration.
type Factory func(host Host, cfg DriverConfig) (any, error)

// Concern declares how a named capability picks its driver.
type Concern struct {
	Name string
	// Defaults returns a patch merged into the host configuration before
	// selection. A nil or empty patch leaves the configuration untouched.
	Defaults func(store *config.Store) map[string]any
	// Select extracts the driver configuration. Nil means DefaultSelector.
	Select func(store *config.Store) (DriverConfig, error)
}

// Closeable is implemented by instances that hold resources (open files,
// connections) and need cleanup when the registry closes.
type Closeable interface {
	Close(ctx context.Context) error
}

// DriverConfig is the configuration selected for one concern.
type DriverConfig struct {
	Concern string
	Driver  string
	Options map[string]any
}

// Value returns the option at key, or def. Keys are matched
// case-insensitively because configuration keys are lower-cased on load.
func (c DriverConfig) Value(key string, def any) any {
	if v, ok := c.Options[key]; ok && v != nil {
		return v
	}
	if v, ok := c.Options[strings.ToLower(key)]; ok && v != nil {
		return v
	}
	return def
}

// String returns the option at key formatted as a string, or def.
func (c DriverConfig) String(key, def string) string {
	v := c.Value(key, nil)
	if v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Decode maps the options onto out. See config.Decode.
func (c DriverConfig) Decode(out any) error {
	if err := config.Decode(c.Options, out); err != nil {
		return errors.InvalidConfig(c.Concern, err)
	}
	return nil
}

// DefaultSelector reads "<concern>.driver" and passes every key under
// "<concern>" as options.
func DefaultSelector(concern string) func(store *config.Store) (DriverConfig, error) {
	return func(store *config.Store) (DriverConfig, error) {
		driver := store.GetString(concern+".driver", "")
		if driver == "" {
			return DriverConfig{}, errors.InvalidConfig(concern+".driver", fmt.Errorf("no driver selected"))
		}
		return DriverConfig{Concern: concern, Driver: driver, Options: store.GetStringMap(concern)}, nil
	}
}

// StoreHost is a minimal Host over a single store, for registries used
// outside an App.
type StoreHost struct {
	mu    sync.RWMutex
	store *config.Store
}

// NewStoreHost creates a StoreHost. A nil store is treated as empty.
func NewStoreHost(store *config.Store) *StoreHost {
	if store == nil {
		store = config.New(nil)
	}
	return &StoreHost{store: store}
}

// Config returns the current store.
func (h *StoreHost) Config() *config.Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store
}

// RebindConfig swaps the current store.
func (h *StoreHost) RebindConfig(store *config.Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store = store
}
