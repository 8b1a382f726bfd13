// Package cache defines the cache capability foundation hosts expose and
// its built-in drivers.
//
// The "cache" concern defaults to a filesystem cache under the system temp
// directory when cache.driver is not configured. The redis driver wraps a
// go-redis handle passed in as cache.client, or dials cache.addr.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/provider"
)

// Concern is the registry concern name for caching.
const Concern = "cache"

// Built-in drivers.
const (
	DriverFilesystem = "filesystem"
	DriverRedis      = "redis"
)

// DefaultDir is the filesystem cache directory used when none is configured.
var DefaultDir = filepath.Join(os.TempDir(), "foundation")

// Cache stores opaque byte payloads by id.
type Cache interface {
	// Fetch returns the payload for id. A missing or expired entry is
	// reported as ok=false with a nil error.
	Fetch(ctx context.Context, id string) (data []byte, ok bool, err error)
	Contains(ctx context.Context, id string) (bool, error)
	// Save stores data under id. A ttl of zero or less never expires.
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	// Flush removes every entry owned by this cache.
	Flush(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// Stats describes cache usage. Fields a driver cannot report are zero.
type Stats struct {
	Hits            int64
	Misses          int64
	Uptime          time.Duration
	MemoryUsage     int64
	MemoryAvailable int64
}

// Register defines the cache concern on r with its built-in drivers.
func Register(r *provider.Registry) {
	r.Define(provider.Concern{Name: Concern, Defaults: defaults})
	r.RegisterBuiltin(Concern, DriverFilesystem, filesystemFactory)
	r.RegisterBuiltin(Concern, DriverRedis, redisFactory)
}

func defaults(store *config.Store) map[string]any {
	if store.GetString("cache.driver", "") != "" {
		return nil
	}
	return map[string]any{"cache": map[string]any{
		"driver": DriverFilesystem,
		"dir":    store.GetString("cache.dir", DefaultDir),
	}}
}

// Typed stores JSON-encoded values of T in a Cache.
type Typed[T any] struct {
	cache     Cache
	keyPrefix string
}

// NewTyped creates a Typed view over c. Keys are prefixed with keyPrefix
// followed by a colon when keyPrefix is not empty.
func NewTyped[T any](c Cache, keyPrefix string) *Typed[T] {
	return &Typed[T]{cache: c, keyPrefix: keyPrefix}
}

func (s *Typed[T]) fullKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Load decodes the value at key. Returns (nil, nil) when it is absent.
func (s *Typed[T]) Load(ctx context.Context, key string) (*T, error) {
	raw, ok, err := s.cache.Fetch(ctx, s.fullKey(key))
	if err != nil {
		return nil, fmt.Errorf("typed cache load %q: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	var val T
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, fmt.Errorf("typed cache unmarshal %q: %w", key, err)
	}
	return &val, nil
}

// Save encodes val and stores it with ttl.
func (s *Typed[T]) Save(ctx context.Context, key string, val *T, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("typed cache marshal %q: %w", key, err)
	}
	if err := s.cache.Save(ctx, s.fullKey(key), data, ttl); err != nil {
		return fmt.Errorf("typed cache save %q: %w", key, err)
	}
	return nil
}

// Delete removes the value at key.
func (s *Typed[T]) Delete(ctx context.Context, key string) error {
	if err := s.cache.Delete(ctx, s.fullKey(key)); err != nil {
		return fmt.Errorf("typed cache delete %q: %w", key, err)
	}
	return nil
}
