// Package config provides the immutable configuration store shared by every
// foundation provider.
//
// A Store wraps a Viper instance. Keys are dotted paths ("http.timeout") and
// are matched case-insensitively. Stores never change in place: Merge
// returns a new Store, and the App swaps the new one in with RebindConfig.
//
// # Usage
//
//	store := config.New(map[string]any{
//		"cache": map[string]any{"driver": "filesystem", "dir": "/tmp/x"},
//	})
//	dir := store.GetString("cache.dir", "")
//
// Load reads a config.yml and .env file the same way services do, binding
// SERVICE_PREFIXED environment variables on top.
package config
