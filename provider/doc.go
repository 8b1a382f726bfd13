// Package provider implements the driver resolution registry behind every
// foundation concern (cache, log, and any concern an SDK adds).
//
// A concern is a named capability. Its driver is chosen from configuration
// (by default "<concern>.driver"), built once by a factory and memoized
// until it is rebound or forgotten. Custom factories registered with
// RegisterFactory always take precedence over built-in factories of the
// same driver name, which is how SDKs swap implementations without
// touching the host.
//
//	reg := provider.NewRegistry(host)
//	reg.RegisterBuiltin("cache", "filesystem", newFilesystemCache)
//	reg.RegisterFactory("cache", "filesystem", newEncryptedCache) // wins
//	c, err := provider.Resolve[cache.Cache](reg, "cache")
package provider
