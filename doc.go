// Package foundation is the shared base for API client SDKs. An App owns
// the configuration and lazily wires the services an SDK needs: a cache, a
// logger, an event bus and an HTTP pipeline.
//
// Cache and log are driver-backed concerns resolved through a
// provider.Registry, so an SDK can swap implementations by configuration
// or register its own drivers:
//
//	app, err := foundation.New(map[string]any{
//	    "cache": map[string]any{"driver": "redis", "client": rdb},
//	    "http":  map[string]any{"base_url": "https://api.example.com"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer app.Close(ctx)
//
//	client, err := app.HTTP()
//	users, err := client.Get(ctx, "/users", nil)
package foundation
