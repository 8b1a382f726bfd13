// Package httpclient sends HTTP requests through a composable middleware
// stack and negotiates the responses into the representation a caller asks
// for.
//
// Client is the pipeline: it merges per-call Options over its defaults,
// binds the resolved HandlerStack, executes the exchange with an Adapter,
// dispatches an events.HTTPResponseCreated and decodes the captured
// response.Envelope.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	users, err := client.Get(ctx, "https://api.example.com/users", map[string]any{"page": 2})
//
// # Middleware
//
//	client.PushMiddleware(middleware.RequestID(), "request_id")
//	client.PushMiddleware(middleware.Retry(middleware.DefaultRetryConfig()), "retry")
//
// The first middleware pushed is the outermost one. Unless http.log is
// false a trailing "log" middleware writes every exchange at debug level.
package httpclient
