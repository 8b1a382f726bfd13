// Package middleware provides opt-in httpclient middlewares: request ids,
// retries with exponential backoff, Prometheus metrics and OpenTelemetry
// tracing.
//
//	client.PushMiddleware(middleware.RequestID(), "request_id")
//	client.PushMiddleware(middleware.Tracing(otel.GetTracerProvider(), nil), "tracing")
//	client.PushMiddleware(middleware.Retry(middleware.DefaultRetryConfig()), "retry")
package middleware
