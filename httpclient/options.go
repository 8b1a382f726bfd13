package httpclient

import (
	"maps"
	"net/http"
	"time"
)

// Options are the per-request settings. A request carries at most one of
// JSON, Form, Multipart and Body.
type Options struct {
	// Query is merged into the URL query. Nested maps and slices are
	// flattened to a[b] and a[0].
	Query map[string]any
	// Headers are set on the request after the configured defaults.
	Headers map[string]string
	// JSON is encoded as the request body. Empty maps and slices are sent as {}.
	JSON any
	// Form is sent url-encoded, nested fields flattened.
	Form map[string]any
	// Multipart parts are sent as multipart/form-data.
	Multipart []Part
	// Body is sent as-is: []byte, string or io.Reader.
	Body any

	Auth *AuthConfig

	Timeout        time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// ResponseType names the format the response is decoded into.
	ResponseType string
	// HTTPErrors overrides Config.HTTPErrors for this request.
	HTTPErrors *bool

	// Handler executes the request. The client always binds its handler
	// stack here, replacing any caller value.
	Handler http.RoundTripper
}

// Merge returns o with every non-zero field of over applied. Headers and
// Query merge key by key.
func (o Options) Merge(over Options) Options {
	out := o
	out.Query = mergeMap(o.Query, over.Query)
	out.Headers = mergeMap(o.Headers, over.Headers)
	if over.JSON != nil {
		out.JSON = over.JSON
	}
	if over.Form != nil {
		out.Form = over.Form
	}
	if over.Multipart != nil {
		out.Multipart = over.Multipart
	}
	if over.Body != nil {
		out.Body = over.Body
	}
	if over.Auth != nil {
		out.Auth = over.Auth
	}
	if over.Timeout > 0 {
		out.Timeout = over.Timeout
	}
	if over.ConnectTimeout > 0 {
		out.ConnectTimeout = over.ConnectTimeout
	}
	if over.ReadTimeout > 0 {
		out.ReadTimeout = over.ReadTimeout
	}
	if over.ResponseType != "" {
		out.ResponseType = over.ResponseType
	}
	if over.HTTPErrors != nil {
		out.HTTPErrors = over.HTTPErrors
	}
	if over.Handler != nil {
		out.Handler = over.Handler
	}
	return out
}

func mergeMap[V any](base, over map[string]V) map[string]V {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

// Bool returns a pointer to b, for Options.HTTPErrors.
func Bool(b bool) *bool { return &b }
