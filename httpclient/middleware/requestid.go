package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/foundation/httpclient"
)

// RequestIDHeader carries the request id.
const RequestIDHeader = "X-Request-Id"

// RequestID sets a fresh X-Request-Id on requests that do not carry one.
func RequestID() httpclient.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return httpclient.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(req)
			}
			req = req.Clone(req.Context())
			req.Header.Set(RequestIDHeader, uuid.New().String())
			return next.RoundTrip(req)
		})
	}
}
