package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

type timeoutsKey struct{}

type timeouts struct {
	connect time.Duration
	read    time.Duration
}

func withTimeouts(ctx context.Context, t timeouts) context.Context {
	if t == (timeouts{}) {
		return ctx
	}
	return context.WithValue(ctx, timeoutsKey{}, t)
}

// baseTransport is the innermost handler. It applies the connect and read
// timeouts carried by the request context, keeping one transport clone per
// timeout pair so connections are pooled per pair.
type baseTransport struct {
	base *http.Transport

	mu     sync.Mutex
	clones map[timeouts]*http.Transport
}

func newBaseTransport(cfg Config) (*baseTransport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.Verify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via http.verify=false
	}
	if cfg.Proxy != "" {
		proxy, err := parseProxy(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		t.Proxy = http.ProxyURL(proxy)
	}
	return &baseTransport{base: t, clones: make(map[timeouts]*http.Transport)}, nil
}

// RoundTrip implements http.RoundTripper.
func (b *baseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t, _ := req.Context().Value(timeoutsKey{}).(timeouts)
	return b.transportFor(t).RoundTrip(req)
}

func (b *baseTransport) transportFor(t timeouts) *http.Transport {
	if t == (timeouts{}) {
		return b.base
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.clones[t]; ok {
		return c
	}
	c := b.base.Clone()
	if t.connect > 0 {
		c.DialContext = (&net.Dialer{Timeout: t.connect, KeepAlive: 30 * time.Second}).DialContext
		c.TLSHandshakeTimeout = t.connect
	}
	if t.read > 0 {
		c.ResponseHeaderTimeout = t.read
	}
	b.clones[t] = c
	return c
}

// CloseIdleConnections closes idle connections of every clone.
func (b *baseTransport) CloseIdleConnections() {
	b.base.CloseIdleConnections()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.clones {
		c.CloseIdleConnections()
	}
}
