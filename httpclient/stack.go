package httpclient

import (
	"fmt"
	"net/http"
	"slices"
	"sync"
)

// Middleware wraps a RoundTripper with extra behavior.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

type namedMiddleware struct {
	name string
	mw   Middleware
}

// HandlerStack is a base transport wrapped by an ordered list of named
// middlewares. The first entry is the outermost. The composed handler is
// rebuilt lazily after every change, and HandlerStack itself is an
// http.RoundTripper.
type HandlerStack struct {
	mu      sync.Mutex
	base    http.RoundTripper
	entries []namedMiddleware
	cached  http.RoundTripper
}

// NewHandlerStack creates a stack around base. A nil base uses
// http.DefaultTransport.
func NewHandlerStack(base http.RoundTripper) *HandlerStack {
	if base == nil {
		base = http.DefaultTransport
	}
	return &HandlerStack{base: base}
}

// SetBase replaces the innermost transport.
func (s *HandlerStack) SetBase(base http.RoundTripper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = base
	s.cached = nil
}

// Push appends mw under name. A middleware already registered under name
// is replaced in place.
func (s *HandlerStack) Push(mw Middleware, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(name); i >= 0 && name != "" {
		s.entries[i].mw = mw
	} else {
		s.entries = append(s.entries, namedMiddleware{name: name, mw: mw})
	}
	s.cached = nil
}

// Before inserts mw directly outside the entry called target.
func (s *HandlerStack) Before(target string, mw Middleware, name string) error {
	return s.insert(target, 0, mw, name)
}

// After inserts mw directly inside the entry called target.
func (s *HandlerStack) After(target string, mw Middleware, name string) error {
	return s.insert(target, 1, mw, name)
}

func (s *HandlerStack) insert(target string, offset int, mw Middleware, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(target)
	if i < 0 {
		return fmt.Errorf("httpclient: middleware %q not found", target)
	}
	s.entries = slices.Insert(s.entries, i+offset, namedMiddleware{name: name, mw: mw})
	s.cached = nil
	return nil
}

// Remove drops every entry called name.
func (s *HandlerStack) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.DeleteFunc(s.entries, func(e namedMiddleware) bool { return e.name == name })
	s.cached = nil
}

// Has reports whether an entry called name exists.
func (s *HandlerStack) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index(name) >= 0
}

// Names lists entry names from outermost to innermost.
func (s *HandlerStack) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Resolve composes the middlewares around the base transport.
func (s *HandlerStack) Resolve() http.RoundTripper {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached
	}
	h := s.base
	for i := len(s.entries) - 1; i >= 0; i-- {
		h = s.entries[i].mw(h)
	}
	s.cached = h
	return h
}

// RoundTrip implements http.RoundTripper.
func (s *HandlerStack) RoundTrip(req *http.Request) (*http.Response, error) {
	return s.Resolve().RoundTrip(req)
}

func (s *HandlerStack) index(name string) int {
	return slices.IndexFunc(s.entries, func(e namedMiddleware) bool { return e.name == name })
}
