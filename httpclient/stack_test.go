package httpclient

import (
	"net/http"
	"slices"
	"testing"
)

func tracing(name string, trail *[]string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			*trail = append(*trail, name)
			return next.RoundTrip(r)
		})
	}
}

func TestHandlerStack_Order(t *testing.T) {
	var trail []string
	base := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		trail = append(trail, "base")
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	})

	s := NewHandlerStack(base)
	s.Push(tracing("a", &trail), "a")
	s.Push(tracing("c", &trail), "c")
	if err := s.Before("c", tracing("b", &trail), "b"); err != nil {
		t.Fatal(err)
	}
	if err := s.After("c", tracing("d", &trail), "d"); err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodGet, "http://example.test", nil)
	if _, err := s.RoundTrip(req); err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c", "d", "base"}
	if !slices.Equal(trail, want) {
		t.Errorf("expected %v, got %v", want, trail)
	}
}

func TestHandlerStack_PushReplacesByName(t *testing.T) {
	var trail []string
	s := NewHandlerStack(nil)
	s.Push(tracing("old", &trail), "x")
	s.Push(tracing("y", &trail), "y")
	s.Push(tracing("new", &trail), "x")

	if names := s.Names(); !slices.Equal(names, []string{"x", "y"}) {
		t.Errorf("expected [x y], got %v", names)
	}
	s.Remove("x")
	if s.Has("x") {
		t.Error("expected x to be removed")
	}
	if err := s.Before("missing", tracing("z", &trail), "z"); err == nil {
		t.Error("expected an error for an unknown target")
	}
}

func TestHandlerStack_ResolveIsCachedUntilChanged(t *testing.T) {
	builds := 0
	s := NewHandlerStack(nil)
	s.Push(func(next http.RoundTripper) http.RoundTripper {
		builds++
		return next
	}, "count")

	s.Resolve()
	s.Resolve()
	if builds != 1 {
		t.Errorf("expected one build, got %d", builds)
	}
	s.Push(func(next http.RoundTripper) http.RoundTripper { return next }, "other")
	s.Resolve()
	if builds != 2 {
		t.Errorf("expected a rebuild after Push, got %d", builds)
	}
}
