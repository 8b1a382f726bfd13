package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestUnsupportedDriver_NamesDriver(t *testing.T) {
	err := UnsupportedDriver("cache", "memcached")
	if err.Code != ErrCodeUnsupportedDriver {
		t.Errorf("expected %s, got %s", ErrCodeUnsupportedDriver, err.Code)
	}
	if !strings.Contains(err.Error(), `"memcached"`) {
		t.Errorf("expected driver name in message, got %q", err.Error())
	}
	if err.Details["concern"] != "cache" {
		t.Errorf("expected concern=cache, got %v", err.Details["concern"])
	}
}

func TestUnsupportedFormat_NamesFormat(t *testing.T) {
	err := UnsupportedFormat("foo")
	if !strings.Contains(err.Error(), `"foo"`) {
		t.Errorf("expected quoted format in message, got %q", err.Error())
	}
	if !IsConfiguration(err) {
		t.Error("unsupported format should be a configuration error")
	}
}

func TestIsConfiguration(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unsupported driver", UnsupportedDriver("log", "x"), true},
		{"missing dependency", MissingDependency("cache", "client", "redis client"), true},
		{"invalid config", InvalidConfig("http.timeout", fmt.Errorf("bad")), true},
		{"decoding", DecodeFailed("json", fmt.Errorf("eof")), false},
		{"wrapped", fmt.Errorf("resolve: %w", UnsupportedFormat("x")), true},
		{"plain", stderrors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConfiguration(tt.err); got != tt.want {
				t.Errorf("IsConfiguration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_UnwrapChain(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	err := DecodeFailed("object", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !IsDecoding(err) {
		t.Error("expected IsDecoding to be true")
	}
	if !strings.Contains(err.Error(), "cause: unexpected EOF") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAppError_WithDetail(t *testing.T) {
	err := New(ErrCodeInternal, "x").WithDetail("k", 1)
	if err.Details["k"] != 1 {
		t.Errorf("expected detail k=1, got %v", err.Details["k"])
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(stderrors.New("plain")); ok {
		t.Error("plain error should not convert")
	}
	wrapped := fmt.Errorf("outer: %w", InvalidInput("file", "unreadable"))
	appErr, ok := AsAppError(wrapped)
	if !ok || appErr.Code != ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", appErr)
	}
	if appErr.Details["field"] != "file" {
		t.Errorf("expected field detail, got %v", appErr.Details)
	}
}
