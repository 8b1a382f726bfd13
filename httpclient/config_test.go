package httpclient

import (
	"testing"
	"time"

	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/errors"
)

func TestConfigFrom(t *testing.T) {
	store := config.New(map[string]any{
		"response_type": "array",
		"http": map[string]any{
			"base_url":        "https://api.example.com",
			"timeout":         5,
			"connect_timeout": "250ms",
			"headers":         map[string]any{"X-Token": "t"},
			"log":             false,
			"auth":            map[string]any{"type": "bearer", "token": "abc"},
		},
	})

	cfg, err := ConfigFrom(store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeout != 5*time.Second || cfg.ConnectTimeout != 250*time.Millisecond {
		t.Errorf("unexpected timeouts %v %v", cfg.Timeout, cfg.ConnectTimeout)
	}
	if cfg.Log {
		t.Error("expected log disabled")
	}
	if !cfg.HTTPErrors || !cfg.Verify {
		t.Error("http_errors and verify default to true")
	}
	if cfg.Headers["x-token"] != "t" {
		t.Errorf("unexpected headers %v", cfg.Headers)
	}
	if cfg.ResponseType != "array" {
		t.Errorf("expected top-level response_type, got %q", cfg.ResponseType)
	}
	if cfg.Auth == nil || cfg.Auth.Type != AuthBearer || cfg.Auth.Token != "abc" {
		t.Errorf("unexpected auth %+v", cfg.Auth)
	}
	if cfg.LogTemplate != DefaultLogTemplate {
		t.Error("expected the default log template")
	}
}

func TestConfigFrom_Empty(t *testing.T) {
	cfg, err := ConfigFrom(config.New(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 30*time.Second || !cfg.Log {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestConfigFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		http map[string]any
	}{
		{"bad base url", map[string]any{"base_url": "not a url"}},
		{"bad proxy", map[string]any{"proxy": "::"}},
		{"unknown auth", map[string]any{"auth": map[string]any{"type": "kerberos"}}},
		{"custom auth from config", map[string]any{"auth": map[string]any{"type": "custom"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConfigFrom(config.New(map[string]any{"http": tt.http}))
			if !errors.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}
