package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestStore_GetWithDefault(t *testing.T) {
	s := New(map[string]any{
		"cache": map[string]any{"driver": "filesystem", "dir": "/tmp/x"},
		"http":  map[string]any{"timeout": 10, "log": false},
	})

	if got := s.Get("cache.dir", "fallback"); got != "/tmp/x" {
		t.Errorf("expected /tmp/x, got %v", got)
	}
	if got := s.Get("cache.extension", ".cache"); got != ".cache" {
		t.Errorf("expected default .cache, got %v", got)
	}
	if s.GetBool("http.log", true) {
		t.Error("expected http.log=false")
	}
	if got := s.GetDuration("http.timeout", 0); got != 10*time.Second {
		t.Errorf("expected 10s, got %v", got)
	}
	if got := s.GetDuration("http.read_timeout", 3*time.Second); got != 3*time.Second {
		t.Errorf("expected default 3s, got %v", got)
	}
}

func TestStore_NilSafe(t *testing.T) {
	var s *Store
	if s.IsSet("x") {
		t.Error("nil store should report nothing set")
	}
	if got := s.GetString("x", "def"); got != "def" {
		t.Errorf("expected def, got %q", got)
	}
}

func TestStore_MergeIsImmutable(t *testing.T) {
	base := New(map[string]any{
		"log": map[string]any{"level": "info", "file": "/var/log/app.log"},
	})
	merged := base.Merge(map[string]any{
		"log": map[string]any{"level": "debug"},
	})

	if got := base.GetString("log.level", ""); got != "info" {
		t.Errorf("base mutated: level=%q", got)
	}
	if got := merged.GetString("log.level", ""); got != "debug" {
		t.Errorf("expected merged level debug, got %q", got)
	}
	if got := merged.GetString("log.file", ""); got != "/var/log/app.log" {
		t.Errorf("expected sibling key preserved, got %q", got)
	}
}

func TestStore_KeepsLiveHandles(t *testing.T) {
	type handle struct{ id int }
	h := &handle{id: 7}
	s := New(map[string]any{"cache": map[string]any{"client": h}})
	got, ok := s.Get("cache.client", nil).(*handle)
	if !ok || got != h {
		t.Fatalf("expected the same handle back, got %#v", s.Get("cache.client", nil))
	}
	if got2, _ := s.Merge(nil).Get("cache.client", nil).(*handle); got2 != h {
		t.Error("merge should carry the handle through")
	}
}

func TestToDuration(t *testing.T) {
	tests := []struct {
		in      any
		want    time.Duration
		wantErr bool
	}{
		{30, 30 * time.Second, false},
		{int64(2), 2 * time.Second, false},
		{1.5, 1500 * time.Millisecond, false},
		{"45", 45 * time.Second, false},
		{"250ms", 250 * time.Millisecond, false},
		{5 * time.Minute, 5 * time.Minute, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := ToDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ToDuration(%v) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ToDuration(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecode_HooksAndValidation(t *testing.T) {
	type opts struct {
		Dir     string        `mapstructure:"dir" validate:"required"`
		Timeout time.Duration `mapstructure:"timeout"`
		Umask   int           `mapstructure:"umask"`
	}

	var o opts
	err := Decode(map[string]any{"dir": "/tmp/x", "timeout": 2, "umask": "18"}, &o)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if o.Timeout != 2*time.Second {
		t.Errorf("expected 2s, got %v", o.Timeout)
	}
	if o.Umask != 18 {
		t.Errorf("expected weakly typed umask 18, got %d", o.Umask)
	}

	var missing opts
	if err := Decode(map[string]any{}, &missing); err == nil {
		t.Error("expected validation error for missing dir")
	}
}

func TestStore_Unmarshal(t *testing.T) {
	s := New(map[string]any{"http": map[string]any{"base_url": "https://api.example.com", "timeout": "5s"}})
	var cfg struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	}
	if err := s.Unmarshal("http", &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.BaseURL != "https://api.example.com" || cfg.Timeout != 5*time.Second {
		t.Errorf("unexpected result %+v", cfg)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
http:
  base_url: https://api.example.com
  log_template: "{method} {uri}"
cache:
  driver: filesystem
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("MY_SDK_HTTP_LOG_TEMPLATE", "{code}")
	t.Setenv("MY_SDK_CACHE_DIR", "/srv/cache")

	s, err := Load("my-sdk", WithConfigFile(configPath), WithEnvFile("/nonexistent/.env"),
		WithDefaults(map[string]any{"http": map[string]any{"timeout": 30}}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := s.GetString("http.base_url", ""); got != "https://api.example.com" {
		t.Errorf("expected base_url from file, got %q", got)
	}
	if got := s.GetString("http.log_template", ""); got != "{code}" {
		t.Errorf("expected env override on existing key, got %q", got)
	}
	if got := s.GetString("cache.dir", ""); got != "/srv/cache" {
		t.Errorf("expected env-created nested key, got %q", got)
	}
	if got := s.GetDuration("http.timeout", 0); got != 30*time.Second {
		t.Errorf("expected default timeout, got %v", got)
	}
}

func TestLoad_EnvKeepsFileSection(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
http:
  base_url: https://file.example.com
  timeout: 5
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("MY_SDK_HTTP_BASE_URL", "https://env.example.com")

	s, err := Load("my-sdk", WithConfigFile(configPath), WithEnvFile("/nonexistent/.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	section := s.GetStringMap("http")
	if got := section["base_url"]; got != "https://env.example.com" {
		t.Errorf("expected env base_url in section, got %v", got)
	}
	if _, ok := section["timeout"]; !ok {
		t.Errorf("expected file timeout to survive env override, got %v", section)
	}
	if m, ok := s.Get("http", nil).(map[string]any); !ok || m["timeout"] == nil {
		t.Errorf("expected Get to return merged section, got %v", s.Get("http", nil))
	}

	var cfg struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	}
	if err := s.Unmarshal("http", &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.BaseURL != "https://env.example.com" || cfg.Timeout != 5*time.Second {
		t.Errorf("unexpected result %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load("nonexistent-service", WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected Load to succeed with missing file, got %v", err)
	}
	if s.IsSet("http.base_url") {
		t.Error("expected empty store")
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestFindConfigFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./config/my-sdk.yml": true, "./config.yml": true}}
	if got := findConfigFile(fs, "my-sdk"); got != "./config/my-sdk.yml" {
		t.Errorf("expected service-specific file first, got %q", got)
	}
	if got := findEnvFile(&mockFS{}, "my-sdk"); got != "" {
		t.Errorf("expected no env file, got %q", got)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("HTTP_LOG_TEMPLATE")
	want := []string{"http.log.template", "http.log_template", "http_log.template", "http_log_template"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("envKeyVariants() = %v, want %v", got, want)
	}
	if got := envKeyVariants("DEBUG"); len(got) != 1 || got[0] != "debug" {
		t.Errorf("single segment: %v", got)
	}
}

func TestWithOptions(t *testing.T) {
	var lc LoaderConfig
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("ACME")(&lc)
	if lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" || !strings.EqualFold(lc.EnvPrefix, "acme") {
		t.Errorf("unexpected loader config %+v", lc)
	}
}
