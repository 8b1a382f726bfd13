package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/errors"
	"github.com/kbukum/foundation/provider"
)

func jsonLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := &Config{Level: level, Format: "json"}
	return New(cfg, "test", &buf), &buf
}

func TestNew_PerLoggerLevel(t *testing.T) {
	warn, warnBuf := jsonLogger(t, "warn")
	debug, debugBuf := jsonLogger(t, "debug")

	warn.Info("hidden")
	debug.Info("shown")

	if warnBuf.Len() != 0 {
		t.Errorf("expected warn logger to drop info, got %q", warnBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "shown") {
		t.Errorf("expected debug logger to keep info, got %q", debugBuf.String())
	}
	if warn.Enabled(zerolog.InfoLevel) || !warn.Enabled(zerolog.ErrorLevel) {
		t.Error("unexpected Enabled result for warn logger")
	}
}

func TestNew_InvalidLevelFallsBackToDebug(t *testing.T) {
	l, buf := jsonLogger(t, "loud")
	l.Debug("msg")
	if buf.Len() == 0 {
		t.Error("expected debug output with invalid level")
	}
}

func TestLogger_Fields(t *testing.T) {
	l, buf := jsonLogger(t, "debug")
	ctx := ContextWithRequestID(context.Background(), "req-1")
	l.WithComponent("http").WithContext(ctx).WithFields(Fields("driver", "redis")).
		Info("resolved", map[string]any{FieldConcern: "cache"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	want := map[string]any{
		FieldComponent: "http",
		FieldRequestID: "req-1",
		"driver":       "redis",
		FieldConcern:   "cache",
		"message":      "resolved",
		"level":        "info",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("expected %s=%v, got %v", k, v, entry[k])
		}
	}
}

func TestLogger_WithContextSpan(t *testing.T) {
	l, buf := jsonLogger(t, "debug")
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	l.WithContext(ctx).Info("traced")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry[FieldTraceID] != traceID.String() || entry[FieldSpanID] != spanID.String() {
		t.Errorf("expected span ids, got %v", entry)
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "console", NoColor: true}, "test", &buf)
	l.Warn("careful")
	if !strings.Contains(buf.String(), "[WRN]") || !strings.Contains(buf.String(), "careful") {
		t.Errorf("unexpected console output %q", buf.String())
	}
}

func TestBuild_SingleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sdk.log")
	l, err := Build("single", Config{Path: path, Level: "info"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	l.Info("written", Fields("k", "v"))
	l.Debug("dropped")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"written"`) {
		t.Errorf("expected json line, got %q", data)
	}
	if strings.Contains(string(data), "dropped") {
		t.Error("debug line should be filtered at info level")
	}
}

func TestBuild_Errors(t *testing.T) {
	if _, err := Build("single", Config{}); !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error for missing path, got %v", err)
	}
	if _, err := Build("syslog", Config{}); !errors.HasCode(err, errors.ErrCodeUnsupportedDriver) {
		t.Errorf("expected unsupported driver, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
		{"single without path", Config{Driver: DriverSingle, Level: "info", Format: "json"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func resolveLog(t *testing.T, values map[string]any) (*Logger, *provider.StoreHost) {
	t.Helper()
	host := provider.NewStoreHost(config.New(values))
	reg := provider.NewRegistry(host)
	Register(reg)
	l, err := provider.Resolve[*Logger](reg, Concern)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, host
}

func TestRegister_NoConfigUsesErrorLog(t *testing.T) {
	l, host := resolveLog(t, nil)
	if l.Channel() != DriverErrorLog {
		t.Errorf("expected errorlog channel, got %q", l.Channel())
	}
	if !l.Enabled(zerolog.DebugLevel) {
		t.Error("expected debug level")
	}
	if got := host.Config().GetString("log.channels.errorlog.driver", ""); got != DriverErrorLog {
		t.Errorf("expected derived channel merged into config, got %q", got)
	}
}

func TestRegister_FileAndLevelDeriveSingle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdk.log")
	l, host := resolveLog(t, map[string]any{"log": map[string]any{"file": path, "level": "warn"}})
	if l.Channel() != DriverSingle {
		t.Errorf("expected single channel, got %q", l.Channel())
	}
	if l.Enabled(zerolog.InfoLevel) {
		t.Error("expected warn level")
	}
	if got := host.Config().GetString("log.channels.single.path", ""); got != path {
		t.Errorf("expected path %q, got %q", path, got)
	}
}

func TestRegister_ExplicitChannel(t *testing.T) {
	l, _ := resolveLog(t, map[string]any{"log": map[string]any{
		"default": "quiet",
		"channels": map[string]any{
			"quiet": map[string]any{"driver": "null"},
		},
	}})
	if l.Channel() != "quiet" {
		t.Errorf("expected quiet channel, got %q", l.Channel())
	}
}

func TestRegister_UnknownChannel(t *testing.T) {
	host := provider.NewStoreHost(config.New(map[string]any{"log": map[string]any{
		"default":  "missing",
		"channels": map[string]any{"other": map[string]any{"driver": "null"}},
	}}))
	reg := provider.NewRegistry(host)
	Register(reg)
	if _, err := reg.Resolve(Concern); !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
