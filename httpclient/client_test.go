package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/foundation/errors"
	"github.com/kbukum/foundation/events"
	"github.com/kbukum/foundation/logger"
	"github.com/kbukum/foundation/response"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	return newTestClientWithConfig(t, DefaultConfig(), handler, opts...)
}

func newTestClientWithConfig(t *testing.T, cfg Config, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	c, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func TestClient_GetDecodesCollection(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("filter[name]"); got != "alice" {
			t.Errorf("expected flattened query, got %q", r.URL.RawQuery)
		}
		jsonHandler(`{"name":"Alice","id":1}`)(w, r)
	})

	out, err := c.Get(context.Background(), "/users", map[string]any{
		"filter": map[string]any{"name": "alice"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	col, ok := out.(*response.Collection)
	if !ok {
		t.Fatalf("expected *Collection, got %T", out)
	}
	if keys := col.Keys(); len(keys) != 2 || keys[0] != "name" {
		t.Errorf("expected document order [name id], got %v", keys)
	}
}

func TestClient_RequestUppercasesMethod(t *testing.T) {
	var method string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
	})
	if _, err := c.Request(context.Background(), "/", "delete", Options{}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != http.MethodDelete {
		t.Errorf("expected DELETE, got %s", method)
	}
}

func TestClient_ResponseTypePrecedence(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(`{"a":1}`))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ResponseType = "string"
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := c.Get(context.Background(), "/", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"a":1}` {
		t.Errorf("config response_type should apply, got %#v", out)
	}

	out, err = c.Request(context.Background(), "/", "GET", Options{ResponseType: "array"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["a"] != int64(1) {
		t.Errorf("call response_type should win, got %#v", out)
	}
}

func TestClient_UnknownResponseType(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	_, err := c.Request(context.Background(), "/", "GET", Options{ResponseType: "foo"}, false)
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"foo"`) {
		t.Errorf("error should name the format, got %v", err)
	}
	if calls != 0 {
		t.Errorf("no request should be sent, got %d", calls)
	}
}

func TestClient_JSONEmptyPayloadIsObject(t *testing.T) {
	tests := []struct {
		name string
		data any
	}{
		{"nil", nil},
		{"empty map", map[string]any{}},
		{"empty slice", []any{}},
		{"empty array", [0]int{}},
		{"empty collection", response.NewCollection()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body, ct string
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				body, ct = string(b), r.Header.Get("Content-Type")
			})
			if _, err := c.JSON(context.Background(), "/", tt.data, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if body != "{}" {
				t.Errorf("expected {}, got %q", body)
			}
			if ct != "application/json" {
				t.Errorf("expected application/json, got %q", ct)
			}
		})
	}
}

func TestClient_JSONKeepsUnicodeAndHTML(t *testing.T) {
	var body string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	})
	_, err := c.JSON(context.Background(), "/", map[string]any{"q": "<ü & é>"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != `{"q":"<ü & é>"}` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestClient_PostFlattensForm(t *testing.T) {
	var form map[string][]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		form = r.PostForm
	})
	_, err := c.Post(context.Background(), "/", map[string]any{
		"user": map[string]any{"name": "bob", "tags": []string{"a", "b"}},
		"ok":   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"user[name]": "bob", "user[tags][0]": "a", "user[tags][1]": "b", "ok": "1"}
	for k, v := range want {
		if got := form[k]; len(got) != 1 || got[0] != v {
			t.Errorf("field %s: expected %q, got %v", k, v, got)
		}
	}
}

func TestClient_UploadListEmitsBracketedParts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(path, []byte("from disk"), 0o644); err != nil {
		t.Fatal(err)
	}

	type part struct{ name, filename, content string }
	var parts []part
	var formValue string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		if err != nil {
			t.Errorf("MultipartReader: %v", err)
			return
		}
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("NextPart: %v", err)
				return
			}
			b, _ := io.ReadAll(p)
			if p.FormName() == "meta[kind]" {
				formValue = string(b)
				continue
			}
			parts = append(parts, part{p.FormName(), p.FileName(), string(b)})
		}
	})

	_, err := c.Upload(context.Background(), "/upload", map[string]any{
		"field": []any{path, "inline", Part{Filename: "x.bin", Content: []byte{1}}},
	}, map[string]any{"meta": map[string]any{"kind": "doc"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d: %+v", len(parts), parts)
	}
	for _, p := range parts {
		if p.name != "field[]" {
			t.Errorf("expected part name field[], got %q", p.name)
		}
	}
	if parts[0].filename != "report.txt" || parts[0].content != "from disk" {
		t.Errorf("path should be read from disk, got %+v", parts[0])
	}
	if parts[1].filename != "" || parts[1].content != "inline" {
		t.Errorf("unknown string should be inline content, got %+v", parts[1])
	}
	if parts[2].filename != "x.bin" {
		t.Errorf("Part should pass through, got %+v", parts[2])
	}
	if formValue != "doc" {
		t.Errorf("expected flattened form field, got %q", formValue)
	}
}

func TestClient_UploadFetchesURL(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png; charset=binary")
		io.WriteString(w, "PNGDATA")
	}))
	defer remote.Close()

	var filename, ct, content string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		f, h, err := r.FormFile("avatar")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		filename, ct, content = h.Filename, h.Header.Get("Content-Type"), string(b)
	})

	if _, err := c.Upload(context.Background(), "/", map[string]any{"avatar": remote.URL + "/img/me.png"}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filename != "me.png" || ct != "image/png" || content != "PNGDATA" {
		t.Errorf("unexpected part: %q %q %q", filename, ct, content)
	}
}

func TestClient_HTTPErrorCarriesRewoundEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"missing"}`)
	})

	out, err := c.Get(context.Background(), "/nope", nil)
	if out != nil {
		t.Errorf("expected nil result, got %#v", out)
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	var e *Error
	if !stderrors.As(err, &e) || e.Response == nil {
		t.Fatal("expected the error to carry the response")
	}
	if e.Response.Body.Unread() != len(`{"error":"missing"}`) {
		t.Error("expected the attached body to be rewound")
	}
	if e.Response.Contents() != `{"error":"missing"}` {
		t.Errorf("unexpected body %q", e.Response.Contents())
	}
}

func TestClient_HTTPErrorsDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "boom")
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.HTTPErrors = false
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	env, err := c.Do(context.Background(), srv.URL, "GET", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != 500 || env.Contents() != "boom" {
		t.Errorf("unexpected envelope %d %q", env.StatusCode, env.Contents())
	}
}

func TestClient_ListenerSeesFullBody(t *testing.T) {
	bus := events.New()
	var seen string
	bus.AddListener(events.HTTPResponseCreatedName, func(_ context.Context, e events.Event) error {
		created := e.(events.HTTPResponseCreated)
		b, _ := io.ReadAll(created.Response.Body)
		seen = string(b)
		return nil
	})

	c, _ := newTestClient(t, jsonHandler(`{"k":"v"}`), WithDispatcher(bus))
	out, err := c.Request(context.Background(), "/", "GET", Options{ResponseType: "string"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != `{"k":"v"}` {
		t.Errorf("listener saw %q", seen)
	}
	if out != `{"k":"v"}` {
		t.Errorf("decoding after the listener read the body got %q", out)
	}
}

func TestClient_ListenerFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	bus := events.New()
	bus.AddListener(events.HTTPResponseCreatedName, func(context.Context, events.Event) error {
		return io.ErrUnexpectedEOF
	})

	c, _ := newTestClient(t, jsonHandler(`{}`), WithDispatcher(bus), WithLogger(log))
	if _, err := c.Get(context.Background(), "/", nil); err != nil {
		t.Fatalf("listener failure must not fail the request: %v", err)
	}
	if !strings.Contains(buf.String(), "event listener failed") {
		t.Errorf("expected a warning, got %s", buf.String())
	}
}

func TestClient_DefaultsMergeWithCall(t *testing.T) {
	var headers http.Header
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
	}, WithDefaults(Options{Headers: map[string]string{"X-A": "default", "X-B": "default"}}),
		WithAuth(BearerAuth("tok")))

	_, err := c.Do(context.Background(), "/", "GET", Options{Headers: map[string]string{"X-B": "call"}})
	if err != nil {
		t.Fatal(err)
	}
	if headers.Get("X-A") != "default" || headers.Get("X-B") != "call" {
		t.Errorf("unexpected headers %v", headers)
	}
	if headers.Get("Authorization") != "Bearer tok" {
		t.Errorf("expected default auth, got %q", headers.Get("Authorization"))
	}
}

func TestClient_HandlerStackIsForced(t *testing.T) {
	c, _ := newTestClient(t, jsonHandler(`{}`))
	called := false
	c.PushMiddleware(func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			called = true
			return next.RoundTrip(r)
		})
	}, "marker")

	bypass := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		t.Error("caller handler must not be used")
		return nil, io.EOF
	})
	if _, err := c.Do(context.Background(), "/", "GET", Options{Handler: bypass}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected the pushed middleware to run")
	}
}

func TestClient_HandlerStackLifecycle(t *testing.T) {
	c, _ := newTestClient(t, jsonHandler(`{}`))

	first, err := c.GetHandlerStack()
	if err != nil {
		t.Fatal(err)
	}
	again, _ := c.GetHandlerStack()
	if first != again {
		t.Error("expected the stack to be cached")
	}
	if names := first.Names(); len(names) != 1 || names[0] != LogMiddlewareName {
		t.Errorf("expected trailing log middleware only, got %v", names)
	}

	custom := NewHandlerStack(c.Adapter().Transport())
	c.SetHandlerStack(custom)
	c.PushMiddleware(func(next http.RoundTripper) http.RoundTripper { return next }, "later")
	if got, _ := c.GetHandlerStack(); got != custom {
		t.Error("a stack set by the caller must survive PushMiddleware")
	}

	c.ResetHandlerStack()
	rebuilt, _ := c.GetHandlerStack()
	if names := rebuilt.Names(); len(names) != 2 || names[0] != "later" || names[1] != LogMiddlewareName {
		t.Errorf("expected [later log], got %v", names)
	}
}

func TestClient_LogDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log = false
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	stack, _ := c.GetHandlerStack()
	if stack.Has(LogMiddlewareName) {
		t.Error("log middleware should be absent when logging is off")
	}
}

func TestClient_DecodesJSONBodyTypes(t *testing.T) {
	c, _ := newTestClient(t, jsonHandler(`{"n":12345678901234567890,"f":1.5}`))
	out, err := c.Request(context.Background(), "/", "GET", Options{ResponseType: "object"}, false)
	if err != nil {
		t.Fatal(err)
	}
	m := out.(map[string]any)
	if m["n"] != "12345678901234567890" {
		t.Errorf("big integers should stay text, got %#v", m["n"])
	}
	if m["f"] != 1.5 {
		t.Errorf("expected float, got %#v", m["f"])
	}
	raw, _ := json.Marshal(m)
	if !strings.Contains(string(raw), `"12345678901234567890"`) {
		t.Errorf("unexpected encoding %s", raw)
	}
}
