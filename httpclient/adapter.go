package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"reflect"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/kbukum/foundation/errors"
	"github.com/kbukum/foundation/response"
	"github.com/kbukum/foundation/version"
)

// Adapter executes single HTTP exchanges and captures their responses as
// envelopes. It is the transport under Client and is safe for concurrent
// use.
type Adapter struct {
	cfg       Config
	transport *baseTransport
	jar       http.CookieJar
}

// NewAdapter builds an adapter from cfg.
func NewAdapter(cfg Config) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.InvalidConfig("http", err)
	}
	transport, err := newBaseTransport(cfg)
	if err != nil {
		return nil, errors.InvalidConfig("http.proxy", err)
	}
	a := &Adapter{cfg: cfg, transport: transport}
	if cfg.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
		}
		a.jar = jar
	}
	return a, nil
}

// Config returns the adapter configuration.
func (a *Adapter) Config() Config { return a.cfg }

// Transport returns the timeout-aware base transport.
func (a *Adapter) Transport() http.RoundTripper { return a.transport }

// Execute sends one request and returns the captured response. When HTTP
// errors are enabled a status >= 400 returns the envelope together with an
// *Error carrying it. Network failures return an *Error with the timeout or
// connection code.
func (a *Adapter) Execute(ctx context.Context, method, rawURL string, opts Options) (*response.Envelope, error) {
	target, err := a.resolveURL(rawURL, opts.Query)
	if err != nil {
		return nil, err
	}

	body, contentType, err := buildBody(opts)
	if err != nil {
		return nil, err
	}

	ctx = withTimeouts(ctx, timeouts{
		connect: pick(opts.ConnectTimeout, a.cfg.ConnectTimeout),
		read:    pick(opts.ReadTimeout, a.cfg.ReadTimeout),
	})
	if total := pick(opts.Timeout, a.cfg.Timeout); total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), target.String(), body)
	if err != nil {
		return nil, errors.InvalidInput("url", err.Error())
	}
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range a.cfg.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	// JSON and multipart bodies always carry their own type; a form type
	// only fills in a missing header.
	if contentType != "" && (req.Header.Get("Content-Type") == "" || opts.JSON != nil || opts.Multipart != nil) {
		req.Header.Set("Content-Type", contentType)
	}

	auth := opts.Auth
	if auth == nil {
		auth = a.cfg.Auth
	}
	auth.apply(req)

	handler := opts.Handler
	if handler == nil {
		handler = a.transport
	}
	client := &http.Client{Transport: handler, Jar: a.jar}

	resp, err := client.Do(req)
	if err != nil {
		return nil, withRequest(classifyTransport(ctx, err), req)
	}
	env, err := response.FromHTTP(resp)
	if err != nil {
		return nil, withRequest(classifyTransport(ctx, err), req)
	}

	httpErrors := a.cfg.HTTPErrors
	if opts.HTTPErrors != nil {
		httpErrors = *opts.HTTPErrors
	}
	if httpErrors {
		if e := ClassifyStatus(env); e != nil {
			e.Method, e.URL = req.Method, redactedURL(req)
			return env, e
		}
	}
	return env.Rewind(), nil
}

// Fetch downloads url with a plain GET through the base transport.
func (a *Adapter) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*response.Envelope, error) {
	return a.Execute(ctx, http.MethodGet, rawURL, Options{
		Timeout:        timeout,
		ConnectTimeout: timeout,
		ReadTimeout:    timeout,
		HTTPErrors:     Bool(true),
	})
}

// Close releases idle connections.
func (a *Adapter) Close(context.Context) error {
	a.transport.CloseIdleConnections()
	return nil
}

func (a *Adapter) resolveURL(rawURL string, query map[string]any) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.InvalidInput("url", err.Error())
	}
	if !u.IsAbs() && a.cfg.BaseURL != "" {
		base, err := url.Parse(a.cfg.BaseURL)
		if err != nil {
			return nil, errors.InvalidConfig("http.base_url", err)
		}
		u = base.ResolveReference(u)
	}
	if len(query) > 0 {
		q := u.Query()
		for _, f := range flattenFields(query) {
			q.Set(f.name, f.value)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// buildBody encodes the one body option that is set.
func buildBody(opts Options) (io.Reader, string, error) {
	set := 0
	for _, present := range []bool{opts.JSON != nil, opts.Form != nil, opts.Multipart != nil, opts.Body != nil} {
		if present {
			set++
		}
	}
	if set > 1 {
		return nil, "", errors.InvalidInput("body", "only one of JSON, Form, Multipart and Body may be set")
	}

	switch {
	case opts.JSON != nil:
		data, err := encodeJSONBody(opts.JSON)
		if err != nil {
			return nil, "", errors.InvalidInput("json", err.Error())
		}
		return bytes.NewReader(data), "application/json", nil
	case opts.Form != nil:
		return strings.NewReader(encodeForm(flattenFields(opts.Form))), "application/x-www-form-urlencoded", nil
	case opts.Multipart != nil:
		buf, ct, err := encodeMultipart(opts.Multipart)
		if err != nil {
			return nil, "", errors.InvalidInput("multipart", err.Error())
		}
		return bytes.NewReader(buf.Bytes()), ct, nil
	case opts.Body != nil:
		switch b := opts.Body.(type) {
		case []byte:
			return bytes.NewReader(b), "", nil
		case string:
			return strings.NewReader(b), "", nil
		case io.Reader:
			return b, "", nil
		default:
			return nil, "", errors.InvalidInput("body", fmt.Sprintf("unsupported body type %T", opts.Body))
		}
	}
	return nil, "", nil
}

// encodeJSONBody encodes v without HTML escaping. Logically empty
// payloads are sent as an empty object.
func encodeJSONBody(v any) ([]byte, error) {
	if isEmptyPayload(v) {
		return []byte("{}"), nil
	}
	return response.EncodeJSON(v)
}

func isEmptyPayload(v any) bool {
	if v == nil {
		return true
	}
	if c, ok := v.(*response.Collection); ok {
		return c == nil || c.IsEmpty()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func parseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy %q must be an absolute URL", raw)
	}
	return u, nil
}

func pick(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
