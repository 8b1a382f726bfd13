package httpclient

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/errors"
	"github.com/kbukum/foundation/events"
	"github.com/kbukum/foundation/logger"
	"github.com/kbukum/foundation/response"
)

// LogMiddlewareName is the handler stack entry the client appends when
// logging is enabled.
const LogMiddlewareName = "log"

// Dispatcher receives the events the client emits.
type Dispatcher interface {
	Dispatch(ctx context.Context, e events.Event) error
}

// Client is the request pipeline: option merging, handler stack binding,
// execution, event dispatch and response decoding.
type Client struct {
	adapter  *Adapter
	cfg      Config
	defaults Options

	loggerFn     func() (*logger.Logger, error)
	dispatcherFn func() (Dispatcher, error)

	mu          sync.Mutex
	middlewares []namedMiddleware
	stack       *HandlerStack
	custom      bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used by the log middleware and for listener
// failures.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.loggerFn = func() (*logger.Logger, error) { return l, nil }
	}
}

// WithLoggerFunc resolves the logger when the handler stack is built.
func WithLoggerFunc(fn func() (*logger.Logger, error)) Option {
	return func(c *Client) { c.loggerFn = fn }
}

// WithDispatcher sets where HTTPResponseCreated events go.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Client) {
		c.dispatcherFn = func() (Dispatcher, error) { return d, nil }
	}
}

// WithDispatcherFunc resolves the dispatcher on every request.
func WithDispatcherFunc(fn func() (Dispatcher, error)) Option {
	return func(c *Client) { c.dispatcherFn = fn }
}

// WithDefaults sets options every request starts from.
func WithDefaults(o Options) Option {
	return func(c *Client) { c.defaults = o }
}

// WithAuth sets the default authentication.
func WithAuth(a *AuthConfig) Option {
	return func(c *Client) { c.defaults.Auth = a }
}

// WithMiddleware registers mw under name, like PushMiddleware.
func WithMiddleware(mw Middleware, name string) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, namedMiddleware{name: name, mw: mw})
	}
}

// New creates a client. Without WithLogger the log middleware discards
// its output.
func New(cfg Config, opts ...Option) (*Client, error) {
	adapter, err := NewAdapter(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		adapter:  adapter,
		cfg:      adapter.Config(),
		loggerFn: func() (*logger.Logger, error) { return logger.Nop(), nil },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig decodes the http section of store and creates a client.
func NewFromConfig(store *config.Store, opts ...Option) (*Client, error) {
	cfg, err := ConfigFrom(store)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.cfg }

// Adapter returns the underlying transport client.
func (c *Client) Adapter() *Adapter { return c.adapter }

// PushMiddleware registers mw under name for the next handler stack build.
// A stack built by the client is discarded; a stack installed with
// SetHandlerStack is left alone.
func (c *Client) PushMiddleware(mw Middleware, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, namedMiddleware{name: name, mw: mw})
	if !c.custom {
		c.stack = nil
	}
}

// GetHandlerStack returns the handler stack, building and caching it on
// first use: the base transport, registered middlewares in order, then the
// log middleware unless logging is disabled.
func (c *Client) GetHandlerStack() (*HandlerStack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stack != nil {
		return c.stack, nil
	}

	stack := NewHandlerStack(c.adapter.Transport())
	for _, m := range c.middlewares {
		stack.Push(m.mw, m.name)
	}
	if c.cfg.Log {
		log, err := c.loggerFn()
		if err != nil {
			return nil, err
		}
		stack.Push(LogMiddleware(log, c.cfg.LogTemplate), LogMiddlewareName)
	}
	c.stack = stack
	return stack, nil
}

// SetHandlerStack replaces the handler stack.
func (c *Client) SetHandlerStack(s *HandlerStack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = s
	c.custom = s != nil
}

// ResetHandlerStack discards the cached stack so the next request builds a
// fresh one.
func (c *Client) ResetHandlerStack() {
	c.SetHandlerStack(nil)
}

// Request sends one request. With returnRaw the captured envelope is
// returned; otherwise it is decoded with opts.ResponseType, the configured
// response type, or the collection format.
func (c *Client) Request(ctx context.Context, rawURL, method string, opts Options, returnRaw bool) (any, error) {
	merged := c.defaults.Merge(opts)

	format := response.DefaultFormat
	if !returnRaw {
		name := merged.ResponseType
		if name == "" {
			name = c.cfg.ResponseType
		}
		var err error
		if format, err = response.ParseFormat(name); err != nil {
			return nil, err
		}
	}

	stack, err := c.GetHandlerStack()
	if err != nil {
		return nil, err
	}
	merged.Handler = stack

	method = strings.ToUpper(method)
	env, err := c.adapter.Execute(ctx, method, rawURL, merged)
	if err != nil {
		return nil, err
	}

	env.Rewind()
	c.dispatch(ctx, events.HTTPResponseCreated{Method: method, URL: rawURL, Response: env})
	env.Rewind()

	if returnRaw {
		return env, nil
	}
	return response.Decode(env, format)
}

// Do sends a request and returns the captured envelope.
func (c *Client) Do(ctx context.Context, rawURL, method string, opts Options) (*response.Envelope, error) {
	out, err := c.Request(ctx, rawURL, method, opts, true)
	if err != nil {
		return nil, err
	}
	return out.(*response.Envelope), nil
}

// Get sends a GET with query parameters.
func (c *Client) Get(ctx context.Context, rawURL string, query map[string]any) (any, error) {
	return c.Request(ctx, rawURL, http.MethodGet, Options{Query: query}, false)
}

// Post sends form fields url-encoded. Nested fields are flattened.
func (c *Client) Post(ctx context.Context, rawURL string, form map[string]any) (any, error) {
	if form == nil {
		form = map[string]any{}
	}
	return c.Request(ctx, rawURL, http.MethodPost, Options{Form: form}, false)
}

// JSON posts data as a JSON body. Empty data is sent as {}.
func (c *Client) JSON(ctx context.Context, rawURL string, data any, query map[string]any) (any, error) {
	if isEmptyPayload(data) {
		data = map[string]any{}
	}
	return c.Request(ctx, rawURL, http.MethodPost, Options{JSON: data, Query: query}, false)
}

// Upload posts files and form fields as multipart/form-data. Each file
// value is a Part, a path to an existing file, an absolute URL to fetch, or
// inline content. A list value sends one name[] part per element.
func (c *Client) Upload(ctx context.Context, rawURL string, files, form, query map[string]any) (any, error) {
	var parts []Part
	for _, name := range sortedKeys(files) {
		v := files[name]
		if items, ok := listValues(v); ok {
			for _, item := range items {
				p, err := c.resolvePart(ctx, name+"[]", item)
				if err != nil {
					return nil, err
				}
				parts = append(parts, p)
			}
			continue
		}
		p, err := c.resolvePart(ctx, name, v)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	for _, f := range flattenFields(form) {
		parts = append(parts, Part{Name: f.name, Content: []byte(f.value)})
	}
	if parts == nil {
		parts = []Part{}
	}

	return c.Request(ctx, rawURL, http.MethodPost, Options{
		Multipart:      parts,
		Query:          query,
		Timeout:        UploadTimeout,
		ConnectTimeout: UploadTimeout,
		ReadTimeout:    UploadTimeout,
	}, false)
}

// Close releases idle transport connections.
func (c *Client) Close(ctx context.Context) error {
	return c.adapter.Close(ctx)
}

func (c *Client) dispatch(ctx context.Context, e events.Event) {
	if c.dispatcherFn == nil {
		return
	}
	d, err := c.dispatcherFn()
	if err == nil && d != nil {
		err = d.Dispatch(ctx, e)
	}
	if err == nil {
		return
	}
	if log, lerr := c.loggerFn(); lerr == nil && log != nil {
		log.WithContext(ctx).Warn("event listener failed", logger.Fields(
			logger.FieldEvent, e.Name(),
			logger.FieldError, err.Error(),
		))
	}
}

// resolvePart turns one upload value into a part called name.
func (c *Client) resolvePart(ctx context.Context, name string, v any) (Part, error) {
	switch t := v.(type) {
	case Part:
		if t.Name == "" {
			t.Name = name
		}
		return t, nil
	case *Part:
		if t == nil {
			return Part{}, errors.InvalidInput(name, "nil part")
		}
		p := *t
		if p.Name == "" {
			p.Name = name
		}
		return p, nil
	case []byte:
		return Part{Name: name, Content: t}, nil
	case string:
		return c.resolveReference(ctx, name, t)
	}
	return Part{}, errors.InvalidInput(name, "upload values must be a Part, []byte or string")
}

func (c *Client) resolveReference(ctx context.Context, name, ref string) (Part, error) {
	if info, err := os.Stat(ref); err == nil && info.Mode().IsRegular() {
		data, err := os.ReadFile(ref)
		if err != nil {
			return Part{}, errors.InvalidInput(name, err.Error())
		}
		return Part{
			Name:        name,
			Filename:    filepath.Base(ref),
			ContentType: mime.TypeByExtension(filepath.Ext(ref)),
			Content:     data,
		}, nil
	}

	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		env, err := c.adapter.Fetch(ctx, ref, UploadTimeout)
		if err != nil {
			return Part{}, err
		}
		filename := path.Base(u.Path)
		if filename == "/" || filename == "." {
			filename = u.Host
		}
		ct, _, _ := strings.Cut(env.ContentType(), ";")
		return Part{
			Name:        name,
			Filename:    filename,
			ContentType: strings.TrimSpace(ct),
			Content:     env.Bytes(),
		}, nil
	}

	return Part{Name: name, Content: []byte(ref)}, nil
}

// listValues reports whether v is a list of upload values. Byte slices
// are content, not lists.
func listValues(v any) ([]any, bool) {
	switch v.(type) {
	case []byte, string, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
