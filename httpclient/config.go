package httpclient

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/foundation/config"
	"github.com/kbukum/foundation/errors"
)

const (
	defaultTimeout = 30 * time.Second

	// UploadTimeout bounds connect, read and total time of Upload calls.
	UploadTimeout = 30 * time.Second

	// DefaultLogTemplate is the message written by the log middleware.
	DefaultLogTemplate = "Request >>>>>>>>\n{request}\n<<<<<<<< Response\n{response}\n--------\nError {error}\n"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config configures the transport and the pipeline. It is usually decoded
// from the http section of the configuration. Durations accept seconds or
// Go duration strings.
type Config struct {
	// BaseURL is joined with relative request URLs.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds the whole exchange. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// ConnectTimeout bounds dialing and the TLS handshake. Zero means no limit.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// ReadTimeout bounds the wait for response headers. Zero means no limit.
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`

	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// HTTPErrors turns responses with status >= 400 into *Error. Defaults to true.
	HTTPErrors bool `yaml:"http_errors" mapstructure:"http_errors"`

	// Cookies enables a shared cookie jar.
	Cookies bool `yaml:"cookies" mapstructure:"cookies"`

	// Verify enables TLS certificate verification. Defaults to true.
	Verify bool `yaml:"verify" mapstructure:"verify"`

	// Proxy is the proxy URL. Empty uses the environment.
	Proxy string `yaml:"proxy" mapstructure:"proxy" validate:"omitempty,url"`

	// Auth is applied to requests that carry no Auth of their own.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Log appends the log middleware to the handler stack. Defaults to true.
	Log bool `yaml:"log" mapstructure:"log"`

	// LogTemplate is the log middleware message template.
	LogTemplate string `yaml:"log_template" mapstructure:"log_template"`

	// ResponseType is the default response format name.
	ResponseType string `yaml:"response_type" mapstructure:"response_type"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Timeout:     defaultTimeout,
		HTTPErrors:  true,
		Verify:      true,
		Log:         true,
		LogTemplate: DefaultLogTemplate,
	}
}

// ConfigFrom decodes the http section of store over DefaultConfig. The
// top-level response_type key is used when http.response_type is unset.
func ConfigFrom(store *config.Store) (Config, error) {
	cfg := DefaultConfig()
	if err := store.Unmarshal("http", &cfg); err != nil {
		return cfg, errors.InvalidConfig("http", err)
	}
	if cfg.ResponseType == "" {
		cfg.ResponseType = store.GetString("response_type", "")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, errors.InvalidConfig("http", err)
	}
	return cfg, nil
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.LogTemplate == "" {
		c.LogTemplate = DefaultLogTemplate
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Timeout < 0 || c.ConnectTimeout < 0 || c.ReadTimeout < 0 {
		return fmt.Errorf("httpclient: timeouts must not be negative")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	return c.Auth.validate()
}
