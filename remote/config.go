package remote

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hugr-lab/airport-openapi/auth"
)

// DefaultTimeout is used for each of the connect, read and write timeouts
// when they are left at zero.
const DefaultTimeout = 10 * time.Second

// Config configures a Client. It is passed by value and never mutated by
// the client.
type Config struct {
	// BaseURL is the root of the REST API, e.g. "https://api.example.com/v1".
	// REQUIRED.
	BaseURL string `mapstructure:"base_url"`

	// Auth holds the credentials attached to every request.
	Auth auth.Credentials `mapstructure:"auth"`

	// ConnectTimeout bounds dialing and the TLS handshake.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// ReadTimeout bounds the wait for response headers once the request is sent.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is added to the other two to bound the whole exchange,
	// request body included.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// RequestsPerSecond paces outgoing requests. 0 means unlimited.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// Transport overrides the HTTP transport. Credentials are still applied.
	// OPTIONAL: mostly for tests.
	Transport http.RoundTripper `mapstructure:"-"`

	// Logger for call-level logging. OPTIONAL: slog.Default() if nil.
	Logger *slog.Logger `mapstructure:"-"`

	// TracerProvider for per-call spans. OPTIONAL: the global provider if nil.
	TracerProvider trace.TracerProvider `mapstructure:"-"`
}

// WithDefaults returns a copy with zero timeouts replaced by DefaultTimeout.
func (c Config) WithDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultTimeout
	}
	if c.Auth.APIKeyHeader == "" {
		c.Auth.APIKeyHeader = auth.DefaultAPIKeyHeader
	}
	return c
}

// Validate checks the config after defaults are applied.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base_url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base_url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base_url must be http or https, got %q", ErrInvalidConfig, c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base_url has no host", ErrInvalidConfig)
	}
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Auth.Resolve(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
