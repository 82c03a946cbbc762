package airport

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-openapi/auth"
	"github.com/hugr-lab/airport-openapi/catalog"
)

// ServerConfig contains configuration for Airport Flight server.
type ServerConfig struct {
	// Catalog provides schemas and tables, usually a *restcatalog.Catalog.
	// REQUIRED: MUST NOT be nil.
	Catalog catalog.Catalog

	// Auth provides authentication logic.
	// OPTIONAL: If nil, no authentication (all requests allowed).
	Auth auth.Authenticator

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If Logger is also provided, LogLevel is ignored.
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	MaxMessageSize int

	// Address is the server's public address (e.g., "localhost:50051").
	// OPTIONAL: If empty, FlightEndpoint locations will not include URI.
	Address string
}

// Standard errors returned by airport package.
var (
	// ErrUnauthorized indicates authentication failed.
	// Return this from Authenticator.Authenticate() for invalid tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidConfig indicates ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid server config")
)

// Validate checks that required ServerConfig fields are valid.
func (c ServerConfig) Validate() error {
	if c.Catalog == nil {
		return fmt.Errorf("%w: catalog is required", ErrInvalidConfig)
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("%w: max message size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// WithDefaults fills the optional fields.
func (c ServerConfig) WithDefaults() ServerConfig {
	if c.Allocator == nil {
		c.Allocator = memory.DefaultAllocator
	}
	if c.Logger == nil {
		if c.LogLevel != nil {
			c.Logger = slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: *c.LogLevel}))
		} else {
			c.Logger = slog.Default()
		}
	}
	return c
}
