package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
)

// Mode selects how requests to the remote REST service are authenticated.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeBearer Mode = "bearer"
	ModeBasic  Mode = "basic"
	ModeAPIKey Mode = "api_key"

	// modeAPIKeyAlias is the camelCase spelling of ModeAPIKey; Resolve
	// rewrites it to ModeAPIKey.
	modeAPIKeyAlias Mode = "apiKey"
)

// DefaultAPIKeyHeader carries the key in api_key mode when no header is configured.
const DefaultAPIKeyHeader = "X-API-Key"

// ErrInvalidCredentials is returned when a mode is missing its credentials.
var ErrInvalidCredentials = errors.New("invalid remote credentials")

// Credentials are the outbound credentials attached to every remote request.
type Credentials struct {
	// Mode is one of none, bearer, basic or api_key (also spelled apiKey).
	// Empty means the mode is inferred from which credentials are set.
	Mode         Mode   `mapstructure:"mode"`
	BearerToken  string `mapstructure:"bearer_token"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	APIKey       string `mapstructure:"api_key"`
	APIKeyHeader string `mapstructure:"api_key_header"`
}

// Resolve returns a copy with an explicit Mode and a header for api_key.
// With no mode set, a bearer token wins over basic credentials, which win
// over an API key.
func (c Credentials) Resolve() (Credentials, error) {
	if c.APIKeyHeader == "" {
		c.APIKeyHeader = DefaultAPIKeyHeader
	}
	if c.Mode == modeAPIKeyAlias {
		c.Mode = ModeAPIKey
	}

	switch c.Mode {
	case "":
		switch {
		case c.BearerToken != "":
			c.Mode = ModeBearer
		case c.Username != "" || c.Password != "":
			c.Mode = ModeBasic
		case c.APIKey != "":
			c.Mode = ModeAPIKey
		default:
			c.Mode = ModeNone
		}
		return c, nil
	case ModeNone:
		return c, nil
	case ModeBearer:
		if c.BearerToken == "" {
			return c, fmt.Errorf("%w: bearer mode requires a token", ErrInvalidCredentials)
		}
	case ModeBasic:
		if c.Username == "" {
			return c, fmt.Errorf("%w: basic mode requires a username", ErrInvalidCredentials)
		}
	case ModeAPIKey:
		if c.APIKey == "" {
			return c, fmt.Errorf("%w: api_key mode requires a key", ErrInvalidCredentials)
		}
	default:
		return c, fmt.Errorf("%w: unknown mode %q", ErrInvalidCredentials, c.Mode)
	}
	return c, nil
}

// Apply sets the authentication header for the resolved mode.
func (c Credentials) Apply(h http.Header) {
	switch c.Mode {
	case ModeBearer:
		h.Set("Authorization", bearerPrefix+c.BearerToken)
	case ModeBasic:
		raw := c.Username + ":" + c.Password
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	case ModeAPIKey:
		header := c.APIKeyHeader
		if header == "" {
			header = DefaultAPIKeyHeader
		}
		h.Set(header, c.APIKey)
	}
}

// String never prints secrets.
func (c Credentials) String() string {
	switch c.Mode {
	case ModeBearer:
		return "bearer(" + mask(c.BearerToken) + ")"
	case ModeBasic:
		return "basic(" + c.Username + ":" + mask(c.Password) + ")"
	case ModeAPIKey:
		return "api_key(" + c.APIKeyHeader + "=" + mask(c.APIKey) + ")"
	case "":
		return "auto"
	default:
		return string(c.Mode)
	}
}

// Masked returns a copy with every secret replaced, for printing configs.
func (c Credentials) Masked() Credentials {
	c.BearerToken = mask(c.BearerToken)
	c.Password = mask(c.Password)
	c.APIKey = mask(c.APIKey)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

// NewTransport wraps base so that every request carries the credentials.
// A nil base means http.DefaultTransport.
func NewTransport(base http.RoundTripper, creds Credentials) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if creds.Mode == ModeNone || creds.Mode == "" {
		return base
	}
	return &credentialsTransport{base: base, creds: creds}
}

type credentialsTransport struct {
	base  http.RoundTripper
	creds Credentials
}

func (t *credentialsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	t.creds.Apply(out.Header)
	return t.base.RoundTrip(out)
}
