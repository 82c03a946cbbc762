package airport

import (
	"context"

	"github.com/hugr-lab/airport-openapi/auth"
)

// Authenticator validates bearer tokens and returns user identity.
// This is re-exported from the auth package for convenience.
type Authenticator = auth.Authenticator

// BearerAuth creates an Authenticator from a validation function.
//
//	auth := airport.BearerAuth(func(token string) (string, error) {
//	    if token != expected {
//	        return "", airport.ErrUnauthorized
//	    }
//	    return "duckdb", nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return auth.BearerAuth(validateFunc)
}

// StaticToken accepts exactly one token and maps it to identity.
func StaticToken(token, identity string) Authenticator {
	return auth.StaticToken(token, identity)
}

// NoAuth returns an Authenticator that allows all requests without validation.
// Useful for development and testing. DO NOT use in production.
func NoAuth() Authenticator {
	return auth.NoAuth()
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
func IdentityFromContext(ctx context.Context) string {
	return auth.IdentityFromContext(ctx)
}
