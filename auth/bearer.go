package auth

import (
	"context"
)

type bearerAuthenticator struct {
	validateFunc func(token string) (identity string, err error)
}

// BearerAuth creates an Authenticator from a validation function.
//
// Example:
//
//	a := auth.BearerAuth(func(token string) (string, error) {
//	    if token != os.Getenv("FLIGHT_TOKEN") {
//	        return "", airport.ErrUnauthorized
//	    }
//	    return "duckdb", nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{
		validateFunc: validateFunc,
	}
}

// StaticToken returns an Authenticator accepting exactly one token.
// Every accepted request gets the given identity.
func StaticToken(token, identity string) Authenticator {
	return BearerAuth(func(got string) (string, error) {
		if got != token {
			return "", ErrUnauthenticated
		}
		return identity, nil
	})
}

func (b *bearerAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return b.validateFunc(token)
}
