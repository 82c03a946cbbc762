package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/airport-openapi/connector"
	"github.com/hugr-lab/airport-openapi/remote"
)

// errorCode classifies a catalog or scan error for the gRPC boundary.
func errorCode(err error) codes.Code {
	var se *remote.ServiceError
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, connector.ErrTableNotFound), remote.IsNotFound(err):
		return codes.NotFound
	case errors.As(err, &se):
		if se.Retryable {
			return codes.Unavailable
		}
		return codes.Internal
	case remote.HasCode(err, remote.CodeNotImplemented):
		return codes.Unimplemented
	}
	return codes.Internal
}

// toStatus converts err into a gRPC status error. Errors that already carry
// a status are returned as is.
func toStatus(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(interface{ GRPCStatus() *status.Status }); ok {
		return err
	}
	return status.Errorf(errorCode(err), "%s: %v", msg, err)
}
