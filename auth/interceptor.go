package auth

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
)

// UnaryServerInterceptor creates a gRPC unary interceptor for authentication.
// A nil authenticator lets every request through.
func UnaryServerInterceptor(authenticator Authenticator, logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if authenticator == nil {
			return handler(ctx, req)
		}

		ctx, err := authenticate(ctx, authenticator, info.FullMethod, logger)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor creates a gRPC stream interceptor for authentication.
// A nil authenticator lets every request through.
func StreamServerInterceptor(authenticator Authenticator, logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if authenticator == nil {
			return handler(srv, ss)
		}

		ctx, err := authenticate(ss.Context(), authenticator, info.FullMethod, logger)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticate(ctx context.Context, authenticator Authenticator, method string, logger *slog.Logger) (context.Context, error) {
	if logger == nil {
		logger = slog.Default()
	}

	token, err := ExtractToken(ctx)
	if err != nil {
		logger.Debug("Rejected Flight call", "method", method, "error", err)
		return ctx, err
	}

	ctx, err = ValidateToken(ctx, token, authenticator)
	if err != nil {
		logger.Debug("Rejected Flight call", "method", method, "error", err)
		return ctx, err
	}
	return ctx, nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
