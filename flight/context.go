package flight

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type contextKey int

const (
	airportParamsKey contextKey = iota
)

// Metadata header keys sent by the Airport extension.
const (
	// HeaderAuthorization is the gRPC metadata header for authorization token.
	HeaderAuthorization = "authorization"
	// HeaderTraceID is the gRPC metadata header for distributed trace identifier.
	HeaderTraceID = "airport-trace-id"
	// HeaderSessionID is the gRPC metadata header for client session identifier.
	HeaderSessionID = "airport-client-session-id"
)

// ContextMeta holds the Airport headers of the current call.
type ContextMeta struct {
	Authorization string
	TraceID       string
	SessionID     string
}

// WithContextMeta stores meta in ctx.
func WithContextMeta(ctx context.Context, meta ContextMeta) context.Context {
	return context.WithValue(ctx, airportParamsKey, &meta)
}

func MetaFromContext(ctx context.Context) *ContextMeta {
	params, _ := ctx.Value(airportParamsKey).(*ContextMeta)
	return params
}

// TraceIDFromContext returns the trace ID from context, or empty string if not set.
func TraceIDFromContext(ctx context.Context) string {
	if meta := MetaFromContext(ctx); meta != nil {
		return meta.TraceID
	}
	return ""
}

// SessionIDFromContext returns the session ID from context, or empty string if not set.
func SessionIDFromContext(ctx context.Context) string {
	if meta := MetaFromContext(ctx); meta != nil {
		return meta.SessionID
	}
	return ""
}

// EnrichContextMetadata extracts the Airport headers from the incoming gRPC
// metadata. An already enriched context is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if MetaFromContext(ctx) != nil {
		return ctx
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	first := func(key string) string {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
		return ""
	}
	return WithContextMeta(ctx, ContextMeta{
		Authorization: first(HeaderAuthorization),
		TraceID:       first(HeaderTraceID),
		SessionID:     first(HeaderSessionID),
	})
}

// logAttrs returns the request identifiers worth attaching to log lines.
func logAttrs(ctx context.Context) []any {
	var attrs []any
	if id := TraceIDFromContext(ctx); id != "" {
		attrs = append(attrs, "airport_trace_id", id)
	}
	if id := SessionIDFromContext(ctx); id != "" {
		attrs = append(attrs, "session_id", id)
	}
	return attrs
}
