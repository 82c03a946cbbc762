package flight

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestEnrichContextMetadata(t *testing.T) {
	md := metadata.Pairs(
		HeaderAuthorization, "Bearer t",
		HeaderTraceID, "trace-1",
		HeaderSessionID, "session-1",
	)
	ctx := EnrichContextMetadata(metadata.NewIncomingContext(context.Background(), md))

	meta := MetaFromContext(ctx)
	if meta == nil {
		t.Fatal("expected metadata in context")
	}
	if meta.Authorization != "Bearer t" || TraceIDFromContext(ctx) != "trace-1" || SessionIDFromContext(ctx) != "session-1" {
		t.Errorf("unexpected metadata %+v", meta)
	}

	attrs := logAttrs(ctx)
	if len(attrs) != 4 || attrs[1] != "trace-1" || attrs[3] != "session-1" {
		t.Errorf("unexpected log attrs %v", attrs)
	}

	if again := EnrichContextMetadata(ctx); again != ctx {
		t.Error("enriching twice should return the same context")
	}
}

func TestEnrichContextWithoutMetadata(t *testing.T) {
	ctx := EnrichContextMetadata(context.Background())
	if MetaFromContext(ctx) != nil {
		t.Error("expected no metadata")
	}
	if attrs := logAttrs(ctx); len(attrs) != 0 {
		t.Errorf("expected no log attrs, got %v", attrs)
	}
}
