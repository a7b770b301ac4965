package services_test

import (
	"context"
	"testing"

	"shrink/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithState(ctx, "encoding")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if state, ok := services.StateFromContext(ctx); !ok || state != "encoding" {
		t.Fatalf("unexpected state: %v %v", state, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithState(ctx, "")
	ctx = services.WithJobID(ctx, "")
	if _, ok := services.StateFromContext(ctx); ok {
		t.Fatal("expected no state value")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
}
