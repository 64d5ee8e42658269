package services_test

import (
	"context"
	"testing"

	"fileslink/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithChatID(ctx, -1001)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if chat, ok := services.ChatIDFromContext(ctx); !ok || chat != -1001 {
		t.Fatalf("unexpected chat id: %v %v", chat, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankJobIDPreservesContext(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "")
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
	if _, ok := services.ChatIDFromContext(ctx); ok {
		t.Fatal("expected no chat id value")
	}
}
