package memory

import (
	"context"
	"testing"

	"quizbot/internal/domain"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	registry := NewSessionRegistry()
	ctx := context.Background()

	release, err := registry.Acquire(ctx, "u1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !registry.Active("u1") {
		t.Fatalf("expected u1 active")
	}
	if _, err := registry.Acquire(ctx, "u1"); err != domain.ErrSessionActive {
		t.Fatalf("expected session active error, got %v", err)
	}
	if _, err := registry.Acquire(ctx, "u2"); err != nil {
		t.Fatalf("other users must not be blocked: %v", err)
	}

	release()
	release()
	if registry.Active("u1") {
		t.Fatalf("expected u1 released")
	}
	if _, err := registry.Acquire(ctx, "u1"); err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
}
