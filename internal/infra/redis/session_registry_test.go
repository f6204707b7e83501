package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizbot/internal/domain"
)

func TestSessionRegistrySetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	registry := NewSessionRegistry(newClient(mr), time.Minute)
	ctx := context.Background()

	release, err := registry.Acquire(ctx, "42")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists("quiz:player:42") {
		t.Fatalf("expected redis key to be set")
	}
	if _, err := registry.Acquire(ctx, "42"); !errors.Is(err, domain.ErrSessionActive) {
		t.Fatalf("expected active session, got %v", err)
	}
	if _, err := registry.Acquire(ctx, "43"); err != nil {
		t.Fatalf("other users must not be blocked: %v", err)
	}

	release()
	release()
	if mr.Exists("quiz:player:42") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, err := registry.Acquire(ctx, "42"); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestSessionRegistryMarkerExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	registry := NewSessionRegistry(newClient(mr), time.Minute)
	ctx := context.Background()

	if _, err := registry.Acquire(ctx, "42"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := registry.Acquire(ctx, "42"); err != nil {
		t.Fatalf("stale marker must expire: %v", err)
	}
}

func TestSessionRegistryReleaseKeepsNewerMarker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	registry := NewSessionRegistry(newClient(mr), time.Minute)
	ctx := context.Background()

	expired, err := registry.Acquire(ctx, "42")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	current, err := registry.Acquire(ctx, "42")
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}

	expired()
	if !mr.Exists("quiz:player:42") {
		t.Fatalf("an expired play must not remove the marker of the current one")
	}
	if _, err := registry.Acquire(ctx, "42"); !errors.Is(err, domain.ErrSessionActive) {
		t.Fatalf("expected active session, got %v", err)
	}

	current()
	if mr.Exists("quiz:player:42") {
		t.Fatalf("expected the current play to remove its marker")
	}
}
