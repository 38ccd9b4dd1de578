package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizrevenue/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSessionStore(newClient(mr), time.Hour)
	userID := uuid.New()

	if err := store.Save(ctx, "tok", userID); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, err := store.Lookup(ctx, "tok"); err != nil || got != userID {
		t.Fatalf("lookup = %v, %v", got, err)
	}

	mr.FastForward(59 * time.Minute)
	if _, err := store.Lookup(ctx, "tok"); err != nil {
		t.Fatalf("lookup before expiry: %v", err)
	}
	if ttl := mr.TTL("session:tok"); ttl != time.Hour {
		t.Fatalf("expected ttl refreshed to 1h, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Lookup(ctx, "tok"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}

	_ = store.Save(ctx, "tok2", userID)
	if err := store.Delete(ctx, "tok2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("session:tok2") {
		t.Fatalf("expected redis key to be removed")
	}
}
