package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }
	userID := uuid.New()

	if err := store.Save(ctx, "tok", userID); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Lookup(ctx, "tok")
	if err != nil || got != userID {
		t.Fatalf("lookup = %v, %v", got, err)
	}

	// lookups slide the expiry
	now = now.Add(50 * time.Minute)
	if _, err := store.Lookup(ctx, "tok"); err != nil {
		t.Fatalf("lookup before expiry: %v", err)
	}
	now = now.Add(50 * time.Minute)
	if _, err := store.Lookup(ctx, "tok"); err != nil {
		t.Fatalf("lookup after slide: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := store.Lookup(ctx, "tok"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}

	_ = store.Save(ctx, "tok2", userID)
	_ = store.Delete(ctx, "tok2")
	if _, err := store.Lookup(ctx, "tok2"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected deleted session, got %v", err)
	}
}
