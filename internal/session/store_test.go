package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/courierdash/courierdash/internal/session"
)

func newStore(t *testing.T) (*session.RedisCredentialStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return session.NewRedisCredentialStore(client), mr
}

func TestCredentialRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "sess-1", "bearer-token", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "bearer-token" {
		t.Fatalf("expected stored credential, got %q", got)
	}
}

func TestMissingSlotIsAbsentNotError(t *testing.T) {
	store, _ := newStore(t)

	got, err := store.Get(context.Background(), "never-set")
	if err != nil {
		t.Fatalf("get on missing slot: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty credential, got %q", got)
	}
}

func TestClearDestroysSlot(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "sess-1", "bearer-token", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := store.Get(ctx, "sess-1"); got != "" {
		t.Fatalf("expected cleared slot, got %q", got)
	}

	// Clearing again must not error.
	if err := store.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestSlotExpiresWithTTL(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "sess-1", "bearer-token", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if got, _ := store.Get(ctx, "sess-1"); got != "" {
		t.Fatalf("expected slot reaped by ttl, got %q", got)
	}
}
