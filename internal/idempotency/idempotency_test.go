package idempotency

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewMemoryGuard(time.Hour)
	g.now = func() time.Time { return now }

	ok, err := g.Claim(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	if ok, _ := g.Claim(ctx, "abc"); ok {
		t.Error("second claim of the same key must fail")
	}
	if ok, _ := g.Claim(ctx, "other"); !ok {
		t.Error("a different key must succeed")
	}

	now = now.Add(2 * time.Hour)
	if ok, _ := g.Claim(ctx, "abc"); !ok {
		t.Error("claim after expiry must succeed")
	}
}

func TestMemoryGuard_Release(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard(time.Hour)

	if ok, _ := g.Claim(ctx, "abc"); !ok {
		t.Fatal("first claim must succeed")
	}
	if err := g.Release(ctx, "abc"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := g.Claim(ctx, "abc"); !ok {
		t.Error("claim after release must succeed")
	}
	if err := g.Release(ctx, "never-claimed"); err != nil {
		t.Errorf("releasing an unknown key: %v", err)
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not-a-url"); err == nil {
		t.Error("expected error for malformed URL")
	}
}

func TestNewRedisGuard_DefaultTTL(t *testing.T) {
	if g := NewRedisGuard(nil, 0); g.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", g.ttl, DefaultTTL)
	}
}
