package auth

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBlacklistRevokeAndLookup(t *testing.T) {
	bl := NewMemoryBlacklist()
	ctx := context.Background()

	ok, err := bl.IsBlacklisted(ctx, "t1")
	if err != nil || ok {
		t.Fatalf("fresh blacklist must be empty, got %v %v", ok, err)
	}

	exp := time.Now().Add(time.Hour)
	if err := bl.Revoke(ctx, "t1", "logout", exp); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = bl.IsBlacklisted(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("expected t1 blacklisted, got %v %v", ok, err)
	}
	ok, _ = bl.IsBlacklisted(ctx, "t2")
	if ok {
		t.Fatal("t2 must not be blacklisted")
	}
}

func TestMemoryBlacklistRevokeIsIdempotent(t *testing.T) {
	bl := NewMemoryBlacklist()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	if err := bl.Revoke(ctx, "t1", "logout", exp); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := bl.Revoke(ctx, "t1", "manual_revoke", exp.Add(time.Hour)); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	ok, err := bl.IsBlacklisted(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("t1 must remain blacklisted, got %v %v", ok, err)
	}
	if e := bl.entries["t1"]; e.reason != "logout" {
		t.Fatalf("re-revoking must keep the original entry, got reason %q", e.reason)
	}
}

func TestMemoryBlacklistExpiredEntriesAreGone(t *testing.T) {
	bl := NewMemoryBlacklist()
	ctx := context.Background()

	if err := bl.Revoke(ctx, "t1", "logout", time.Now().Add(10*time.Millisecond)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	ok, err := bl.IsBlacklisted(ctx, "t1")
	if err != nil || ok {
		t.Fatalf("expired entry must not blacklist, got %v %v", ok, err)
	}

	// Revoking a token that is already past expiry records nothing.
	if err := bl.Revoke(ctx, "t2", "logout", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("revoke expired: %v", err)
	}
	if _, exists := bl.entries["t2"]; exists {
		t.Fatal("expired token must not be recorded")
	}
}

func TestMemoryBlacklistPurge(t *testing.T) {
	bl := NewMemoryBlacklist()
	ctx := context.Background()
	if err := bl.Revoke(ctx, "old", "logout", time.Now().Add(time.Millisecond)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := bl.Revoke(ctx, "live", "logout", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	bl.purge(time.Now().Add(time.Second))
	if _, exists := bl.entries["old"]; exists {
		t.Fatal("purge must drop expired entries")
	}
	if _, exists := bl.entries["live"]; !exists {
		t.Fatal("purge must keep live entries")
	}
}
