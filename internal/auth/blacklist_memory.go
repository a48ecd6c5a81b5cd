package auth

import (
    "context"
    "sync"
    "time"
)

// MemoryBlacklist is the in-process twin of RedisBlacklist.  It backs
// tests and serves as a fallback when no Redis server is reachable at
// startup.  Lookups treat entries past their expiry as absent, and an
// optional janitor removes them eventually; the janitor is safe to run
// concurrently with lookups.
type MemoryBlacklist struct {
    mu      sync.RWMutex
    entries map[string]memoryEntry
}

type memoryEntry struct {
    reason    string
    expiresAt time.Time
}

// NewMemoryBlacklist returns an empty in-memory blacklist.
func NewMemoryBlacklist() *MemoryBlacklist {
    return &MemoryBlacklist{entries: make(map[string]memoryEntry)}
}

// IsBlacklisted reports whether the identifier has an unexpired entry.
func (b *MemoryBlacklist) IsBlacklisted(_ context.Context, tokenID string) (bool, error) {
    b.mu.RLock()
    e, ok := b.entries[tokenID]
    b.mu.RUnlock()
    if !ok {
        return false, nil
    }
    if time.Now().After(e.expiresAt) {
        return false, nil
    }
    return true, nil
}

// Revoke records the identifier until expiresAt.  Idempotent: re-revoking
// keeps the original entry.
func (b *MemoryBlacklist) Revoke(_ context.Context, tokenID, reason string, expiresAt time.Time) error {
    if time.Until(expiresAt) <= 0 {
        return nil
    }
    b.mu.Lock()
    if _, ok := b.entries[tokenID]; !ok {
        b.entries[tokenID] = memoryEntry{reason: reason, expiresAt: expiresAt}
    }
    b.mu.Unlock()
    return nil
}

// Janitor removes expired entries every interval until ctx is cancelled.
// Run it on its own goroutine.
func (b *MemoryBlacklist) Janitor(ctx context.Context, interval time.Duration) {
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            b.purge(time.Now())
        }
    }
}

func (b *MemoryBlacklist) purge(now time.Time) {
    b.mu.Lock()
    for id, e := range b.entries {
        if now.After(e.expiresAt) {
            delete(b.entries, id)
        }
    }
    b.mu.Unlock()
}
