// Package audit provides the append-only activity trail. A Recorder
// accepts finished-request entries; implementations publish them to
// RabbitMQ, keep them in memory for tests, or drop them when auditing is
// disabled. Recording is side-effect only: a failed append never fails
// the request that produced it.
package audit

import (
    "context"
    "sync"

    "github.com/zentro/zentro-api/internal/model"
)

// Recorder appends one audit entry. Implementations must be safe for
// concurrent use.
type Recorder interface {
    Record(ctx context.Context, e model.AuditEntry) error
}

// MemoryRecorder collects entries in memory. Used by tests and as a
// stand-in when no broker is configured.
type MemoryRecorder struct {
    mu      sync.Mutex
    entries []model.AuditEntry
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (r *MemoryRecorder) Record(_ context.Context, e model.AuditEntry) error {
    r.mu.Lock()
    r.entries = append(r.entries, e)
    r.mu.Unlock()
    return nil
}

// Entries returns a copy of everything recorded so far.
func (r *MemoryRecorder) Entries() []model.AuditEntry {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := make([]model.AuditEntry, len(r.entries))
    copy(out, r.entries)
    return out
}
