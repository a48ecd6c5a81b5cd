package model

import "time"

// Audit outcomes derived from the HTTP status of the finished request.
const (
    OutcomeOK    = "OK"
    OutcomeError = "ERROR"
)

// Reasons recorded when an access token is revoked before its natural
// expiry.
const (
    RevokeReasonLogout = "logout"
    RevokeReasonManual = "manual_revoke"
)

// BlacklistEntry records a revoked access token.  Entries are keyed by the
// token's unique identifier (its jti claim) rather than the full token
// string, which keeps storage bounded.  Once ExpiresAt has passed the
// entry is dead weight: an expired token fails verification anyway, so
// entries may be garbage collected lazily.
type BlacklistEntry struct {
    TokenID   string    // jti of the revoked token
    Reason    string    // why the token was revoked
    ExpiresAt time.Time // natural expiry of the token
}

// AuditEntry is one append-only record of a handled request.  Entries are
// write-once and never mutated.
//
// Actor is resolved best effort: the X-User-ID header, then a userId field
// in the request body, then the authenticated user, falling back to
// "guest".
type AuditEntry struct {
    At         time.Time         `json:"at"`
    Actor      string            `json:"actor"`
    Action     string            `json:"action"` // "METHOD /path"
    Outcome    string            `json:"outcome"`
    Status     int               `json:"status"`
    DurationMS float64           `json:"duration_ms"`
    IP         string            `json:"ip,omitempty"`
    UserAgent  string            `json:"user_agent,omitempty"`
    Params     map[string]string `json:"params,omitempty"`
    Query      string            `json:"query,omitempty"`
}
