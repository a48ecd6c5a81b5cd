package model

import "time"

// Roles assigned to user accounts.  The role is stored as a plain string
// column on the users table and embedded in access token claims.
const (
    RoleUser  = "user"
    RoleAdmin = "admin"
)

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column in the database.  The json
// tags are omitted here because these structs are used internally by the
// repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//  ID                – primary key identifier of the user.
//  Email             – unique email address (stored lowercased).
//  PasswordHash      – bcrypt hashed password.
//  FirstName         – optional given name.
//  LastName          – optional family name.
//  Role              – account role ("user" or "admin").
//  IsActive          – whether the account is active; inactive accounts
//                      never pass authentication.
//  EmailVerified     – whether the email address has been verified.
//  PasswordChangedAt – when the password was last changed (nil if never).
//                      Access tokens issued before this instant are
//                      rejected by the auth middleware.
//  CreatedAt         – timestamp of creation.
//  UpdatedAt         – timestamp of last update.
type User struct {
    ID                uint64     // users.id
    Email             string     // users.email
    PasswordHash      string     // users.password_hash
    FirstName         string     // users.first_name
    LastName          string     // users.last_name
    Role              string     // users.role
    IsActive          bool       // users.is_active
    EmailVerified     bool       // users.email_verified
    PasswordChangedAt *time.Time // users.password_changed_at (nullable)
    CreatedAt         time.Time  // users.created_at
    UpdatedAt         time.Time  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  A user may hold several at once (one per device);
// revoking them all implements "sign out everywhere".  The plain token
// is not stored; only its SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
