package auth

import (
    "context"
    "time"

    "github.com/redis/go-redis/v9"
)

// Blacklist tracks access tokens revoked before their natural expiry.  A
// positive lookup always wins over a cryptographically valid signature;
// that is what makes "logout" expressible at all with self-contained
// tokens.  Entries only need to live until the token's own expiry, which
// bounds storage.
type Blacklist interface {
    // IsBlacklisted reports whether the token identifier has been revoked.
    IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
    // Revoke records the token identifier until expiresAt.  Revoking an
    // already-revoked token is a no-op.
    Revoke(ctx context.Context, tokenID, reason string, expiresAt time.Time) error
}

// RedisBlacklist stores revoked token identifiers as Redis keys whose TTL
// equals the token's remaining lifetime, so expired entries disappear on
// their own.
type RedisBlacklist struct {
    Client *redis.Client
    Prefix string // key namespace, e.g. "bl"
}

// NewRedisBlacklist returns a Redis-backed blacklist with the "bl" key
// prefix.
func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
    return &RedisBlacklist{Client: client, Prefix: "bl"}
}

func (b *RedisBlacklist) key(tokenID string) string {
    return b.Prefix + ":" + tokenID
}

// IsBlacklisted checks key existence.
func (b *RedisBlacklist) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
    n, err := b.Client.Exists(ctx, b.key(tokenID)).Result()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// Revoke writes the entry with a TTL equal to the token's remaining life.
// Tokens already past expiry are not recorded: they fail verification
// anyway.
func (b *RedisBlacklist) Revoke(ctx context.Context, tokenID, reason string, expiresAt time.Time) error {
    ttl := time.Until(expiresAt)
    if ttl <= 0 {
        return nil
    }
    return b.Client.Set(ctx, b.key(tokenID), reason, ttl).Err()
}
