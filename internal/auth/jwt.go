// Package auth implements the token service: issuing and verifying signed
// access tokens, minting refresh tokens, bearer header parsing and the
// token blacklist used for pre-expiry revocation.
package auth

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for refresh tokens
    "encoding/hex"  // hex encoding of random bytes and digests
    "errors"
    "strconv"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Verification failures surfaced to callers.  The middleware maps each to
// a distinct machine-readable rejection code.
var (
    // ErrMalformedHeader means the Authorization header is present but is
    // not of the form "Bearer <token>".
    ErrMalformedHeader = errors.New("malformed authorization header")
    // ErrTokenExpired means the token parsed and its signature checked out
    // but it is past its expiry.
    ErrTokenExpired = errors.New("token expired")
    // ErrTokenInvalid covers every other verification failure: bad
    // signature, wrong algorithm, malformed payload.
    ErrTokenInvalid = errors.New("invalid token")
)

// AccessToken represents a signed JWT access token along with its
// identifier and expiry.  Access tokens are short‑lived and carried in the
// Authorization header when calling protected endpoints.
type AccessToken struct {
    Token    string    // the serialized JWT string
    ID       string    // jti claim, used as the blacklist key
    IssuedAt time.Time // UTC issue time
    Exp      time.Time // UTC expiration time
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
    UserID   uint64    // sub claim
    Role     string    // role claim
    TokenID  string    // jti claim (may be empty for legacy tokens)
    IssuedAt time.Time // iat claim
    Exp      time.Time // exp claim
}

// RefreshToken represents a long‑lived token used to obtain new access
// tokens.  The Raw field contains the raw token string returned to the
// client.  In the database only a SHA‑256 hash of the raw string is
// stored, so a stolen table cannot be replayed.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// TokenService issues and verifies tokens with a fixed signing secret.
// It is stateless: given the same secret it performs no I/O and holds no
// cross-request state.  Now is overridable so tests can control issue
// times; when nil, time.Now is used.
type TokenService struct {
    Secret         string
    AccessTTLMin   int // access token lifetime in minutes
    RefreshTTLDays int // refresh token lifetime in days
    Now            func() time.Time
}

func (s *TokenService) now() time.Time {
    if s.Now != nil {
        return s.Now().UTC()
    }
    return time.Now().UTC()
}

// ExtractTokenFromHeader parses an Authorization header value of the form
// "Bearer <token>" and returns the raw token.  The scheme match is
// case-insensitive.  An absent prefix or empty token yields
// ErrMalformedHeader.
func ExtractTokenFromHeader(header string) (string, error) {
    parts := strings.SplitN(header, " ", 2)
    if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
        return "", ErrMalformedHeader
    }
    raw := strings.TrimSpace(parts[1])
    if raw == "" {
        return "", ErrMalformedHeader
    }
    return raw, nil
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The claims
// are: jti (random identifier used for revocation), sub (user ID), role,
// iat and exp.  The TTL comes from configuration, never a hardcoded
// constant.
func (s *TokenService) NewAccessToken(userID uint64, role string) (AccessToken, error) {
    jti, err := randomHex(16)
    if err != nil {
        return AccessToken{}, err
    }
    iat := s.now()
    exp := iat.Add(time.Duration(s.AccessTTLMin) * time.Minute)
    claims := jwt.MapClaims{
        "jti":  jti,
        "sub":  userID,
        "role": role,
        "iat":  iat.Unix(),
        "exp":  exp.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(s.Secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, ID: jti, IssuedAt: iat, Exp: exp}, nil
}

// VerifyAccessToken validates the signature and expiry of a raw token and
// returns its claims.  An expired token yields ErrTokenExpired; any other
// failure yields ErrTokenInvalid.
func (s *TokenService) VerifyAccessToken(raw string) (AccessClaims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Only HMAC signatures are acceptable; anything else is rejected
        // before the signature is even checked.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrTokenInvalid
        }
        return []byte(s.Secret), nil
    })
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return AccessClaims{}, ErrTokenExpired
        }
        return AccessClaims{}, ErrTokenInvalid
    }
    if !tok.Valid {
        return AccessClaims{}, ErrTokenInvalid
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return AccessClaims{}, ErrTokenInvalid
    }
    out := AccessClaims{}
    switch sub := claims["sub"].(type) {
    case float64:
        out.UserID = uint64(sub)
    case string:
        n, err := strconv.ParseUint(sub, 10, 64)
        if err != nil {
            return AccessClaims{}, ErrTokenInvalid
        }
        out.UserID = n
    default:
        return AccessClaims{}, ErrTokenInvalid
    }
    if role, ok := claims["role"].(string); ok {
        out.Role = role
    }
    if jti, ok := claims["jti"].(string); ok {
        out.TokenID = jti
    }
    if iat, ok := claims["iat"].(float64); ok {
        out.IssuedAt = time.Unix(int64(iat), 0).UTC()
    }
    if exp, ok := claims["exp"].(float64); ok {
        out.Exp = time.Unix(int64(exp), 0).UTC()
    }
    return out, nil
}

// NewRefreshToken returns a cryptographically secure random token (raw)
// and its expiration time.  Refresh tokens live longer than access tokens
// and are exchanged for new access tokens without re-entering credentials.
func (s *TokenService) NewRefreshToken() (RefreshToken, error) {
    raw, err := randomHex(48) // 48 bytes -> 96 hex chars
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: s.now().Add(time.Duration(s.RefreshTTLDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a
// hex string.  Only the hash is persisted.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// BlacklistKey returns the identifier under which a token is revoked: the
// jti claim when present, otherwise a SHA-256 digest of the raw token so
// tokens minted before jti was introduced remain revocable.
func BlacklistKey(claims AccessClaims, raw string) string {
    if claims.TokenID != "" {
        return claims.TokenID
    }
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
