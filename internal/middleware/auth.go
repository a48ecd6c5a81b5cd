// Package middleware contains the request guards: authentication, role
// and ownership checks, the guest gate, security headers, rate limiting
// and the audit trail. Guards compose as an ordered pipeline; RequireAuth
// must run before any role or ownership check.
package middleware

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/zentro/zentro-api/internal/auth"
    "github.com/zentro/zentro-api/internal/model"
    "github.com/zentro/zentro-api/internal/repository"
)

// Machine-readable rejection codes. Clients branch on these; the
// human-readable message may change, the code may not.
const (
    CodeTokenMissing         = "TOKEN_MISSING"
    CodeTokenInvalid         = "TOKEN_INVALID"
    CodeTokenExpired         = "TOKEN_EXPIRED"
    CodeTokenRevoked         = "TOKEN_REVOKED"
    CodeUserNotFound         = "USER_NOT_FOUND"
    CodeUserInactive         = "USER_INACTIVE"
    CodeEmailNotVerified     = "EMAIL_NOT_VERIFIED"
    CodeTokenInvalidated     = "TOKEN_INVALIDATED"
    CodeAccessDenied         = "ACCESS_DENIED"
    CodeForbidden            = "FORBIDDEN"
    CodeAlreadyAuthenticated = "ALREADY_AUTHENTICATED"
)

// Context keys populated by RequireAuth once every check has passed.
// Nothing is attached on a rejected request.
const (
    CtxUser   = "user"         // model.User
    CtxUserID = "user_id"      // uint64
    CtxRole   = "role"         // string
    CtxToken  = "token"        // raw bearer token
    CtxClaims = "token_claims" // auth.AccessClaims
)

// UserLoader is the slice of the credential store the middleware needs:
// a single point-read by id.
type UserLoader interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Reject writes the standard rejection envelope.
func Reject(c echo.Context, status int, message, code string) error {
    return c.JSON(status, echo.Map{"success": false, "message": message, "code": code})
}

// RequireAuth authenticates the bearer token and enforces the account
// state invariants, in this order: header present, token well formed,
// signature valid, not expired, not revoked, user exists, user active,
// email verified, token issued after the last password change. The
// blacklist is consulted before the user record is loaded so that
// revocation does not depend on database availability, and an
// already-revoked token costs no lookup.
func RequireAuth(tokens *auth.TokenService, blacklist auth.Blacklist, users UserLoader) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get("Authorization")
            if header == "" {
                return Reject(c, http.StatusUnauthorized, "Access token required", CodeTokenMissing)
            }

            raw, err := auth.ExtractTokenFromHeader(header)
            if err != nil {
                return Reject(c, http.StatusUnauthorized, "Invalid access token", CodeTokenInvalid)
            }

            claims, err := tokens.VerifyAccessToken(raw)
            if err != nil {
                if errors.Is(err, auth.ErrTokenExpired) {
                    return Reject(c, http.StatusUnauthorized, "Access token expired", CodeTokenExpired)
                }
                return Reject(c, http.StatusUnauthorized, "Invalid access token", CodeTokenInvalid)
            }

            ctx := c.Request().Context()

            revoked, err := blacklist.IsBlacklisted(ctx, auth.BlacklistKey(claims, raw))
            if err != nil {
                c.Logger().Errorf("auth: blacklist lookup failed: %v", err)
                return Reject(c, http.StatusInternalServerError, "Authentication failed", CodeTokenInvalid)
            }
            if revoked {
                return Reject(c, http.StatusUnauthorized, "Token revoked", CodeTokenRevoked)
            }

            u, err := users.GetByID(ctx, claims.UserID)
            if err != nil {
                if errors.Is(err, repository.ErrNotFound) {
                    return Reject(c, http.StatusUnauthorized, "User not found", CodeUserNotFound)
                }
                c.Logger().Errorf("auth: user lookup failed: %v", err)
                return Reject(c, http.StatusInternalServerError, "Authentication failed", CodeTokenInvalid)
            }

            if !u.IsActive {
                return Reject(c, http.StatusForbidden, "User account is inactive", CodeUserInactive)
            }
            if !u.EmailVerified {
                return Reject(c, http.StatusForbidden, "Please verify your email address", CodeEmailNotVerified)
            }
            // Second granularity on both sides: iat is a Unix-seconds
            // claim, so the change timestamp is floored too.
            if u.PasswordChangedAt != nil && claims.IssuedAt.Unix() < u.PasswordChangedAt.Unix() {
                return Reject(c, http.StatusForbidden, "Token invalid due to password change", CodeTokenInvalidated)
            }

            // All checks passed; only now does the user become visible to
            // downstream stages.
            c.Set(CtxUser, u)
            c.Set(CtxUserID, u.ID)
            c.Set(CtxRole, u.Role)
            c.Set(CtxToken, raw)
            c.Set(CtxClaims, claims)
            return next(c)
        }
    }
}

// CurrentUser returns the authenticated user attached by RequireAuth.
func CurrentUser(c echo.Context) (model.User, bool) {
    u, ok := c.Get(CtxUser).(model.User)
    return u, ok
}

// CurrentClaims returns the verified claims of the presented token.
func CurrentClaims(c echo.Context) (auth.AccessClaims, bool) {
    cl, ok := c.Get(CtxClaims).(auth.AccessClaims)
    return cl, ok
}
