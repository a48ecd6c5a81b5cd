package middleware

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/zentro/zentro-api/internal/auth"
    "github.com/zentro/zentro-api/internal/model"
)

// RequireRole enforces that the authenticated user's role is one of the
// allowed roles. It must be registered after RequireAuth; a request with
// no authenticated user is rejected the same way as a wrong role.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get(CtxRole).(string)
            if !ok || !allowed[role] {
                return Reject(c, http.StatusForbidden, "Insufficient permissions", CodeAccessDenied)
            }
            return next(c)
        }
    }
}

// RequireOwnership rejects requests whose :userId path parameter names a
// different user than the authenticated one. Admins may act on any
// user's resources. Routes without a :userId parameter pass through.
func RequireOwnership() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            param := c.Param("userId")
            if param == "" {
                return next(c)
            }
            u, ok := CurrentUser(c)
            if !ok {
                return Reject(c, http.StatusForbidden, "Access denied", CodeForbidden)
            }
            if u.Role == model.RoleAdmin {
                return next(c)
            }
            if param != strconv.FormatUint(u.ID, 10) {
                return Reject(c, http.StatusForbidden, "Access denied", CodeForbidden)
            }
            return next(c)
        }
    }
}

// RequireGuest gates registration and login against already-authenticated
// callers: a currently-valid bearer token is rejected, while an absent,
// invalid or expired token passes through to the handler.
func RequireGuest(tokens *auth.TokenService) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get("Authorization")
            if header != "" {
                if raw, err := auth.ExtractTokenFromHeader(header); err == nil {
                    if _, err := tokens.VerifyAccessToken(raw); err == nil {
                        return Reject(c, http.StatusBadRequest, "Already authenticated", CodeAlreadyAuthenticated)
                    }
                }
            }
            return next(c)
        }
    }
}
