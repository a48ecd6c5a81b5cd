// Package router wires handlers and middleware onto the Echo instance.
// The ordering here is deliberate: security headers and the audit trail
// wrap everything, authentication runs before any role or ownership
// guard, and the guest gate covers only register and login.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/zentro/zentro-api/internal/audit"
	"github.com/zentro/zentro-api/internal/auth"
	"github.com/zentro/zentro-api/internal/handler"
	"github.com/zentro/zentro-api/internal/middleware"
	"github.com/zentro/zentro-api/internal/model"
)

// Deps carries everything route registration needs.
type Deps struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	TokenSvc  *auth.TokenService
	Blacklist auth.Blacklist
	Loader    middleware.UserLoader
	Audit     audit.Recorder
	RateLimit echo.MiddlewareFunc // nil disables rate limiting
}

// Register registers all application routes and middleware.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit())
	e.Use(middleware.Audit(d.Audit))

	e.GET("/healthz", handler.Health)

	// Unauthenticated session operations. Register and login are gated
	// against already-authenticated callers; all four share the rate
	// limiter so credential stuffing is throttled at the group level.
	g := e.Group("/v1/auth")
	if d.RateLimit != nil {
		g.Use(d.RateLimit)
	}
	g.POST("/register", d.Auth.Register, middleware.RequireGuest(d.TokenSvc))
	g.POST("/login", d.Auth.Login, middleware.RequireGuest(d.TokenSvc))
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	// Everything under /v1/users requires a valid, non-revoked session on
	// an active, verified account.
	requireAuth := middleware.RequireAuth(d.TokenSvc, d.Blacklist, d.Loader)

	u := e.Group("/v1/users")
	u.Use(requireAuth)
	u.GET("/profile", d.Users.GetProfile)
	u.PUT("/profile", d.Users.UpdateProfile)
	u.GET("/:userId/profile", d.Users.GetProfile, middleware.RequireOwnership())
	u.PUT("/:userId/profile", d.Users.UpdateProfile, middleware.RequireOwnership())
	u.PUT("/change-password", d.Users.ChangePassword)
	u.GET("/export", d.Users.ExportData)
	u.PUT("/deactivate", d.Users.Deactivate)
	u.DELETE("/account", d.Users.DeleteAccount)
	u.DELETE("/:userId", d.Users.DeleteUser)
	u.GET("", d.Users.ListUsers, middleware.RequireRole(model.RoleAdmin))
}
