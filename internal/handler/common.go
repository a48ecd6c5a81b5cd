// Package handler implements the HTTP endpoints. Handlers depend on
// narrow store interfaces rather than concrete repositories so tests can
// run against in-memory fakes.
package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zentro/zentro-api/internal/model"
)

// UserStore is the credential store surface the handlers consume.
// *repository.UserRepo is the wired implementation.
type UserStore interface {
	Create(ctx context.Context, email, password, firstName, lastName, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, firstName, lastName string) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
	SetActive(ctx context.Context, id uint64, active bool) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, offset, limit int) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
}

// TokenStore persists refresh tokens. *repository.TokenRepo is the wired
// implementation.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
	DeleteForUser(ctx context.Context, userID uint64) error
}

// dbTimeout bounds individual store calls.
const dbTimeout = 5 * time.Second

func storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// userPayload is the JSON shape of a user in responses. The password
// hash never leaves the service.
type userPayload struct {
	ID            uint64     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"isActive"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func toUserPayload(u model.User) userPayload {
	return userPayload{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// fail writes the failure envelope without a machine code. Middleware
// rejections carry codes; controller-level failures match the envelope
// with message only.
func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message})
}
