package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zentro/zentro-api/internal/auth"
	"github.com/zentro/zentro-api/internal/config"
	"github.com/zentro/zentro-api/internal/middleware"
	"github.com/zentro/zentro-api/internal/model"
	"github.com/zentro/zentro-api/internal/repository"
)

// UserHandler bundles dependencies for the profile and account endpoints.
// Every route it serves sits behind RequireAuth.
type UserHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewUserHandler(cfg config.Config, users UserStore, tokens TokenStore) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Tokens: tokens}
}

type updateProfileReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// subjectID resolves which user a profile request targets: the :userId
// path parameter when present (ownership already checked by the guard),
// otherwise the authenticated user.
func subjectID(c echo.Context) (uint64, error) {
	if param := c.Param("userId"); param != "" {
		return strconv.ParseUint(param, 10, 64)
	}
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return 0, errors.New("no authenticated user")
	}
	return u.ID, nil
}

// GetProfile returns the targeted user's profile.
func (h *UserHandler) GetProfile(c echo.Context) error {
	id, err := subjectID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid user id")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Failed to fetch profile")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": toUserPayload(u)})
}

// UpdateProfile sets the mutable profile fields.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	id, err := subjectID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid user id")
	}

	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, id, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Failed to update profile")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User profile updated successfully",
		"user":    toUserPayload(u),
	})
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every refresh token. password_changed_at is stamped by the
// store, which invalidates all previously issued access tokens through
// the middleware's issued-at check; no per-token blacklisting is needed.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fail(c, http.StatusBadRequest, "Current and new password are required")
	}
	if !auth.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return fail(c, http.StatusBadRequest, "Current password is incorrect")
	}

	hash, err := auth.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to change password")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Failed to change password")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		c.Logger().Errorf("change-password: revoke refresh tokens failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Password changed successfully. Please log in again on all devices.",
	})
}

// ExportData returns everything stored about the authenticated user as a
// downloadable JSON document.
func (h *UserHandler) ExportData(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	fresh, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Failed to export user data")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="user-data-%d.json"`, fresh.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"exportDate": time.Now().UTC().Format(time.RFC3339),
		"userData": echo.Map{
			"personalInformation": echo.Map{
				"firstName":     fresh.FirstName,
				"lastName":      fresh.LastName,
				"email":         fresh.Email,
				"emailVerified": fresh.EmailVerified,
			},
			"accountInformation": echo.Map{
				"createdAt": fresh.CreatedAt,
				"updatedAt": fresh.UpdatedAt,
				"isActive":  fresh.IsActive,
			},
		},
	})
}

// Deactivate sets is_active=false and revokes all refresh tokens. Access
// tokens need no blacklisting: the middleware's active check rejects them
// from the next request on.
func (h *UserHandler) Deactivate(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	if err := h.Users.SetActive(ctx, u.ID, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Failed to deactivate account")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		c.Logger().Errorf("deactivate: revoke refresh tokens failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Account deactivated successfully",
	})
}

// DeleteAccount hard-deletes the authenticated user's own account.
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, u.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Failed to delete account")
	}
	if err := h.Tokens.DeleteForUser(ctx, u.ID); err != nil {
		c.Logger().Errorf("delete-account: delete refresh tokens failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Account deleted successfully",
	})
}

// DeleteUser removes another user's account. Admin only; deleting
// yourself through this endpoint is rejected so an admin cannot lock
// themselves out by accident.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Invalid user id")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	if actor.Role != model.RoleAdmin {
		// Match lookup semantics: a missing target is 404 even for
		// non-admin callers, an existing one is forbidden.
		if _, err := h.Users.GetByID(ctx, targetID); errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusForbidden, "Forbidden: Admin access required to delete other users")
	}
	if targetID == actor.ID {
		return fail(c, http.StatusBadRequest, "Cannot delete your own account through this endpoint")
	}

	if err := h.Users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "User not found")
		}
		return fail(c, http.StatusInternalServerError, "Failed to delete user")
	}
	if err := h.Tokens.DeleteForUser(ctx, targetID); err != nil {
		c.Logger().Errorf("delete-user: delete refresh tokens failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User deleted successfully"})
}

// ListUsers returns a paginated user listing. The admin role guard runs
// before this handler.
func (h *UserHandler) ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to fetch users")
	}
	total, err := h.Users.Count(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to fetch users")
	}

	payload := make([]userPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, toUserPayload(u))
	}
	totalPages := (total + int64(limit) - 1) / int64(limit)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"users":   payload,
		"pagination": echo.Map{
			"totalUsers":  total,
			"currentPage": page,
			"totalPages":  totalPages,
			"limit":       limit,
		},
	})
}
