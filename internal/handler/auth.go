package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zentro/zentro-api/internal/auth"
	"github.com/zentro/zentro-api/internal/config"
	"github.com/zentro/zentro-api/internal/model"
	"github.com/zentro/zentro-api/internal/repository"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg       config.Config
	Users     UserStore
	Tokens    TokenStore
	TokenSvc  *auth.TokenService
	Blacklist auth.Blacklist
}

func NewAuthHandler(cfg config.Config, users UserStore, tokens TokenStore, svc *auth.TokenService, bl auth.Blacklist) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, TokenSvc: svc, Blacklist: bl}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Register: create user and return tokens immediately. New accounts get
// the "user" role; admin accounts are provisioned out of band.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, strings.TrimSpace(req.FirstName),
		strings.TrimSpace(req.LastName), model.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "Email already exists")
		}
		return fail(c, http.StatusInternalServerError, "Failed to register user")
	}

	access, err := h.TokenSvc.NewAccessToken(uid, model.RoleUser)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to issue access token")
	}
	refresh, err := h.TokenSvc.NewRefreshToken()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to issue refresh token")
	}
	if err := h.Tokens.StoreRefresh(ctx, uid, auth.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to save refresh token")
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to load user")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    toUserPayload(u),
		"access":  tokenPart{Token: access.Token, Expires: access.Exp},
		"refresh": tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "Invalid credentials")
		}
		return fail(c, http.StatusInternalServerError, "Login failed")
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if !u.IsActive {
		return fail(c, http.StatusForbidden, "User account is inactive")
	}

	access, err := h.TokenSvc.NewAccessToken(u.ID, u.Role)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to issue access token")
	}
	refresh, err := h.TokenSvc.NewRefreshToken()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to issue refresh token")
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, auth.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to save refresh token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Login successful",
		"user":    toUserPayload(u),
		"access":  tokenPart{Token: access.Token, Expires: access.Exp},
		"refresh": tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Refresh: validate by hash, revoke the old refresh token, issue a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "refresh_token required")
	}
	hash := auth.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := storeCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid refresh token")
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "Invalid refresh token")
		}
		return fail(c, http.StatusInternalServerError, "Failed to load user")
	}
	if !u.IsActive {
		return fail(c, http.StatusForbidden, "User account is inactive")
	}

	access, err := h.TokenSvc.NewAccessToken(u.ID, u.Role)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to issue access token")
	}
	newRef, err := h.TokenSvc.NewRefreshToken()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to issue refresh token")
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, auth.HashRefreshRaw(newRef.Raw), newRef.Exp); err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to save refresh token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    toUserPayload(u),
		"access":  tokenPart{Token: access.Token, Expires: access.Exp},
		"refresh": tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
	})
}

// Logout terminates sessions. With a valid bearer token and no body
// token, every refresh token of the user is revoked and the presented
// access token is blacklisted until its natural expiry. With a
// refresh_token in the body, only that session is terminated. Neither
// present is a bad request.
func (h *AuthHandler) Logout(c echo.Context) error {
	var (
		claims    auth.AccessClaims
		rawToken  string
		hasBearer bool
	)
	if header := c.Request().Header.Get("Authorization"); header != "" {
		if raw, err := auth.ExtractTokenFromHeader(header); err == nil {
			if cl, err := h.TokenSvc.VerifyAccessToken(raw); err == nil {
				claims, rawToken, hasBearer = cl, raw, true
			}
		}
	}

	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := storeCtx(c)
	defer cancel()

	if hasBearer && refreshToken == "" {
		if claims.UserID == 0 {
			return fail(c, http.StatusUnauthorized, "Unauthorized")
		}
		if err := h.Tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
			return fail(c, http.StatusInternalServerError, "Logout failed")
		}
		// The access token stays cryptographically valid until expiry;
		// the blacklist is what makes this logout effective immediately.
		if err := h.Blacklist.Revoke(ctx, auth.BlacklistKey(claims, rawToken), model.RevokeReasonLogout, claims.Exp); err != nil {
			c.Logger().Errorf("logout: blacklist revoke failed: %v", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	if refreshToken != "" {
		hash := auth.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return fail(c, http.StatusUnauthorized, "Invalid refresh token")
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return fail(c, http.StatusInternalServerError, "Logout failed")
		}
		return c.NoContent(http.StatusNoContent)
	}

	return fail(c, http.StatusBadRequest, "Provide Authorization header or refresh_token")
}
