package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zentro/zentro-api/internal/auth"
	"github.com/zentro/zentro-api/internal/model"
	"github.com/zentro/zentro-api/internal/repository"
)

type fakeLoader struct {
	users map[uint64]model.User
	err   error
	calls *[]string
}

func (f *fakeLoader) GetByID(_ context.Context, id uint64) (model.User, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, "store")
	}
	if f.err != nil {
		return model.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
	calls   *[]string
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, tokenID string) (bool, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, "blacklist")
	}
	return f.revoked[tokenID], f.err
}

func (f *fakeBlacklist) Revoke(_ context.Context, tokenID, _ string, _ time.Time) error {
	if f.revoked == nil {
		f.revoked = map[string]bool{}
	}
	f.revoked[tokenID] = true
	return nil
}

func activeUser(id uint64) model.User {
	return model.User{ID: id, Email: "a@b.c", Role: model.RoleUser, IsActive: true, EmailVerified: true}
}

func run(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	handled := false
	e.GET("/p", func(c echo.Context) error {
		handled = true
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}, mw)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, handled
}

func rejectionCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success {
		t.Fatal("rejection must carry success=false")
	}
	return body.Code
}

func TestRequireAuthStateMachine(t *testing.T) {
	svc := &auth.TokenService{Secret: "s3cret", AccessTTLMin: 15, RefreshTTLDays: 7}

	valid, err := svc.NewAccessToken(1, model.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	expiredSvc := &auth.TokenService{Secret: "s3cret", AccessTTLMin: 15}
	expiredSvc.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredSvc.NewAccessToken(1, model.RoleUser)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}

	otherSvc := &auth.TokenService{Secret: "wrong", AccessTTLMin: 15}
	forged, err := otherSvc.NewAccessToken(1, model.RoleUser)
	if err != nil {
		t.Fatalf("issue forged: %v", err)
	}

	changed := time.Now().Add(time.Hour)
	staleUser := activeUser(1)
	staleUser.PasswordChangedAt = &changed

	cases := []struct {
		name       string
		header     string
		user       model.User
		noUser     bool
		revoked    bool
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", activeUser(1), false, false, http.StatusUnauthorized, CodeTokenMissing},
		{"malformed header", "NotBearer " + valid.Token, activeUser(1), false, false, http.StatusUnauthorized, CodeTokenInvalid},
		{"garbage token", "Bearer junk", activeUser(1), false, false, http.StatusUnauthorized, CodeTokenInvalid},
		{"bad signature", "Bearer " + forged.Token, activeUser(1), false, false, http.StatusUnauthorized, CodeTokenInvalid},
		{"expired", "Bearer " + expired.Token, activeUser(1), false, false, http.StatusUnauthorized, CodeTokenExpired},
		{"revoked", "Bearer " + valid.Token, activeUser(1), false, true, http.StatusUnauthorized, CodeTokenRevoked},
		{"user not found", "Bearer " + valid.Token, model.User{}, true, false, http.StatusUnauthorized, CodeUserNotFound},
		{"inactive", "Bearer " + valid.Token, func() model.User { u := activeUser(1); u.IsActive = false; return u }(), false, false, http.StatusForbidden, CodeUserInactive},
		{"unverified", "Bearer " + valid.Token, func() model.User { u := activeUser(1); u.EmailVerified = false; return u }(), false, false, http.StatusForbidden, CodeEmailNotVerified},
		{"password changed after issue", "Bearer " + valid.Token, staleUser, false, false, http.StatusForbidden, CodeTokenInvalidated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := map[uint64]model.User{}
			if !tc.noUser {
				users[tc.user.ID] = tc.user
			}
			bl := &fakeBlacklist{}
			if tc.revoked {
				bl.revoked = map[string]bool{valid.ID: true}
			}
			mw := RequireAuth(svc, bl, &fakeLoader{users: users})

			rec, handled := run(t, mw, tc.header)
			if handled {
				t.Fatal("handler must not run on rejection")
			}
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if code := rejectionCode(t, rec); code != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, code)
			}
		})
	}
}

func TestRequireAuthAllowAttachesUser(t *testing.T) {
	svc := &auth.TokenService{Secret: "s3cret", AccessTTLMin: 15}
	tok, err := svc.NewAccessToken(7, model.RoleAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	u := activeUser(7)
	u.Role = model.RoleAdmin

	e := echo.New()
	mw := RequireAuth(svc, &fakeBlacklist{}, &fakeLoader{users: map[uint64]model.User{7: u}})
	e.GET("/p", func(c echo.Context) error {
		got, ok := CurrentUser(c)
		if !ok || got.ID != 7 {
			t.Fatalf("expected user 7 in context, got %+v (%v)", got, ok)
		}
		if c.Get(CtxRole) != model.RoleAdmin {
			t.Fatalf("expected admin role in context")
		}
		if c.Get(CtxToken) != tok.Token {
			t.Fatal("expected raw token in context")
		}
		cl, ok := CurrentClaims(c)
		if !ok || cl.UserID != 7 {
			t.Fatalf("expected claims in context, got %+v", cl)
		}
		return c.NoContent(http.StatusOK)
	}, mw)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// The blacklist must be consulted before the credential store, and a
// revoked token must never reach the store at all.
func TestBlacklistCheckPrecedesUserLoad(t *testing.T) {
	svc := &auth.TokenService{Secret: "s3cret", AccessTTLMin: 15}
	tok, err := svc.NewAccessToken(1, model.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var calls []string
	loader := &fakeLoader{users: map[uint64]model.User{1: activeUser(1)}, calls: &calls}
	bl := &fakeBlacklist{calls: &calls}

	rec, _ := run(t, RequireAuth(svc, bl, loader), "Bearer "+tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(calls) != 2 || calls[0] != "blacklist" || calls[1] != "store" {
		t.Fatalf("expected blacklist before store, got %v", calls)
	}

	calls = nil
	bl.revoked = map[string]bool{tok.ID: true}
	rec, _ = run(t, RequireAuth(svc, bl, loader), "Bearer "+tok.Token)
	if code := rejectionCode(t, rec); code != CodeTokenRevoked {
		t.Fatalf("expected TOKEN_REVOKED, got %s", code)
	}
	if len(calls) != 1 || calls[0] != "blacklist" {
		t.Fatalf("revoked token must not touch the store, got %v", calls)
	}
}

func TestRequireAuthBlacklistErrorDegrades(t *testing.T) {
	svc := &auth.TokenService{Secret: "s3cret", AccessTTLMin: 15}
	tok, err := svc.NewAccessToken(1, model.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	bl := &fakeBlacklist{err: errors.New("redis down")}
	rec, handled := run(t, RequireAuth(svc, bl, &fakeLoader{users: map[uint64]model.User{1: activeUser(1)}}), "Bearer "+tok.Token)
	if handled {
		t.Fatal("handler must not run when the blacklist is unavailable")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if code := rejectionCode(t, rec); code != CodeTokenInvalid {
		t.Fatalf("expected generic TOKEN_INVALID, got %s", code)
	}
}
