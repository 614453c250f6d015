package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type authServiceMock struct {
	loginReq      models.LoginRequest
	loginErr      error
	loggedOut     []string
	logoutErr     error
	deactivatedBy string
	passwordErr   error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	m.loginReq = req
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.AuthResponse{
		Success:      true,
		Token:        "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         models.AdminUserInfo{ID: "admin-1", Username: req.Username, Role: models.RoleEditor},
	}, nil
}

func (m *authServiceMock) Refresh(ctx context.Context, req models.RefreshRequest) (*models.AuthResponse, error) {
	if req.RefreshToken != "refresh-token" {
		return nil, appErrors.ErrSessionNotFound
	}
	return &models.AuthResponse{Success: true, Token: "access-2", RefreshToken: "refresh-2"}, nil
}

func (m *authServiceMock) Logout(ctx context.Context, token string) error {
	m.loggedOut = append(m.loggedOut, token)
	return m.logoutErr
}

func (m *authServiceMock) DeactivateAllSessions(ctx context.Context, userID string) (int, error) {
	m.deactivatedBy = userID
	return 3, nil
}

func (m *authServiceMock) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	return []models.Session{{ID: "session-1", UserID: userID, IsActive: true}}, nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	return m.passwordErr
}

func newAuthRouter(svc *authServiceMock, principal *models.Principal) *gin.Engine {
	h := NewAuthHandler(svc, CookieConfig{Name: "admin_token", MaxAge: time.Hour}, nil)
	router := testRouter(principal)
	router.POST("/auth/login", h.Login)
	router.POST("/auth/refresh", h.Refresh)
	router.POST("/auth/logout", h.Logout)
	router.POST("/auth/logout-all", h.LogoutAll)
	router.GET("/auth/me", h.Me)
	router.GET("/auth/sessions", h.Sessions)
	router.POST("/auth/change-password", h.ChangePassword)
	return router
}

func TestAuthHandlerLoginSetsCookieAndFlatPayload(t *testing.T) {
	svc := &authServiceMock{}
	router := newAuthRouter(svc, nil)

	w := performRequest(router, http.MethodPost, "/auth/login", map[string]string{"username": "editor", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	var body models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "access-token", body.Token)
	assert.Equal(t, "editor", body.User.Username)
	assert.Equal(t, "editor", svc.loginReq.Username)

	cookie := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, "admin_token=access-token"))
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "SameSite=Lax")
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	router := newAuthRouter(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials}, nil)

	w := performRequest(router, http.MethodPost, "/auth/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodPost, "/auth/login", map[string]string{"username": "editor", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decodeEnvelope(t, w).Error.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestAuthHandlerRefresh(t *testing.T) {
	router := newAuthRouter(&authServiceMock{}, nil)

	w := performRequest(router, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": "refresh-token"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "admin_token=access-2")

	w = performRequest(router, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": "other"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerLogoutAlwaysSucceeds(t *testing.T) {
	svc := &authServiceMock{logoutErr: errors.New("db down")}
	router := newAuthRouter(svc, nil)

	w := performRequest(router, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.loggedOut)

	req := newRequest(http.MethodPost, "/auth/logout")
	req.Header.Set("Authorization", "Bearer stale-token")
	w = serve(router, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"stale-token"}, svc.loggedOut)
	assert.Equal(t, "logged out", decodeEnvelope(t, w).Message)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	req = newRequest(http.MethodPost, "/auth/logout")
	req.AddCookie(&http.Cookie{Name: "admin_token", Value: "cookie-token"})
	w = serve(router, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cookie-token", svc.loggedOut[1])
}

func TestAuthHandlerAuthenticatedEndpoints(t *testing.T) {
	svc := &authServiceMock{}
	router := newAuthRouter(svc, testPrincipal())

	w := performRequest(router, http.MethodPost, "/auth/logout-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", svc.deactivatedBy)
	assert.JSONEq(t, `{"deactivated":3}`, string(decodeEnvelope(t, w).Data))

	w = performRequest(router, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"username":"root"`)

	w = performRequest(router, http.MethodGet, "/auth/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "session-1", decodeEnvelope(t, w).Meta["current"])

	w = performRequest(router, http.MethodPost, "/auth/change-password", map[string]string{"oldPassword": "a", "newPassword": "longenough"})
	require.Equal(t, http.StatusOK, w.Code)

	svc.passwordErr = appErrors.Clone(appErrors.ErrForbidden, "current password is incorrect")
	w = performRequest(router, http.MethodPost, "/auth/change-password", map[string]string{"oldPassword": "a", "newPassword": "longenough"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthHandlerRequiresPrincipal(t *testing.T) {
	router := newAuthRouter(&authServiceMock{}, nil)
	for _, path := range []string{"/auth/me", "/auth/sessions"} {
		w := performRequest(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
