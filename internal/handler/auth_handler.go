package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/middleware"
	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Refresh(ctx context.Context, req models.RefreshRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	DeactivateAllSessions(ctx context.Context, userID string) (int, error)
	ListSessions(ctx context.Context, userID string) ([]models.Session, error)
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error
}

// CookieConfig describes the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookie  CookieConfig
	logger  *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie CookieConfig, logger *zap.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "admin_token"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: svc, cookie: cookie, logger: logger}
}

// Login godoc
// @Summary Authenticate admin
// @Description Authenticate by username and password. Sets the session cookie.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, res.Token)
	response.Payload(c, http.StatusOK, res)
}

// Refresh godoc
// @Summary Refresh session
// @Description Exchange a refresh token for a new token pair. The old pair stops working.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh payload"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid refresh payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Refresh(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, res.Token)
	response.Payload(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Logout current session
// @Description Ends the session named by the bearer token or cookie. Always succeeds.
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := middleware.ExtractToken(c, h.cookie.Name)
	if token != "" {
		if err := h.service.Logout(c.Request.Context(), token); err != nil {
			h.logger.Warn("logout failed", zap.Error(err))
		}
	}
	h.clearCookie(c)
	response.Message(c, http.StatusOK, "logged out")
}

// LogoutAll godoc
// @Summary Logout everywhere
// @Description Deactivates every session of the caller.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	count, err := h.service.DeactivateAllSessions(c.Request.Context(), principal.User.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.clearCookie(c)
	response.JSON(c, http.StatusOK, gin.H{"deactivated": count})
}

// Me godoc
// @Summary Current admin
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, principal.User)
}

// Sessions godoc
// @Summary List live sessions of the caller
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/sessions [get]
func (h *AuthHandler) Sessions(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	sessions, err := h.service.ListSessions(c.Request.Context(), principal.User.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"current": principal.SessionID})
}

// ChangePassword godoc
// @Summary Change password
// @Description Changes the caller's password and ends all of their sessions.
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), principal.User.ID, req); err != nil {
		response.Error(c, err)
		return
	}

	h.clearCookie(c)
	response.Message(c, http.StatusOK, "password changed")
}

func (h *AuthHandler) setCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
