package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/repository"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
	"github.com/noah-isme/newsroom-api/pkg/middleware/requestid"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id string) (*models.AdminUser, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByAccessToken(ctx context.Context, token string) (*models.Session, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.Session, error)
	Rotate(ctx context.Context, rot models.SessionRotation) (*models.Session, error)
	DeactivateByAccessToken(ctx context.Context, token string, now time.Time) (bool, error)
	DeactivateAllForUser(ctx context.Context, userID string, now time.Time) ([]string, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	// Clock overrides time.Now; used by tests.
	Clock func() time.Time
}

// AuthService owns the admin session lifecycle.
type AuthService struct {
	users     authUserRepository
	sessions  sessionRepository
	cache     *SessionCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// unknownUserHash is compared against when the username does not exist so the
// response time matches a real password check.
func unknownUserHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, sessions sessionRepository, cache *SessionCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

func (s *AuthService) now() time.Time {
	return s.config.Clock().UTC()
}

// Login verifies credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	hash := unknownUserHash()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	passwordErr := bcrypt.CompareHashAndPassword(hash, []byte(req.Password))
	if user == nil || passwordErr != nil || !user.IsActive {
		s.metrics.RecordAuthEvent(AuthEventLogin, OutcomeFailure)
		s.logger.Info("login rejected", zap.String("username", req.Username), zap.String("ip", req.IP),
			zap.String("request_id", requestid.FromContext(ctx)))
		return nil, appErrors.ErrInvalidCredentials
	}

	now := s.now()
	session, err := s.newSession(user.ID, now, req.UserAgent, req.IP)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.metrics.RecordAuthEvent(AuthEventLogin, OutcomeSuccess)
	s.logger.Info("admin logged in", zap.String("user_id", user.ID), zap.String("session_id", session.ID),
		zap.String("request_id", requestid.FromContext(ctx)))
	return authResponse(session, user), nil
}

// Validate resolves an access token to its principal. It never writes to the store.
func (s *AuthService) Validate(ctx context.Context, token string) (*models.Principal, error) {
	if token == "" {
		return nil, appErrors.ErrSessionNotFound
	}
	if _, err := s.parseAccessToken(token); err != nil {
		return nil, appErrors.ErrSessionNotFound
	}

	now := s.now()
	session, cached := s.cache.Get(ctx, token)
	if !cached {
		var err error
		session, err = s.sessions.FindByAccessToken(ctx, token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrSessionNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
		}
	}

	if session.AccessExpired(now) {
		return nil, appErrors.ErrSessionExpired
	}
	if !session.IsActive {
		return nil, appErrors.ErrSessionInactive
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.IsActive {
		return nil, appErrors.ErrSessionNotFound
	}

	if !cached {
		s.cache.Put(ctx, session, now)
	}
	return &models.Principal{User: *user, SessionID: session.ID, Token: token}, nil
}

// Refresh rotates both tokens of the session owning refreshToken. A refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	now := s.now()
	current, err := s.sessions.FindByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		s.metrics.RecordAuthEvent(AuthEventRefresh, OutcomeFailure)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if current.RefreshExpired(now) {
		s.metrics.RecordAuthEvent(AuthEventRefresh, OutcomeFailure)
		return nil, appErrors.ErrSessionExpired
	}
	if !current.IsActive {
		s.metrics.RecordAuthEvent(AuthEventRefresh, OutcomeFailure)
		return nil, appErrors.ErrSessionInactive
	}

	user, err := s.users.FindByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.IsActive {
		return nil, appErrors.ErrSessionNotFound
	}

	next, err := s.newSession(user.ID, now, req.UserAgent, req.IP)
	if err != nil {
		return nil, err
	}
	rotated, err := s.sessions.Rotate(ctx, models.SessionRotation{
		OldRefreshToken:     req.RefreshToken,
		NewAccessToken:      next.AccessToken,
		NewRefreshToken:     next.RefreshToken,
		NewExpiresAt:        next.ExpiresAt,
		NewRefreshExpiresAt: next.RefreshExpiresAt,
		UserAgent:           next.UserAgent,
		IPAddress:           next.IPAddress,
		Now:                 now,
	})
	if err != nil {
		s.metrics.RecordAuthEvent(AuthEventRefresh, OutcomeFailure)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.ErrSessionNotFound
		case errors.Is(err, repository.ErrDuplicate):
			s.logger.Warn("token collision while rotating session", zap.String("session_id", current.ID))
			return nil, appErrors.ErrSessionNotFound
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate session")
		}
	}

	s.invalidateCached(ctx, current.AccessToken)
	s.metrics.RecordAuthEvent(AuthEventRefresh, OutcomeSuccess)
	return authResponse(rotated, user), nil
}

// Logout deactivates the session owning token. Unknown or already inactive tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	changed, err := s.sessions.DeactivateByAccessToken(ctx, token, s.now())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}
	s.invalidateCached(ctx, token)
	if changed {
		s.metrics.RecordAuthEvent(AuthEventLogout, OutcomeSuccess)
	}
	return nil
}

// DeactivateAllSessions switches off every live session of userID and returns how many changed.
func (s *AuthService) DeactivateAllSessions(ctx context.Context, userID string) (int, error) {
	tokens, err := s.sessions.DeactivateAllForUser(ctx, userID, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate sessions")
	}
	s.invalidateCached(ctx, tokens...)
	s.metrics.RecordAuthEvent(AuthEventRevoke, OutcomeSuccess)
	s.logger.Info("sessions deactivated", zap.String("user_id", userID), zap.Int("count", len(tokens)))
	return len(tokens), nil
}

// invalidateCached revokes cached sessions once the store has changed. Failures are logged;
// the affected tokens then bypass the cache.
func (s *AuthService) invalidateCached(ctx context.Context, tokens ...string) {
	if err := s.cache.Invalidate(ctx, tokens...); err != nil {
		s.logger.Error("session cache invalidation failed", zap.Int("tokens", len(tokens)), zap.Error(err))
	}
}

// CleanupExpired deletes sessions that can no longer be used. Safe to run repeatedly.
func (s *AuthService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete expired sessions")
	}
	s.metrics.AddSessionsSwept(deleted)
	return deleted, nil
}

// ListSessions returns the caller's sessions that can still be refreshed.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListActiveForUser(ctx, userID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// ChangePassword swaps the password hash and ends every session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	newHash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, string(newHash), s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if _, err := s.DeactivateAllSessions(ctx, userID); err != nil {
		return err
	}
	return nil
}

func (s *AuthService) newSession(userID string, now time.Time, userAgent, ip string) (*models.Session, error) {
	accessToken, err := s.generateAccessToken(userID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	return &models.Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresAt:        now.Add(s.config.AccessTokenExpiry),
		RefreshExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		UserAgent:        optional(userAgent),
		IPAddress:        optional(ip),
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// generateAccessToken signs a JWT naming the user. The random jti keeps tokens unique even
// when two are issued for the same user within one second.
func (s *AuthService) generateAccessToken(userID string, issuedAt time.Time) (string, error) {
	claims := &models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

// parseAccessToken checks the signature only; expiry is decided by the session row.
func (s *AuthService) parseAccessToken(tokenString string) (*models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*models.AccessClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func authResponse(session *models.Session, user *models.AdminUser) *models.AuthResponse {
	return &models.AuthResponse{
		Success:          true,
		Token:            session.AccessToken,
		RefreshToken:     session.RefreshToken,
		ExpiresAt:        session.ExpiresAt,
		RefreshExpiresAt: session.RefreshExpiresAt,
		User:             user.Info(),
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
