package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/repository"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockAdminRepo struct {
	users            map[string]*models.AdminUser
	findErr          error
	lastLoginErr     error
	lastLoginUpdated bool
}

func (m *mockAdminRepo) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminRepo) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return m.lastLoginErr
}

func (m *mockAdminRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

// memorySessionRepo mirrors the conditional updates of the SQL repository.
type memorySessionRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.Session
	rotateErr error
	reads     int
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{rows: make(map[string]*models.Session)}
}

func (m *memorySessionRepo) Create(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.AccessToken == session.AccessToken || row.RefreshToken == session.RefreshToken {
			return repository.ErrDuplicate
		}
	}
	copied := *session
	m.rows[session.ID] = &copied
	return nil
}

func (m *memorySessionRepo) find(match func(*models.Session) bool) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	for _, row := range m.rows {
		if match(row) {
			copied := *row
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memorySessionRepo) FindByAccessToken(ctx context.Context, token string) (*models.Session, error) {
	return m.find(func(s *models.Session) bool { return s.AccessToken == token })
}

func (m *memorySessionRepo) FindByRefreshToken(ctx context.Context, token string) (*models.Session, error) {
	return m.find(func(s *models.Session) bool { return s.RefreshToken == token })
}

func (m *memorySessionRepo) Rotate(ctx context.Context, rot models.SessionRotation) (*models.Session, error) {
	if m.rotateErr != nil {
		return nil, m.rotateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.RefreshToken == rot.OldRefreshToken && row.IsActive && rot.Now.Before(row.RefreshExpiresAt) {
			row.AccessToken = rot.NewAccessToken
			row.RefreshToken = rot.NewRefreshToken
			row.ExpiresAt = rot.NewExpiresAt
			row.RefreshExpiresAt = rot.NewRefreshExpiresAt
			row.UpdatedAt = rot.Now
			copied := *row
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memorySessionRepo) DeactivateByAccessToken(ctx context.Context, token string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.AccessToken == token && row.IsActive {
			row.IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (m *memorySessionRepo) DeactivateAllForUser(ctx context.Context, userID string, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tokens []string
	for _, row := range m.rows {
		if row.UserID == userID && row.IsActive && now.Before(row.RefreshExpiresAt) {
			row.IsActive = false
			tokens = append(tokens, row.AccessToken)
		}
	}
	return tokens, nil
}

func (m *memorySessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if !now.Before(row.RefreshExpiresAt) || (!row.IsActive && !now.Before(row.ExpiresAt)) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memorySessionRepo) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, row := range m.rows {
		if row.UserID == userID && row.UsableForRefresh(now) {
			out = append(out, *row)
		}
	}
	return out, nil
}

type authFixture struct {
	svc      *AuthService
	users    *mockAdminRepo
	sessions *memorySessionRepo
	clock    *fakeClock
	metrics  *MetricsService
}

func newAuthFixture(t *testing.T, cache *SessionCache) *authFixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &mockAdminRepo{users: map[string]*models.AdminUser{
		"u1": {ID: "u1", Username: "editor", PasswordHash: string(hash), FullName: "Ed Itor", Role: models.RoleEditor, IsActive: true},
		"u2": {ID: "u2", Username: "retired", PasswordHash: string(hash), Role: models.RoleEditor, IsActive: false},
	}}
	sessions := newMemorySessionRepo()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	metrics := NewMetricsService()
	svc := NewAuthService(users, sessions, cache, metrics, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "newsroom-test",
		Clock:              clock.Now,
	})
	return &authFixture{svc: svc, users: users, sessions: sessions, clock: clock, metrics: metrics}
}

func (f *authFixture) login(t *testing.T) *models.AuthResponse {
	t.Helper()
	res, err := f.svc.Login(context.Background(), models.LoginRequest{Username: "editor", Password: "correct horse", IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return res
}

func errCode(err error) string {
	return appErrors.FromError(err).Code
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	f := newAuthFixture(t, nil)

	res := f.login(t)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEqual(t, res.Token, res.RefreshToken)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), res.ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), res.RefreshExpiresAt)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, models.RoleEditor, res.User.Role)
	assert.True(t, f.users.lastLoginUpdated)

	stored, err := f.sessions.FindByAccessToken(context.Background(), res.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.IPAddress)
	assert.Equal(t, "10.0.0.1", *stored.IPAddress)
	assert.True(t, stored.IsActive)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().LoginsSucceeded)
}

func TestAuthServiceLoginUsernameIsCaseInsensitive(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.svc.Login(context.Background(), models.LoginRequest{Username: "EDITOR", Password: "correct horse"})
	require.NoError(t, err)
}

func TestAuthServiceLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t, nil)
	cases := []models.LoginRequest{
		{Username: "editor", Password: "wrong"},
		{Username: "nobody", Password: "correct horse"},
		{Username: "retired", Password: "correct horse"},
	}
	for _, req := range cases {
		_, err := f.svc.Login(context.Background(), req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code, req.Username)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Message, appErr.Message, req.Username)
		assert.Equal(t, 401, appErr.Status)
	}
	assert.Empty(t, f.sessions.rows)
	assert.Equal(t, uint64(3), f.metrics.Snapshot().LoginsFailed)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	f := newAuthFixture(t, nil)
	_, err := f.svc.Login(context.Background(), models.LoginRequest{Username: "editor"})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}

func TestAuthServiceLoginStoreFailure(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.users.findErr = errors.New("connection reset")
	_, err := f.svc.Login(context.Background(), models.LoginRequest{Username: "editor", Password: "x"})
	assert.Equal(t, appErrors.ErrInternal.Code, errCode(err))
}

func TestAuthServiceLoginTokensAreUnique(t *testing.T) {
	f := newAuthFixture(t, nil)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		res := f.login(t)
		assert.False(t, seen[res.Token], "access token reused")
		assert.False(t, seen[res.RefreshToken], "refresh token reused")
		seen[res.Token] = true
		seen[res.RefreshToken] = true
	}
	assert.Len(t, f.sessions.rows, 20)
}

func TestAuthServiceValidate(t *testing.T) {
	f := newAuthFixture(t, nil)
	res := f.login(t)

	principal, err := f.svc.Validate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", principal.User.ID)
	assert.Equal(t, res.Token, principal.Token)
	assert.NotEmpty(t, principal.SessionID)
}

func TestAuthServiceValidateUnknownAndForgedTokens(t *testing.T) {
	f := newAuthFixture(t, nil)
	res := f.login(t)

	_, err := f.svc.Validate(context.Background(), "")
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err))

	_, err = f.svc.Validate(context.Background(), "not-a-jwt")
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err))

	parts := strings.Split(res.Token, ".")
	require.Len(t, parts, 3)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u2"}`))
	_, err = f.svc.Validate(context.Background(), strings.Join(parts, "."))
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err))

	other := NewAuthService(f.users, f.sessions, nil, nil, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Minute, RefreshTokenExpiry: time.Hour})
	foreign, err := other.generateAccessToken("u1", time.Now())
	require.NoError(t, err)
	_, err = f.svc.Validate(context.Background(), foreign)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err))
}

func TestAuthServiceValidateExpiredRegardlessOfActive(t *testing.T) {
	f := newAuthFixture(t, nil)
	active := f.login(t)
	loggedOut := f.login(t)
	require.NoError(t, f.svc.Logout(context.Background(), loggedOut.Token))

	f.clock.Advance(15 * time.Minute)

	_, err := f.svc.Validate(context.Background(), active.Token)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, errCode(err), "expiry instant is expired")

	_, err = f.svc.Validate(context.Background(), loggedOut.Token)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, errCode(err), "expiry wins over inactive")
}

func TestAuthServiceValidateInactiveUser(t *testing.T) {
	f := newAuthFixture(t, nil)
	res := f.login(t)
	f.users.users["u1"].IsActive = false

	_, err := f.svc.Validate(context.Background(), res.Token)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err))
}

func TestAuthServiceRefreshRotatesOnce(t *testing.T) {
	f := newAuthFixture(t, nil)
	first := f.login(t)
	f.clock.Advance(time.Minute)

	second, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), second.ExpiresAt)
	assert.Equal(t, "u1", second.User.ID)

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: first.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, 401, appErrors.FromError(err).Status)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err))

	_, err = f.svc.Validate(context.Background(), first.Token)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err), "old access token is gone")

	_, err = f.svc.Validate(context.Background(), second.Token)
	assert.NoError(t, err)
	assert.Len(t, f.sessions.rows, 1, "rotation keeps one session row")
}

func TestAuthServiceRefreshConcurrentSingleWinner(t *testing.T) {
	f := newAuthFixture(t, nil)
	res := f.login(t)

	const callers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: res.RefreshToken}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestAuthServiceRefreshFailures(t *testing.T) {
	t.Run("unknown", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "nope"})
		assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err))
	})
	t.Run("expired", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		res := f.login(t)
		f.clock.Advance(24 * time.Hour)
		_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: res.RefreshToken})
		assert.Equal(t, appErrors.ErrSessionExpired.Code, errCode(err))
	})
	t.Run("inactive", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		res := f.login(t)
		require.NoError(t, f.svc.Logout(context.Background(), res.Token))
		_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: res.RefreshToken})
		assert.Equal(t, appErrors.ErrSessionInactive.Code, errCode(err))
	})
	t.Run("access expired but refresh alive", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		res := f.login(t)
		f.clock.Advance(time.Hour)
		_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: res.RefreshToken})
		assert.NoError(t, err)
	})
	t.Run("collision reported as not found", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		res := f.login(t)
		f.sessions.rotateErr = repository.ErrDuplicate
		_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: res.RefreshToken})
		assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err))
	})
	t.Run("empty payload", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{})
		assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
	})
}

func TestAuthServiceLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t, nil)
	res := f.login(t)

	require.NoError(t, f.svc.Logout(context.Background(), res.Token))
	_, err := f.svc.Validate(context.Background(), res.Token)
	assert.Equal(t, appErrors.ErrSessionInactive.Code, errCode(err))

	assert.NoError(t, f.svc.Logout(context.Background(), res.Token))
	assert.NoError(t, f.svc.Logout(context.Background(), "never-issued"))
	assert.NoError(t, f.svc.Logout(context.Background(), ""))

	_, err = f.svc.Validate(context.Background(), res.Token)
	assert.Error(t, err)
}

func TestAuthServiceDeactivateAllSessions(t *testing.T) {
	f := newAuthFixture(t, nil)
	a := f.login(t)
	b := f.login(t)

	n, err := f.svc.DeactivateAllSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, token := range []string{a.Token, b.Token} {
		_, err := f.svc.Validate(context.Background(), token)
		assert.Error(t, err)
	}

	n, err = f.svc.DeactivateAllSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuthServiceCleanupExpired(t *testing.T) {
	f := newAuthFixture(t, nil)
	live := f.login(t)
	loggedOut := f.login(t)
	require.NoError(t, f.svc.Logout(context.Background(), loggedOut.Token))
	f.login(t)

	f.clock.Advance(20 * time.Minute)
	deleted, err := f.svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "only the inactive, access-expired session is dead")

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: live.RefreshToken})
	assert.NoError(t, err, "sweeper keeps refreshable sessions")

	f.clock.Advance(24 * time.Hour)
	deleted, err = f.svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = f.svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Equal(t, uint64(3), f.metrics.Snapshot().SessionsSwept)
}

func TestAuthServiceListSessions(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.login(t)
	gone := f.login(t)
	require.NoError(t, f.svc.Logout(context.Background(), gone.Token))

	sessions, err := f.svc.ListSessions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	sessions, err = f.svc.ListSessions(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestAuthServiceChangePassword(t *testing.T) {
	f := newAuthFixture(t, nil)
	res := f.login(t)

	err := f.svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-password"})
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	require.NoError(t, f.svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "correct horse", NewPassword: "new-password"}))

	_, err = f.svc.Validate(context.Background(), res.Token)
	assert.Error(t, err, "sessions end after a password change")

	_, err = f.svc.Login(context.Background(), models.LoginRequest{Username: "editor", Password: "new-password"})
	assert.NoError(t, err)
	_, err = f.svc.Login(context.Background(), models.LoginRequest{Username: "editor", Password: "correct horse"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errCode(err))
}

func TestAuthServiceValidateUsesSessionCache(t *testing.T) {
	cache := NewSessionCache(NewCacheService(newMemoryCache(), nil, time.Minute, zap.NewNop(), true), time.Minute)
	f := newAuthFixture(t, cache)
	res := f.login(t)

	_, err := f.svc.Validate(context.Background(), res.Token)
	require.NoError(t, err)
	reads := f.sessions.reads

	_, err = f.svc.Validate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, reads, f.sessions.reads, "second validation served from cache")

	require.NoError(t, f.svc.Logout(context.Background(), res.Token))
	_, err = f.svc.Validate(context.Background(), res.Token)
	assert.Equal(t, appErrors.ErrSessionInactive.Code, errCode(err), "logout invalidates the cached entry")
}

func TestAuthServiceCachedSessionStillExpires(t *testing.T) {
	cache := NewSessionCache(NewCacheService(newMemoryCache(), nil, time.Hour, zap.NewNop(), true), time.Hour)
	f := newAuthFixture(t, cache)
	res := f.login(t)

	_, err := f.svc.Validate(context.Background(), res.Token)
	require.NoError(t, err)

	f.clock.Advance(15 * time.Minute)
	_, err = f.svc.Validate(context.Background(), res.Token)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, errCode(err))
}

// interleavingSessionRepo runs afterFind once, right after the first access token lookup.
type interleavingSessionRepo struct {
	*memorySessionRepo
	afterFind func()
}

func (r *interleavingSessionRepo) FindByAccessToken(ctx context.Context, token string) (*models.Session, error) {
	session, err := r.memorySessionRepo.FindByAccessToken(ctx, token)
	if hook := r.afterFind; hook != nil {
		r.afterFind = nil
		hook()
	}
	return session, err
}

func newInterleavingAuthService(t *testing.T, cache *SessionCache) (*AuthService, *interleavingSessionRepo) {
	t.Helper()
	f := newAuthFixture(t, cache)
	repo := &interleavingSessionRepo{memorySessionRepo: f.sessions}
	svc := NewAuthService(f.users, repo, cache, nil, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "newsroom-test",
		Clock:              f.clock.Now,
	})
	return svc, repo
}

func TestAuthServiceLogoutDuringValidationIsNotCached(t *testing.T) {
	cache := NewSessionCache(NewCacheService(newMemoryCache(), nil, time.Hour, zap.NewNop(), true), time.Hour)
	svc, repo := newInterleavingAuthService(t, cache)
	ctx := context.Background()
	res, err := svc.Login(ctx, models.LoginRequest{Username: "editor", Password: "correct horse"})
	require.NoError(t, err)

	repo.afterFind = func() { require.NoError(t, svc.Logout(ctx, res.Token)) }
	_, err = svc.Validate(ctx, res.Token)
	require.NoError(t, err, "the in-flight validation read an active row")

	_, err = svc.Validate(ctx, res.Token)
	assert.Equal(t, appErrors.ErrSessionInactive.Code, errCode(err))
}

func TestAuthServiceRefreshDuringValidationIsNotCached(t *testing.T) {
	cache := NewSessionCache(NewCacheService(newMemoryCache(), nil, time.Hour, zap.NewNop(), true), time.Hour)
	svc, repo := newInterleavingAuthService(t, cache)
	ctx := context.Background()
	res, err := svc.Login(ctx, models.LoginRequest{Username: "editor", Password: "correct horse"})
	require.NoError(t, err)

	repo.afterFind = func() {
		_, err := svc.Refresh(ctx, models.RefreshRequest{RefreshToken: res.RefreshToken})
		require.NoError(t, err)
	}
	_, err = svc.Validate(ctx, res.Token)
	require.NoError(t, err)

	_, err = svc.Validate(ctx, res.Token)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, errCode(err))
}

func TestAuthServiceLogoutWithFailingCacheWrites(t *testing.T) {
	for _, tc := range []struct {
		name       string
		failSet    bool
		failDelete bool
	}{
		{name: "delete fails", failDelete: true},
		{name: "all writes fail", failSet: true, failDelete: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			repo := &failingWritesCache{memoryCache: newMemoryCache()}
			cache := NewSessionCache(NewCacheService(repo, nil, time.Hour, zap.NewNop(), true), time.Hour)
			f := newAuthFixture(t, cache)
			res := f.login(t)
			ctx := context.Background()

			_, err := f.svc.Validate(ctx, res.Token)
			require.NoError(t, err)

			repo.failSet, repo.failDelete = tc.failSet, tc.failDelete
			require.NoError(t, f.svc.Logout(ctx, res.Token), "the session row is already inactive")

			_, err = f.svc.Validate(ctx, res.Token)
			assert.Equal(t, appErrors.ErrSessionInactive.Code, errCode(err))
		})
	}
}

func TestAuthServiceChangePasswordTooLongForBcrypt(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()

	for _, password := range []string{strings.Repeat("a", 100), strings.Repeat("é", 40)} {
		err := f.svc.ChangePassword(ctx, "u1", models.ChangePasswordRequest{OldPassword: "correct horse", NewPassword: password})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Equal(t, 400, appErr.Status)
	}

	_, err := f.svc.Login(ctx, models.LoginRequest{Username: "editor", Password: "correct horse"})
	assert.NoError(t, err, "password unchanged after rejected updates")
}
