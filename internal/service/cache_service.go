package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache. A non-positive ttl falls back to the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Delete removes the given keys.
func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache delete failed", zap.Int("keys", len(keys)), zap.Error(err))
		return err
	}
	return nil
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// SessionCache keeps recently validated sessions in Redis keyed by a hash of the access token.
// Entries never outlive the session's access lifetime. Invalidation writes a revocation
// marker next to the entry so a validation that read the store before a logout cannot
// re-populate the cache afterwards.
type SessionCache struct {
	cache *CacheService
	ttl   time.Duration

	mu       sync.Mutex
	bypassed map[string]time.Time
}

// NewSessionCache builds a session cache on top of cache. A nil or disabled cache makes it a no-op.
func NewSessionCache(cache *CacheService, ttl time.Duration) *SessionCache {
	return &SessionCache{cache: cache, ttl: ttl, bypassed: make(map[string]time.Time)}
}

func sessionCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "session:" + hex.EncodeToString(sum[:])
}

func revokedCacheKey(key string) string {
	return key + ":revoked"
}

func (c *SessionCache) active() bool {
	return c != nil && c.cache.Enabled() && c.ttl > 0
}

// Get returns the cached session for token, if any. Revoked or unreadable entries are misses.
func (c *SessionCache) Get(ctx context.Context, token string) (*models.Session, bool) {
	if !c.active() {
		return nil, false
	}
	key := sessionCacheKey(token)
	if c.isBypassed(key, time.Now()) {
		return nil, false
	}
	var session models.Session
	hit, err := c.cache.Get(ctx, key, &session)
	if err != nil || !hit {
		return nil, false
	}
	if c.revoked(ctx, key) {
		return nil, false
	}
	session.AccessToken = token
	return &session, true
}

// Put caches session until the earlier of the configured ttl and its access expiry.
// An entry written after the token was revoked is removed again.
func (c *SessionCache) Put(ctx context.Context, session *models.Session, now time.Time) {
	if !c.active() {
		return
	}
	ttl := c.ttl
	if remaining := session.ExpiresAt.Sub(now); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	key := sessionCacheKey(session.AccessToken)
	if c.isBypassed(key, time.Now()) {
		return
	}
	if err := c.cache.Set(ctx, key, session, ttl); err != nil {
		return
	}
	if c.revoked(ctx, key) {
		_ = c.cache.Delete(ctx, key)
	}
}

// Invalidate revokes the cached entries of the given access tokens. The marker is written
// before the entry is deleted and lives as long as any entry could. When Redis refuses
// either write, the tokens bypass the cache in this process and the error is returned.
func (c *SessionCache) Invalidate(ctx context.Context, tokens ...string) error {
	if !c.active() || len(tokens) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, sessionCacheKey(token))
	}

	var failed error
	for _, key := range keys {
		if err := c.cache.Set(ctx, revokedCacheKey(key), true, c.ttl); err != nil {
			failed = err
		}
	}
	if err := c.cache.Delete(ctx, keys...); err != nil {
		failed = err
	}
	if failed != nil {
		c.bypass(keys, time.Now())
		return fmt.Errorf("invalidate cached sessions: %w", failed)
	}
	return nil
}

// revoked fails closed: a marker lookup that errors counts as revoked. It reads the
// repository directly so marker lookups stay out of the hit ratio.
func (c *SessionCache) revoked(ctx context.Context, key string) bool {
	var marker bool
	err := c.cache.repo.Get(ctx, revokedCacheKey(key), &marker)
	return !errors.Is(err, appErrors.ErrCacheMiss)
}

func (c *SessionCache) bypass(keys []string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bypassed == nil {
		c.bypassed = make(map[string]time.Time)
	}
	until := now.Add(c.ttl)
	for _, key := range keys {
		c.bypassed[key] = until
	}
}

func (c *SessionCache) isBypassed(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.bypassed[key]
	if !ok {
		return false
	}
	if !now.Before(until) {
		delete(c.bypassed, key)
		return false
	}
	return true
}
