package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/newsroom-api/internal/models"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// memoryCache is an in-process stand-in for the Redis cache repository.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttls    map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]memoryEntry{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	entry, ok := m.entries[key]
	m.mu.Unlock()
	if !ok || time.Now().After(entry.expires) {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(entry.payload, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{payload: payload, expires: time.Now().Add(ttl)}
	m.ttls[key] = ttl
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, repo.len())
}

func TestCacheServiceHitMissMetrics(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCache(), metrics, time.Minute, zap.NewNop(), true)

	var out map[string]int
	hit, err := svc.Get(context.Background(), "public:articles:a", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "public:articles:a", map[string]int{"n": 1}, 0))
	hit, err = svc.Get(context.Background(), "public:articles:a", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, out["n"])

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceInvalidatePattern(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "public:articles:list:1", 1, 0))
	require.NoError(t, svc.Set(ctx, "public:articles:slug:x", 2, 0))
	require.NoError(t, svc.Set(ctx, "public:categories", 3, 0))

	require.NoError(t, svc.Invalidate(ctx, "public:articles:*"))
	assert.Equal(t, 1, repo.len())
}

func TestSessionCacheTTLBoundedByExpiry(t *testing.T) {
	repo := newMemoryCache()
	cache := NewSessionCache(NewCacheService(repo, nil, time.Hour, zap.NewNop(), true), time.Minute)
	now := time.Now()
	ctx := context.Background()

	short := &models.Session{ID: "s1", AccessToken: "short", IsActive: true, ExpiresAt: now.Add(20 * time.Second)}
	cache.Put(ctx, short, now)
	assert.Equal(t, 20*time.Second, repo.ttls[sessionCacheKey("short")])

	long := &models.Session{ID: "s2", AccessToken: "long", IsActive: true, ExpiresAt: now.Add(time.Hour)}
	cache.Put(ctx, long, now)
	assert.Equal(t, time.Minute, repo.ttls[sessionCacheKey("long")])

	dead := &models.Session{ID: "s3", AccessToken: "dead", IsActive: true, ExpiresAt: now.Add(-time.Second)}
	cache.Put(ctx, dead, now)
	_, ok := repo.ttls[sessionCacheKey("dead")]
	assert.False(t, ok)

	got, ok := cache.Get(ctx, "long")
	require.True(t, ok)
	assert.Equal(t, "s2", got.ID)
	assert.Equal(t, "long", got.AccessToken)

	require.NoError(t, cache.Invalidate(ctx, "long", "short"))
	_, ok = cache.Get(ctx, "long")
	assert.False(t, ok)
	assert.Equal(t, 2, repo.len(), "only revocation markers remain")
	assert.Equal(t, time.Minute, repo.ttls[revokedCacheKey(sessionCacheKey("long"))])
}

// failingWritesCache lets Redis reads succeed while writes are refused.
type failingWritesCache struct {
	*memoryCache
	failSet    bool
	failDelete bool
}

func (f *failingWritesCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.failSet {
		return errors.New("redis down")
	}
	return f.memoryCache.Set(ctx, key, value, ttl)
}

func (f *failingWritesCache) Delete(ctx context.Context, keys ...string) error {
	if f.failDelete {
		return errors.New("redis down")
	}
	return f.memoryCache.Delete(ctx, keys...)
}

func TestSessionCachePutAfterInvalidateIsDiscarded(t *testing.T) {
	repo := newMemoryCache()
	cache := NewSessionCache(NewCacheService(repo, nil, time.Hour, zap.NewNop(), true), time.Minute)
	now := time.Now()
	ctx := context.Background()
	stale := &models.Session{ID: "s1", AccessToken: "tok", IsActive: true, ExpiresAt: now.Add(time.Hour)}

	require.NoError(t, cache.Invalidate(ctx, "tok"))
	cache.Put(ctx, stale, now)

	_, ok := cache.Get(ctx, "tok")
	assert.False(t, ok)
	_, stored := repo.entries[sessionCacheKey("tok")]
	assert.False(t, stored, "late write removed again")
}

func TestSessionCacheFailedDeleteStillRevokes(t *testing.T) {
	repo := &failingWritesCache{memoryCache: newMemoryCache(), failDelete: true}
	cache := NewSessionCache(NewCacheService(repo, nil, time.Hour, zap.NewNop(), true), time.Minute)
	now := time.Now()
	ctx := context.Background()

	cache.Put(ctx, &models.Session{ID: "s1", AccessToken: "tok", IsActive: true, ExpiresAt: now.Add(time.Hour)}, now)
	_, ok := cache.Get(ctx, "tok")
	require.True(t, ok)

	assert.Error(t, cache.Invalidate(ctx, "tok"))
	_, ok = cache.Get(ctx, "tok")
	assert.False(t, ok)
}

func TestSessionCacheBypassesTokensWhenRedisRefusesWrites(t *testing.T) {
	repo := &failingWritesCache{memoryCache: newMemoryCache()}
	cache := NewSessionCache(NewCacheService(repo, nil, time.Hour, zap.NewNop(), true), time.Minute)
	now := time.Now()
	ctx := context.Background()

	cache.Put(ctx, &models.Session{ID: "s1", AccessToken: "tok", IsActive: true, ExpiresAt: now.Add(time.Hour)}, now)
	cache.Put(ctx, &models.Session{ID: "s2", AccessToken: "other", IsActive: true, ExpiresAt: now.Add(time.Hour)}, now)

	repo.failSet = true
	repo.failDelete = true
	assert.Error(t, cache.Invalidate(ctx, "tok"))

	_, ok := cache.Get(ctx, "tok")
	assert.False(t, ok, "stale entry is still in redis but never served")
	_, ok = cache.Get(ctx, "other")
	assert.True(t, ok)
}

func TestSessionCacheKeyHidesToken(t *testing.T) {
	key := sessionCacheKey("secret-token")
	assert.NotContains(t, key, "secret-token")
	assert.Equal(t, key, sessionCacheKey("secret-token"))
	assert.NotEqual(t, key, sessionCacheKey("other"))
}

func TestNilSessionCacheIsNoop(t *testing.T) {
	var cache *SessionCache
	_, ok := cache.Get(context.Background(), "x")
	assert.False(t, ok)
	cache.Put(context.Background(), &models.Session{}, time.Now())
	assert.NoError(t, cache.Invalidate(context.Background(), "x"))
}
