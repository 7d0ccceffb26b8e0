package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvenote/solvenote/pkg/contextkeys"
)

func TestRateLimiter_Allow(t *testing.T) {
	config := &RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	limiter := NewRateLimiter(config)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// other keys have their own bucket
	d, err = limiter.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// a third of the window refills one token
	now = now.Add(20 * time.Second)
	d, err = limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Second})
	now := time.Now()
	limiter.now = func() time.Time { return now }

	_, err := limiter.Allow(context.Background(), "user:1")
	require.NoError(t, err)
	assert.Len(t, limiter.buckets, 1)

	now = now.Add(3 * time.Second)
	limiter.Cleanup()
	assert.Empty(t, limiter.buckets)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestDistributedRateLimiter_Allow(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}, "test")
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, time.Minute, mr.TTL("test:user:1"))

	mr.FastForward(10 * time.Second)
	d, err = limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 50*time.Second, mr.TTL("test:user:1"), "later requests must not extend the window")

	d, err = limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	mr.FastForward(time.Minute)
	d, err = limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	require.NoError(t, limiter.Reset(ctx, "user:1"))
	assert.False(t, mr.Exists("test:user:1"))
}

func TestDistributedRateLimiter_RedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewDistributedRateLimiter(client, nil, "")
	mr.Close()

	_, err := limiter.Allow(context.Background(), "user:1")
	assert.Error(t, err)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis down")
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/use-credit", nil)
		req = req.WithContext(contextkeys.WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := send("user-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = send("user-1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())

	rec = send("user-2")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	handler := RateLimit(failingLimiter{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/use-credit", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.3")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}
