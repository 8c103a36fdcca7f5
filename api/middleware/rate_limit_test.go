package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgredis "github.com/campusbite/orderflow/pkg/redis"
)

type fakeRateStore struct {
	mu         sync.Mutex
	counts     map[string]int64
	err        error
	retryAfter time.Duration
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: make(map[string]int64)}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (pkgredis.Window, error) {
	if f.err != nil {
		return pkgredis.Window{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return pkgredis.Window{
		Allowed:    f.counts[scope] <= limit,
		Count:      f.counts[scope],
		RetryAfter: f.retryAfter,
	}, nil
}

func rateLimitedRequest(sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/promo", nil)
	if sessionID != "" {
		req = req.WithContext(WithSessionID(req.Context(), sessionID))
	}
	return req
}

func TestSessionRateLimitBlocksAfterLimit(t *testing.T) {
	store := newFakeRateStore()
	policy := NewRateLimitPolicy("promo", time.Minute, 2)
	handler := SessionRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	other := httptest.NewRecorder()
	handler.ServeHTTP(other, rateLimitedRequest("sess-2"))
	assert.Equal(t, http.StatusOK, other.Code, "sessions are counted separately")
	assert.Contains(t, store.counts, "promo:sess-1")
}

func TestSessionRateLimitPassesWithoutSessionOrPolicy(t *testing.T) {
	store := newFakeRateStore()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	SessionRateLimit(NewRateLimitPolicy("promo", time.Minute, 1), store, nil)(ok).ServeHTTP(rec, rateLimitedRequest(""))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	disabled := SessionRateLimit(NewRateLimitPolicy("promo", 0, 1), store, nil)(ok)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		disabled.ServeHTTP(rec, rateLimitedRequest("sess-1"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	assert.Empty(t, store.counts)
}

func TestSessionRateLimitStoreFailure(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := SessionRateLimit(NewRateLimitPolicy("promo", time.Minute, 1), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSessionRateLimitUsesRemainingWindow(t *testing.T) {
	store := newFakeRateStore()
	store.retryAfter = 12300 * time.Millisecond
	handler := SessionRateLimit(NewRateLimitPolicy("promo", time.Minute, 1), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), rateLimitedRequest("sess-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "13", rec.Header().Get("Retry-After"))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 60, retryAfterSeconds(0, time.Minute))
	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond, time.Minute))
	assert.Equal(t, 5, retryAfterSeconds(5*time.Second, time.Minute))
}
