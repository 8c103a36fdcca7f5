package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
)

const submitPath = "/api/v1/checkout/submit"

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	return true, f.Set(ctx, key, value, ttl)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func submitRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, submitPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	return req.WithContext(WithSessionID(req.Context(), "sess-1"))
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	handlerCalled := false
	handler := Idempotency(newFakeStore(), time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, submitRequest(`{"payment_method":"cod"}`, ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, submitRequest(`{"payment_method":"cod"}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(HeaderReplayed))

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, submitRequest(`{"payment_method":"cod"}`, "abc"))
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get(HeaderReplayed))
	assert.Equal(t, `{"ok":true}`, replay.Body.String())
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		assert.Equal(t, time.Hour, ttl, key)
	}
}

func TestIdempotencyReleasesKeyOnRetryableFailures(t *testing.T) {
	store := newFakeStore()
	statuses := []int{http.StatusBadGateway, http.StatusConflict, http.StatusOK}
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statuses[calls])
		calls++
	}))

	for i, want := range statuses {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, submitRequest(`{}`, "retry-me"))
		if resp.Code != want {
			t.Fatalf("attempt %d: expected %d got %d", i, want, resp.Code)
		}
	}
	if calls != 3 {
		t.Fatalf("expected handler to run for each retryable failure, ran %d", calls)
	}
	if len(store.data) != 1 {
		t.Fatalf("expected only the success to be stored, got %d records", len(store.data))
	}
}

func TestIdempotencyRejectsBodyChange(t *testing.T) {
	handler := Idempotency(newFakeStore(), time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), submitRequest(`{"payment_method":"cod"}`, "xyz"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, submitRequest(`{"payment_method":"gateway-prepaid"}`, "xyz"))

	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	var inner *httptest.ResponseRecorder
	var handler http.Handler
	handler = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The duplicate arrives while the first request still holds the key.
		inner = httptest.NewRecorder()
		handler.ServeHTTP(inner, submitRequest(`{"payment_method":"cod"}`, "dup"))
		w.WriteHeader(http.StatusCreated)
	}))

	outer := httptest.NewRecorder()
	handler.ServeHTTP(outer, submitRequest(`{"payment_method":"cod"}`, "dup"))

	require.Equal(t, http.StatusCreated, outer.Code)
	require.NotNil(t, inner)
	require.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, string(pkgerrors.CodeBusy), errorCode(t, inner))
}

func TestIdempotencyScopesKeysBySession(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), submitRequest(`{}`, "shared"))
	other := submitRequest(`{}`, "shared")
	other = other.WithContext(WithSessionID(other.Context(), "sess-2"))
	handler.ServeHTTP(httptest.NewRecorder(), other)

	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 2)
}
