package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbite/orderflow/api/middleware"
	"github.com/campusbite/orderflow/internal/tracker"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/storefront"
)

type fakeOrderService struct {
	mu        sync.Mutex
	list      []storefront.Order
	listErr   error
	cancelErr error
	cancelled []string
	reviews   []storefront.ReviewRequest
}

func (f *fakeOrderService) ListOrders(context.Context) ([]storefront.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list, f.listErr
}

func (f *fakeOrderService) CancelOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeOrderService) SubmitReview(_ context.Context, req storefront.ReviewRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, req)
	return nil
}

func newRouter(t *testing.T, svc *fakeOrderService) (http.Handler, *tracker.Manager) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	manager, err := tracker.NewManager(context.Background(), tracker.ManagerDeps{Orders: svc, Logger: logg})
	require.NoError(t, err)
	t.Cleanup(manager.Shutdown)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithSessionID(r.Context(), "sess-1")
			ctx = middleware.WithUserID(ctx, "user-1")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Get("/orders", List(manager, logg))
	r.Post("/orders/{orderId}/cancel", Cancel(manager, logg))
	r.Post("/orders/{orderId}/review", Review(manager, logg))
	return r, manager
}

func remoteOrder(id, status string) storefront.Order {
	return storefront.Order{
		ID:            id,
		Status:        status,
		PaymentMethod: "cash_on_delivery",
		PaymentStatus: "pending",
		TotalAmount:   decimal.NewFromInt(230),
		CreatedAt:     time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestListStartsTrackerAndReturnsSnapshot(t *testing.T) {
	svc := &fakeOrderService{list: []storefront.Order{
		remoteOrder("ord-1", "Pending"),
		remoteOrder("ord-2", "Delivered"),
	}}
	router, manager := newRouter(t, svc)

	rec := do(t, router, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			Orders []struct {
				ID          string `json:"id"`
				Cancellable bool   `json:"cancellable"`
				Reviewable  bool   `json:"reviewable"`
			} `json:"orders"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Orders, 2)
	assert.Equal(t, 1, manager.Active())

	byID := map[string]bool{}
	for _, o := range envelope.Data.Orders {
		byID[o.ID+":cancel"] = o.Cancellable
		byID[o.ID+":review"] = o.Reviewable
	}
	assert.True(t, byID["ord-1:cancel"])
	assert.False(t, byID["ord-2:cancel"])
	assert.True(t, byID["ord-2:review"])
}

func TestListUpstreamFailure(t *testing.T) {
	svc := &fakeOrderService{listErr: errors.New("dial tcp: refused")}
	router, manager := newRouter(t, svc)

	rec := do(t, router, http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DEPENDENCY_ERROR", errorCode(t, rec))
	assert.Equal(t, 0, manager.Active())
}

func TestCancelPendingOrder(t *testing.T) {
	svc := &fakeOrderService{list: []storefront.Order{remoteOrder("ord-1", "Pending")}}
	router, _ := newRouter(t, svc)

	rec := do(t, router, http.MethodPost, "/orders/ord-1/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"ord-1"}, svc.cancelled)

	var envelope struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Cancelled", envelope.Data.Status)
}

func TestCancelRejectsNonPendingOrder(t *testing.T) {
	svc := &fakeOrderService{list: []storefront.Order{remoteOrder("ord-1", "Preparing")}}
	router, _ := newRouter(t, svc)

	rec := do(t, router, http.MethodPost, "/orders/ord-1/cancel", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "STATE_CONFLICT", errorCode(t, rec))
	assert.Empty(t, svc.cancelled)
}

func TestCancelUnknownOrder(t *testing.T) {
	router, _ := newRouter(t, &fakeOrderService{})

	rec := do(t, router, http.MethodPost, "/orders/missing/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelUpstreamRejection(t *testing.T) {
	svc := &fakeOrderService{
		list:      []storefront.Order{remoteOrder("ord-1", "Pending")},
		cancelErr: &storefront.APIError{Status: http.StatusConflict, Message: "order already accepted by the kitchen"},
	}
	router, _ := newRouter(t, svc)

	rec := do(t, router, http.MethodPost, "/orders/ord-1/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "order already accepted by the kitchen")
}

func TestReviewDeliveredOrder(t *testing.T) {
	svc := &fakeOrderService{list: []storefront.Order{remoteOrder("ord-2", "Delivered")}}
	router, _ := newRouter(t, svc)

	rec := do(t, router, http.MethodPost, "/orders/ord-2/review", `{"rating":5,"comment":"  hot and fast  "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.reviews, 1)
	assert.Equal(t, 5, svc.reviews[0].Rating)
	assert.Equal(t, "hot and fast", svc.reviews[0].Comment)

	rec = do(t, router, http.MethodPost, "/orders/ord-2/review", `{"rating":4}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "an order is reviewed once")
}

func TestReviewValidatesRating(t *testing.T) {
	svc := &fakeOrderService{list: []storefront.Order{remoteOrder("ord-2", "Delivered")}}
	router, _ := newRouter(t, svc)

	for _, body := range []string{`{"rating":0}`, `{"rating":6}`, `{"rating":"five"}`} {
		rec := do(t, router, http.MethodPost, "/orders/ord-2/review", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400 got %d", body, rec.Code)
		}
	}
	assert.Empty(t, svc.reviews)
}
