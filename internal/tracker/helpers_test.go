package tracker

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/campusbite/orderflow/internal/notifications"
	"github.com/campusbite/orderflow/pkg/db/models"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/campusbite/orderflow/pkg/storefront"
)

type fakeOrders struct {
	mu        sync.Mutex
	list      []storefront.Order
	listErr   error
	cancelErr error
	reviewErr error
	cancelled []string
	reviews   []storefront.ReviewRequest
}

func (f *fakeOrders) ListOrders(context.Context) ([]storefront.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list, f.listErr
}

func (f *fakeOrders) CancelOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeOrders) SubmitReview(_ context.Context, req storefront.ReviewRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reviewErr != nil {
		return f.reviewErr
	}
	f.reviews = append(f.reviews, req)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notifications.Notice
}

func (f *fakeNotifier) Notify(_ context.Context, notice notifications.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice)
}

func (f *fakeNotifier) all() []notifications.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifications.Notice(nil), f.notices...)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "tracker-test", Output: io.Discard})
}

func newMirrorDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.TrackedOrder{}))
	return conn
}

func remoteOrder(id, status string, created time.Time) storefront.Order {
	return storefront.Order{
		ID:            id,
		Status:        status,
		PaymentMethod: "cash_on_delivery",
		PaymentStatus: "pending",
		TotalAmount:   decimal.NewFromInt(250),
		CreatedAt:     created,
		Items: []storefront.OrderItem{
			{Product: "p-1", Name: "Khichuri", Price: decimal.NewFromInt(125), Quantity: 2},
		},
	}
}

func newTestTracker(t *testing.T, orders *fakeOrders, repo Repository, notifier Notifier) *Tracker {
	t.Helper()
	tr, err := New(context.Background(), Options{
		SessionID: "sess-1",
		UserID:    "user-1",
		Orders:    orders,
		Repo:      repo,
		Notifier:  notifier,
		Logger:    testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(tr.Stop)
	return tr
}
