package notifications

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/campusbite/orderflow/pkg/db/models"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
	paginationpkg "github.com/campusbite/orderflow/pkg/pagination"
	"github.com/google/uuid"
)

type fakeRepository struct {
	created       []models.Notification
	createErr     error
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error)
	markAllReadFn func(ctx context.Context, sessionID string, now time.Time) (int64, error)
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *notification)
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, sessionID string, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, sessionID, now)
	}
	return 0, nil
}

func (f *fakeRepository) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, testLogger()); err == nil {
		t.Fatal("expected error for missing repository")
	}
	if _, err := NewService(&fakeRepository{}, nil); err == nil {
		t.Fatal("expected error for missing logger")
	}
}

func TestService_ListNotifications(t *testing.T) {
	first := models.Notification{ID: uuid.New(), SessionID: "sess-1", CreatedAt: time.Now()}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
			if params.Limit != 1 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			if params.SessionID != "sess-1" {
				t.Fatalf("unexpected session %q", params.SessionID)
			}
			return []models.Notification{first}, &paginationpkg.Cursor{CreatedAt: first.CreatedAt, ID: first.ID}, nil
		},
	}

	svc := newServiceWithRepo(t, repo)
	result, err := svc.List(context.Background(), ListParams{SessionID: "sess-1", Limit: 1})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatal("expected cursor for next page")
	}
	decoded, err := paginationpkg.Decode(result.Cursor)
	if err != nil {
		t.Fatalf("invalid cursor %q: %v", result.Cursor, err)
	}
	if decoded.ID != first.ID {
		t.Fatalf("expected cursor id %s got %s", first.ID, decoded.ID)
	}
}

func TestService_ListNotificationsEmptyIsNotNil(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})
	result, err := svc.List(context.Background(), ListParams{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if result.Items == nil || len(result.Items) != 0 {
		t.Fatalf("expected empty slice, got %#v", result.Items)
	}
	if result.Cursor != "" {
		t.Fatalf("expected no cursor, got %q", result.Cursor)
	}
}

func TestService_ListNotificationsInvalidCursor(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})
	_, err := svc.List(context.Background(), ListParams{SessionID: "sess-1", Cursor: "bad"})
	if err == nil {
		t.Fatal("expected error for invalid cursor")
	}
	if code := pkgerrors.CodeOf(err); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
}

func TestService_ListRequiresSession(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})
	if _, err := svc.List(context.Background(), ListParams{SessionID: "  "}); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_MarkAllRead(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, sessionID string, now time.Time) (int64, error) {
			return 3, nil
		},
	}
	svc := newServiceWithRepo(t, repo)
	count, err := svc.MarkAllRead(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("unexpected mark all read error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 updated rows, got %d", count)
	}
}

func TestService_MarkAllReadError(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, sessionID string, now time.Time) (int64, error) {
			return 0, errors.New("boom")
		},
	}
	svc := newServiceWithRepo(t, repo)
	_, err := svc.MarkAllRead(context.Background(), "sess-1")
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_NotifyStoresNotice(t *testing.T) {
	repo := &fakeRepository{}
	svc := newServiceWithRepo(t, repo)

	svc.Notify(context.Background(), Notice{SessionID: "sess-1", OrderID: "o-1", Title: "Order update", Message: "Preparing"})

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 stored notification, got %d", len(repo.created))
	}
	row := repo.created[0]
	if row.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
	if row.SessionID != "sess-1" || row.OrderID != "o-1" || row.Message != "Preparing" {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.ReadAt != nil {
		t.Fatal("new notification should be unread")
	}
}

func TestService_NotifySwallowsErrors(t *testing.T) {
	repo := &fakeRepository{createErr: errors.New("db down")}
	svc := newServiceWithRepo(t, repo)
	svc.Notify(context.Background(), Notice{SessionID: "sess-1", Title: "t", Message: "m"})
	if len(repo.created) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(repo.created))
	}
}
