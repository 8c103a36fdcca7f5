package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/campusbite/orderflow/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Notification{}))
	return conn
}

func seedNotifications(t *testing.T, repo Repository, sessionID string, count int, base time.Time) {
	t.Helper()
	for i := 0; i < count; i++ {
		require.NoError(t, repo.Create(context.Background(), &models.Notification{
			ID:        uuid.New(),
			SessionID: sessionID,
			OrderID:   "o-1",
			Title:     "Order update",
			Message:   "status changed",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestRepositoryListPagesNewestFirst(t *testing.T) {
	repo := NewRepository(newRepoDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedNotifications(t, repo, "sess-1", 5, base)
	seedNotifications(t, repo, "sess-2", 2, base)

	page, next, err := repo.List(ctx, listNotificationsParams{SessionID: "sess-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, next, err := repo.List(ctx, listNotificationsParams{SessionID: "sess-1", Limit: 3, Cursor: next})
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Len(t, rest, 3)
	for _, row := range rest {
		assert.Equal(t, "sess-1", row.SessionID)
		assert.True(t, row.CreatedAt.Before(page[1].CreatedAt))
	}
}

func TestRepositoryMarkAllReadScopedToSession(t *testing.T) {
	repo := NewRepository(newRepoDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedNotifications(t, repo, "sess-1", 3, base)
	seedNotifications(t, repo, "sess-2", 1, base)

	updated, err := repo.MarkAllRead(ctx, "sess-1", base.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated)

	unread, _, err := repo.List(ctx, listNotificationsParams{SessionID: "sess-1", Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	other, _, err := repo.List(ctx, listNotificationsParams{SessionID: "sess-2", Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, other, 1)

	again, err := repo.MarkAllRead(ctx, "sess-1", base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestRepositoryDeleteOlderThan(t *testing.T) {
	repo := NewRepository(newRepoDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedNotifications(t, repo, "sess-1", 4, base)

	deleted, err := repo.DeleteOlderThan(ctx, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	rest, _, err := repo.List(ctx, listNotificationsParams{SessionID: "sess-1", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}
