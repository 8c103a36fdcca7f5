package notifications

import (
	"context"
	"time"

	"github.com/campusbite/orderflow/internal/repo"
	"github.com/campusbite/orderflow/pkg/db/models"
	"github.com/campusbite/orderflow/pkg/pagination"
	"gorm.io/gorm"
)

// Repository persists session notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	MarkAllRead(ctx context.Context, sessionID string, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormRepository struct {
	repo.Base
}

// NewRepository returns a gorm-backed notifications repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(db)}
}

type listNotificationsParams struct {
	SessionID  string
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

func forSession(sessionID string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("session_id = ?", sessionID)
	}
}

func unread(tx *gorm.DB) *gorm.DB {
	return tx.Where("read_at IS NULL")
}

// after keeps rows strictly older than the cursor in (created_at, id) order.
func after(c *pagination.Cursor) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if c == nil {
			return tx
		}
		return tx.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}
}

func (r *gormRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.DB(ctx).Create(n).Error
}

func (r *gormRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	scopes := []func(*gorm.DB) *gorm.DB{forSession(params.SessionID), after(params.Cursor)}
	if params.UnreadOnly {
		scopes = append(scopes, unread)
	}

	var rows []models.Notification
	err := r.DB(ctx).
		Scopes(scopes...).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.Fetch(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Split(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, sessionID string, now time.Time) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Notification{}).
		Scopes(forSession(sessionID), unread).
		UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.Purge(ctx, &models.Notification{}, "created_at < ?", cutoff)
}
