package tracker

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusbite/orderflow/internal/repo"
	"github.com/campusbite/orderflow/pkg/db/models"
	"github.com/campusbite/orderflow/pkg/enums"
)

// Repository persists the per-session order mirror.
type Repository interface {
	Upsert(ctx context.Context, orders []models.TrackedOrder) error
	UpdateStatus(ctx context.Context, orderID string, status enums.OrderStatus) error
	MarkReviewed(ctx context.Context, orderID string) error
	ListByUser(ctx context.Context, userID string) ([]models.TrackedOrder, error)
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a gorm-backed mirror repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

// Upsert inserts orders or refreshes status and payment fields of existing rows.
// The reviewed flag is only ever raised, never cleared by an upsert.
func (r *repository) Upsert(ctx context.Context, orders []models.TrackedOrder) error {
	if len(orders) == 0 {
		return nil
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"session_id", "status", "payment_status", "total_amount", "updated_at"}),
		}).
		Create(&orders).Error
}

func (r *repository) UpdateStatus(ctx context.Context, orderID string, status enums.OrderStatus) error {
	return r.DB(ctx).
		Model(&models.TrackedOrder{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{"status": status, "updated_at": r.Now()}).Error
}

func (r *repository) MarkReviewed(ctx context.Context, orderID string) error {
	return r.DB(ctx).
		Model(&models.TrackedOrder{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{"reviewed": true, "updated_at": r.Now()}).Error
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]models.TrackedOrder, error) {
	var rows []models.TrackedOrder
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("placed_at DESC").
		Find(&rows).Error
	return rows, err
}

// DeleteSettledBefore drops delivered and cancelled rows untouched since cutoff.
// Rows still in flight are kept regardless of age.
func (r *repository) DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	settled := []string{enums.OrderStatusDelivered.String(), enums.OrderStatusCancelled.String()}
	return r.Purge(ctx, &models.TrackedOrder{}, "status IN ? AND updated_at < ?", settled, cutoff)
}
