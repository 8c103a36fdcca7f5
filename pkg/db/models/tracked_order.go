package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusbite/orderflow/pkg/enums"
)

// TrackedOrder mirrors an order a session is tracking so a restarted tracker can
// rehydrate its statuses and review state.
type TrackedOrder struct {
	OrderID       string              `gorm:"column:order_id;type:text;primaryKey"`
	SessionID     string              `gorm:"column:session_id;type:text;not null;index"`
	UserID        string              `gorm:"column:user_id;type:text;not null;index"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Reviewed      bool                `gorm:"column:reviewed;not null;default:false"`
	PlacedAt      time.Time           `gorm:"column:placed_at;type:timestamptz;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;type:timestamptz;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;type:timestamptz;autoUpdateTime"`
}

// TableName implements gorm's tabler.
func (TrackedOrder) TableName() string {
	return "tracked_orders"
}
