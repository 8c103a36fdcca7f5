package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification stores an in-app notice raised for a session, usually an order status change.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SessionID string     `gorm:"type:text;not null;index"`
	OrderID   string     `gorm:"type:text"`
	Title     string     `gorm:"type:text;not null"`
	Message   string     `gorm:"type:text;not null"`
	ReadAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;not null"`
}
