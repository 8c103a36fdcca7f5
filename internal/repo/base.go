package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Base is embedded by the gorm repositories.
type Base struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBase constructs a Base bound to db.
func NewBase(db *gorm.DB) Base {
	return Base{db: db, now: time.Now}
}

// DB returns the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Now is the UTC timestamp written to updated_at columns.
func (b Base) Now() time.Time {
	if b.now == nil {
		return time.Now().UTC()
	}
	return b.now().UTC()
}

// Purge hard-deletes rows of model matching where and reports how many went.
func (b Base) Purge(ctx context.Context, model any, where string, args ...any) (int64, error) {
	result := b.DB(ctx).Where(where, args...).Delete(model)
	return result.RowsAffected, result.Error
}
