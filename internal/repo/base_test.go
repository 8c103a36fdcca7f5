package repo

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type row struct {
	ID        int `gorm:"primaryKey"`
	CreatedAt time.Time
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&row{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}

	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseNowIsUTC(t *testing.T) {
	base := NewBase(newTestDB(t))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("BST", 6*3600))
	base.now = func() time.Time { return fixed }

	if got := base.Now(); !got.Equal(fixed) || got.Location() != time.UTC {
		t.Fatalf("expected %s in UTC, got %s", fixed, got)
	}
	if (Base{}).Now().Location() != time.UTC {
		t.Fatalf("zero Base should still report UTC")
	}
}

func TestBasePurgeDeletesMatchingRows(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	now := time.Now().UTC()
	rows := []row{{ID: 1, CreatedAt: now.Add(-48 * time.Hour)}, {ID: 2, CreatedAt: now}}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	deleted, err := base.Purge(context.Background(), &row{}, "created_at < ?", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 row deleted, got %d", deleted)
	}
	var remaining int64
	db.Model(&row{}).Count(&remaining)
	if remaining != 1 {
		t.Fatalf("expected 1 row remaining, got %d", remaining)
	}
}
