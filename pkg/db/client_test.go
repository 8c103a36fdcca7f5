package db

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type probeRow struct {
	ID   int
	Name string
}

func bufferLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "db-test", Level: "debug", Output: buf})
}

func TestOpenPingAndClose(t *testing.T) {
	client, err := Open(sqlite.Open("file:ping?mode=memory"), nil)
	require.NoError(t, err)

	require.NoError(t, client.Ping(context.Background()))
	require.NotNil(t, client.DB())
	require.NoError(t, client.Close())
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected missing dsn error")
	}
}

func TestConfigurePoolAppliesLimits(t *testing.T) {
	client, err := Open(sqlite.Open("file:pool?mode=memory"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.configurePool(config.DBConfig{MaxOpenConns: 3, MaxIdleConns: 2}))

	sqlDB, err := client.DB().DB()
	require.NoError(t, err)
	assert.Equal(t, 3, sqlDB.Stats().MaxOpenConnections)
}

func TestQueryLoggerReportsFailuresAndSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	queries := newQueryLogger(bufferLogger(&buf), 50*time.Millisecond).(*queryLogger)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	queries.now = func() time.Time { return now }
	sql := func() (string, int64) { return "SELECT 1", 1 }

	queries.Trace(context.Background(), now.Add(-10*time.Millisecond), sql, nil)
	assert.Empty(t, buf.String())

	queries.Trace(context.Background(), now.Add(-10*time.Millisecond), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	queries.Trace(context.Background(), now.Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "db.slow_query")
	assert.Contains(t, buf.String(), "SELECT 1")

	buf.Reset()
	queries.Trace(context.Background(), now, sql, gorm.ErrInvalidTransaction)
	assert.Contains(t, buf.String(), "db.query_failed")
}

func TestQueryLoggerWiredThroughOpen(t *testing.T) {
	var buf bytes.Buffer
	client, err := Open(sqlite.Open("file:"+t.Name()+"?mode=memory"), newQueryLogger(bufferLogger(&buf), 0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(&probeRow{}))
	err = client.DB().Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "db.query_failed")
}

func TestNewQueryLoggerWithoutLoggerDiscards(t *testing.T) {
	assert.NotNil(t, newQueryLogger(nil, time.Second))
}
