package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	stmt := func() (string, int64) { return `INSERT INTO "webhook_events" ...`, 1 }

	t.Run("slow query logs truncated sql", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		long := strings.Repeat("x", 400)
		gl.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return long, 0 }, nil)

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Len(t, entries[0].ContextMap()["sql"], 259)
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Error)
		gl.Trace(context.Background(), time.Now(), stmt, gormlogger.ErrRecordNotFound)
		assert.Empty(t, recorded.All())
	})

	t.Run("errors are logged without sql by default", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Error)
		gl.Trace(context.Background(), time.Now(), stmt, errors.New("unique violation"))

		entries := recorded.All()
		require.Len(t, entries, 1)
		_, hasSQL := entries[0].ContextMap()["sql"]
		assert.False(t, hasSQL)
	})

	t.Run("info level with sql enabled", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSQL(true), WithSlowThreshold(0))
		gl.Trace(WithRequestID(context.Background(), zap.NewNop(), "req-7"), time.Now(), stmt, nil)

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
		assert.Contains(t, entries[0].ContextMap()["sql"], "webhook_events")
	})

	t.Run("entries carry the table name", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Error, WithIgnoreRecordNotFoundError(false))
		gl.Trace(context.Background(), time.Now(), func() (string, int64) {
			return `SELECT * FROM "order_records" WHERE marketplace = 'trendyol'`, 0
		}, gormlogger.ErrRecordNotFound)

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "order_records", entries[0].ContextMap()["table"])
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Info).LogMode(gormlogger.Silent)
		gl.Trace(context.Background(), time.Now(), stmt, errors.New("x"))
		assert.Empty(t, recorded.All())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
