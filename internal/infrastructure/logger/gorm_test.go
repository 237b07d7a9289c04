package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level), recorded
}

func traceQuery(l *GormLogger, begin time.Time, sql string, rows int64, err error) {
	l.Trace(context.Background(), begin, func() (string, int64) { return sql, rows }, err)
}

func TestGormLogger_TraceEmitsTimedQuery(t *testing.T) {
	l, recorded := newObservedGormLogger(gormlogger.Info)

	traceQuery(l, time.Now(), "SELECT value FROM settings WHERE key = ?", 1, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "query", logs[0].Message)
	assert.Equal(t, zapcore.DebugLevel, logs[0].Level)

	fields := logs[0].ContextMap()
	assert.Equal(t, "SELECT value FROM settings WHERE key = ?", fields["sql"])
	assert.Equal(t, int64(1), fields["rows"])
	assert.Contains(t, fields, "elapsed")
}

func TestGormLogger_TraceSuppressesRecordNotFound(t *testing.T) {
	l, recorded := newObservedGormLogger(gormlogger.Error)

	traceQuery(l, time.Now(), "SELECT value FROM settings WHERE key = ?", 0, gormlogger.ErrRecordNotFound)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_TraceReportsFailure(t *testing.T) {
	l, recorded := newObservedGormLogger(gormlogger.Error)

	traceQuery(l, time.Now(), "INSERT INTO ledger_records ...", 0, errors.New("constraint violated"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "query failed", logs[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	assert.Contains(t, logs[0].ContextMap(), "error")
}

func TestGormLogger_TraceFlagsSlowQuery(t *testing.T) {
	l, recorded := newObservedGormLogger(gormlogger.Warn)

	traceQuery(l, time.Now().Add(-time.Second), "DELETE FROM ledger_records", 40, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "slow query", logs[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
}

func TestGormLogger_SilentLogsNothing(t *testing.T) {
	l, recorded := newObservedGormLogger(gormlogger.Silent)

	traceQuery(l, time.Now(), "SELECT 1", 1, nil)
	l.Info(context.Background(), "ignored")
	l.Error(context.Background(), "ignored")

	assert.Empty(t, recorded.All())
}

func TestGormLogger_LogModeLeavesReceiverUntouched(t *testing.T) {
	l, recorded := newObservedGormLogger(gormlogger.Info)

	quiet := l.LogMode(gormlogger.Silent)
	traceQuery(quiet.(*GormLogger), time.Now(), "SELECT 1", 1, nil)
	assert.Empty(t, recorded.All())

	traceQuery(l, time.Now(), "SELECT 1", 1, nil)
	assert.Len(t, recorded.All(), 1)
}

func TestGormLogger_FormattedMessages(t *testing.T) {
	l, recorded := newObservedGormLogger(gormlogger.Warn)

	l.Warn(context.Background(), "replaying %d rows", 7)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "replaying 7 rows", logs[0].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"", gormlogger.Warn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, MapGormLogLevel(tt.level), "level %q", tt.level)
	}
}

func TestGormLoggerSatisfiesInterface(t *testing.T) {
	l, _ := newObservedGormLogger(gormlogger.Info)
	var _ gormlogger.Interface = l
}
