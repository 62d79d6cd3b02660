package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appLog "moncal/internal/log"
)

const (
	slowQueryThreshold = 200 * time.Millisecond

	// maxLoggedSQL bounds SQL text in warn/error lines; batch inserts
	// inline every bound value.
	maxLoggedSQL = 512
)

func truncateSQL(sql string) string {
	if len(sql) <= maxLoggedSQL {
		return sql
	}
	return fmt.Sprintf("%s...(%d bytes)", sql[:maxLoggedSQL], len(sql))
}

// gormLogger routes GORM's output through the application logger so SQL
// traces share the key=value line format.
type gormLogger struct {
	level gormlogger.LogLevel
}

func newGormLogger() gormlogger.Interface {
	return &gormLogger{level: gormlogger.Warn}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		appLog.Info("gorm: " + fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		appLog.Warn("gorm: " + fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		appLog.Error("gorm: "+fmt.Sprintf(msg, args...), nil)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		appLog.Error("sql failed", err, "elapsed", elapsed, "rows", rows, "sql", truncateSQL(sql))
		appLog.Debug("failed sql", "sql", sql)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		appLog.Warn("slow sql", "elapsed", elapsed, "rows", rows, "sql", truncateSQL(sql))
	default:
		sql, rows := fc()
		appLog.Debug("sql", "elapsed", elapsed, "rows", rows, "sql", sql)
	}
}
