package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's SQL traces through the application logger.
type GormLogger struct {
	Logger        *Logger
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

func NewGormLogger(l *Logger, level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{Logger: l, Level: level, SlowThreshold: 200 * time.Millisecond}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.Level = level
	return &cp
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.Level >= gormlogger.Info {
		g.Logger.Info(ctx, fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.Level >= gormlogger.Warn {
		g.Logger.Warn(ctx, fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.Level >= gormlogger.Error {
		g.Logger.Err(ctx, fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && g.Level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.Logger.Err(ctx, "database query failed", "duration_ms", elapsed.Milliseconds(), "rows", rows, "query", sql, "err", err)
	case g.SlowThreshold > 0 && elapsed > g.SlowThreshold && g.Level >= gormlogger.Warn:
		sql, rows := fc()
		g.Logger.Warn(ctx, "slow database query", "duration_ms", elapsed.Milliseconds(), "rows", rows, "query", sql)
	case g.Level >= gormlogger.Info:
		sql, rows := fc()
		g.Logger.Debug(ctx, "new database query", "duration_ms", elapsed.Milliseconds(), "rows", rows, "query", sql)
	}
}
