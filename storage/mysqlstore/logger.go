package mysqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dailyyoga/savekit/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

var gormLevels = map[string]glogger.LogLevel{
	"silent": glogger.Silent,
	"error":  glogger.Error,
	"warn":   glogger.Warn,
	"info":   glogger.Info,
}

// gormLogger sends gorm output to the store's zap logger. A missing slot row
// is an ordinary miss for the store, so record-not-found is never logged as
// an sql error.
type gormLogger struct {
	log   logger.Logger
	level glogger.LogLevel
	slow  time.Duration
	table string
}

func newGormLogger(log logger.Logger, cfg *Config) *gormLogger {
	level, ok := gormLevels[strings.ToLower(cfg.LogLevel)]
	if !ok {
		level = glogger.Warn
	}
	return &gormLogger{log: log, level: level, slow: cfg.SlowThreshold, table: cfg.Table}
}

func (g *gormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	c := *g
	c.level = level
	return &c
}

func (g *gormLogger) fields(extra ...zap.Field) []zap.Field {
	return append([]zap.Field{zap.String("store", "mysql"), zap.String("table", g.table)}, extra...)
}

func (g *gormLogger) Info(_ context.Context, msg string, data ...any) {
	if g.level >= glogger.Info {
		g.log.Info(fmt.Sprintf(msg, data...), g.fields()...)
	}
}

func (g *gormLogger) Warn(_ context.Context, msg string, data ...any) {
	if g.level >= glogger.Warn {
		g.log.Warn(fmt.Sprintf(msg, data...), g.fields()...)
	}
}

func (g *gormLogger) Error(_ context.Context, msg string, data ...any) {
	if g.level >= glogger.Error {
		g.log.Error(fmt.Sprintf(msg, data...), g.fields()...)
	}
}

func (g *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= glogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := g.slow > 0 && elapsed > g.slow

	var msg string
	switch {
	case failed && g.level >= glogger.Error:
		msg = "slot query failed"
	case slow && g.level >= glogger.Warn:
		msg = "slow slot query"
	case g.level >= glogger.Info:
		msg = "slot query"
	default:
		return
	}

	sql, rows := fc()
	fields := g.fields(zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	switch msg {
	case "slot query failed":
		g.log.Error(msg, append(fields, zap.Error(err))...)
	case "slow slot query":
		g.log.Warn(msg, append(fields, zap.Duration("threshold", g.slow))...)
	default:
		g.log.Debug(msg, fields...)
	}
}
