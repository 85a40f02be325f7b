package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// global backs the package-level helpers. New replaces it; until then the
// first helper call installs a default JSON logger.
var global atomic.Pointer[zap.Logger]

func globalLogger() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	l, err := buildZap(DefaultConfig(), zapcore.InfoLevel, zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	if global.CompareAndSwap(nil, l) {
		return l
	}
	return global.Load()
}

// SetGlobalLogger replaces the logger behind the package-level helpers.
// Build it with zap.AddCallerSkip(1) to keep caller locations correct.
func SetGlobalLogger(l *zap.Logger) {
	global.Store(l)
}

// GetGlobalLogger returns the logger behind the package-level helpers.
func GetGlobalLogger() *zap.Logger {
	return globalLogger()
}

// Global returns the package-level logger as a Logger, for code that has no
// injected one.
func Global() Logger {
	return globalLogger().WithOptions(zap.AddCallerSkip(-1))
}

// Debug logs at debug level on the global logger.
func Debug(msg string, fields ...zap.Field) {
	globalLogger().Debug(msg, fields...)
}

// Info logs at info level on the global logger.
func Info(msg string, fields ...zap.Field) {
	globalLogger().Info(msg, fields...)
}

// Warn logs at warn level on the global logger.
func Warn(msg string, fields ...zap.Field) {
	globalLogger().Warn(msg, fields...)
}

// Error logs at error level on the global logger.
func Error(msg string, fields ...zap.Field) {
	globalLogger().Error(msg, fields...)
}

// DPanic logs at dpanic level on the global logger.
func DPanic(msg string, fields ...zap.Field) {
	globalLogger().DPanic(msg, fields...)
}

// Sync flushes the global logger.
func Sync() error {
	return globalLogger().Sync()
}
