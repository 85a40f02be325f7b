// Package logger provides the zap-backed logging interface shared by every
// savekit component.
//
// Any *zap.Logger satisfies Logger, so tests pass zap.NewNop or an observer
// core where a component asks for one.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	// DPanic logs at error level in production and panics in development.
	// It is reserved for programming errors such as broken save counters.
	DPanic(msg string, fields ...zap.Field)
	Sync() error
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return zap.NewNop()
}

// New builds a logger from cfg and installs it as the global logger used by
// the package-level helpers.
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, ErrInvalidLevel(cfg.Level, err)
	}
	l, err := buildZap(cfg, level)
	if err != nil {
		return nil, ErrBuildLogger(err)
	}

	// package-level helpers add one frame
	SetGlobalLogger(l.WithOptions(zap.AddCallerSkip(1)))
	return l, nil
}

func buildZap(cfg *Config, level zapcore.Level, opts ...zap.Option) (*zap.Logger, error) {
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "timestamp"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoder,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}
	// stack traces only for broken invariants and worse
	return zc.Build(append(opts, zap.AddStacktrace(zapcore.DPanicLevel))...)
}
