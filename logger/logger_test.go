package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil config", cfg: nil},
		{name: "partial config", cfg: &Config{Level: "warn", Encoding: "console"}},
		{name: "empty level defaults to info", cfg: &Config{Encoding: "json"}},
		{name: "invalid level", cfg: &Config{Level: "verbose"}, wantErr: true},
		{name: "invalid encoding", cfg: &Config{Encoding: "logfmt"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobal(t)
			l, err := New(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("New() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			l.Info("slot store opened")
		})
	}
}

func TestNew_OutputPath(t *testing.T) {
	resetGlobal(t)
	path := filepath.Join(t.TempDir(), "savekit.log")

	l, err := New(&Config{Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Info("slot saved")
	if err := l.Sync(); err != nil {
		t.Errorf("Sync failed: %v", err)
	}

	_, err = New(&Config{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "x.log")}})
	if err == nil {
		t.Error("expected build error for an unwritable output path")
	}
}

func TestNop_DPanicDoesNotPanic(t *testing.T) {
	l := Nop()
	l.DPanic("counter regressed")
	if err := l.Sync(); err != nil {
		t.Errorf("Sync on nop logger: %v", err)
	}
}

func TestNew_DevelopmentDPanicPanics(t *testing.T) {
	resetGlobal(t)
	l, err := New(&Config{Level: "debug", Encoding: "console", Development: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected DPanic to panic in development mode")
		}
	}()
	l.DPanic("broken invariant")
}

func TestConfig_MergeDefaults(t *testing.T) {
	cfg := (&Config{Level: "warn"}).MergeDefaults()
	if cfg.Level != "warn" || cfg.Encoding != "json" {
		t.Errorf("level/encoding = %s/%s, want warn/json", cfg.Level, cfg.Encoding)
	}
	if len(cfg.OutputPaths) != 1 || cfg.OutputPaths[0] != "stdout" {
		t.Errorf("unexpected output paths: %v", cfg.OutputPaths)
	}
	if len(cfg.ErrorOutputPaths) != 1 || cfg.ErrorOutputPaths[0] != "stderr" {
		t.Errorf("unexpected error output paths: %v", cfg.ErrorOutputPaths)
	}
}

func TestNew_Level(t *testing.T) {
	resetGlobal(t)
	l, err := New(&Config{Level: "warn"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	core := l.(interface{ Core() zapcore.Core }).Core()
	if core.Enabled(zapcore.InfoLevel) || !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn logger should drop info and keep warn")
	}
}
