package eventlog

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dailyyoga/savekit/save"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeInserter struct {
	mu      sync.Mutex
	batches [][]Row
	err     error
	closed  bool
	flushed chan int
}

func newFakeInserter() *fakeInserter {
	return &fakeInserter{flushed: make(chan int, 16)}
}

func (f *fakeInserter) Insert(_ context.Context, rows []Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]Row(nil), rows...))
	f.flushed <- len(rows)
	return f.err
}

func (f *fakeInserter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeInserter) waitFlush(t *testing.T) int {
	t.Helper()
	select {
	case n := <-f.flushed:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a flush")
		return 0
	}
}

func event(slot string, kind save.EventKind) save.Event {
	return save.Event{
		Kind:      kind,
		Subsystem: "player",
		UserIndex: 1,
		Slot:      slot,
		Type:      "profile",
		Request:   2,
		Version:   1,
		At:        time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestSink_FlushBySize(t *testing.T) {
	ins := newFakeInserter()
	sink, err := NewSink(zap.NewNop(), &Config{FlushSize: 2, FlushInterval: time.Hour}, ins)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	defer sink.Close()

	sink.Observe(event("a", save.EventSaved))
	sink.Observe(event("b", save.EventLoaded))
	if n := ins.waitFlush(t); n != 2 {
		t.Fatalf("flushed %d rows, want 2", n)
	}

	want := []Row{
		{Kind: "saved", Subsystem: "player", UserIndex: 1, Slot: "a", Type: "profile", Request: 2, Version: 1, At: event("a", "").At},
		{Kind: "loaded", Subsystem: "player", UserIndex: 1, Slot: "b", Type: "profile", Request: 2, Version: 1, At: event("b", "").At},
	}
	ins.mu.Lock()
	got := ins.batches[0]
	ins.mu.Unlock()
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Row{}, "EventID")); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if got[0].EventID == got[1].EventID {
		t.Error("event ids should differ")
	}
}

func TestSink_FlushByTimer(t *testing.T) {
	ins := newFakeInserter()
	sink, err := NewSink(zap.NewNop(), &Config{FlushSize: 100, FlushInterval: 20 * time.Millisecond}, ins)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	defer sink.Close()

	sink.Observe(event("a", save.EventCreated))
	if n := ins.waitFlush(t); n != 1 {
		t.Errorf("flushed %d rows, want 1", n)
	}
}

func TestSink_CloseDrains(t *testing.T) {
	ins := newFakeInserter()
	sink, err := NewSink(zap.NewNop(), &Config{FlushSize: 100, FlushInterval: time.Hour}, ins)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}

	for _, slot := range []string{"a", "b", "c"} {
		sink.Observe(event(slot, save.EventReleased))
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n := ins.waitFlush(t); n != 3 {
		t.Errorf("flushed %d rows on close, want 3", n)
	}
	if !ins.closed {
		t.Error("inserter not closed")
	}
	if err := sink.Write(event("d", save.EventSaved)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestSink_QueueFull(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ins := newFakeInserter()
	sink := &Sink{
		config:   (&Config{QueueSize: 1}).MergeDefaults(),
		logger:   zap.New(core),
		inserter: ins,
		rows:     make(chan Row, 1),
		done:     make(chan struct{}),
	}

	sink.Observe(event("a", save.EventSaved))
	sink.Observe(event("b", save.EventSaved))

	if sink.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", sink.Dropped())
	}
	if logs.FilterMessage("dropping slot events").Len() != 1 {
		t.Errorf("expected one drop warning, got %v", logs.All())
	}
}

func TestSink_InsertErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	ins := newFakeInserter()
	ins.err = errors.New("table is read only")
	sink, err := NewSink(zap.New(core), &Config{FlushSize: 1, FlushInterval: time.Hour}, ins)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}

	sink.Observe(event("a", save.EventSaved))
	ins.waitFlush(t)
	sink.Close()

	if logs.FilterMessage("failed to insert slot events").Len() != 1 {
		t.Errorf("expected insert error log, got %v", logs.All())
	}
}

func TestShouldFlush(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		rows   int
		waited time.Duration
		want   bool
	}{
		{name: "min disabled", cfg: Config{}, rows: 1, want: true},
		{name: "enough rows", cfg: Config{MinFlushSize: 10}, rows: 10, want: true},
		{name: "too few rows", cfg: Config{MinFlushSize: 10, MaxWaitTime: time.Minute}, rows: 3, waited: time.Second, want: false},
		{name: "waited too long", cfg: Config{MinFlushSize: 10, MaxWaitTime: time.Minute}, rows: 3, waited: 2 * time.Minute, want: true},
		{name: "no max wait", cfg: Config{MinFlushSize: 10}, rows: 3, waited: time.Hour, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Sink{config: &tt.cfg}
			if got := s.shouldFlush(tt.rows, tt.waited); got != tt.want {
				t.Errorf("shouldFlush = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (&Config{}).MergeDefaults().Validate(); err != nil {
		t.Errorf("disabled config should validate, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "no username", mutate: func(c *Config) { c.Username = "" }},
		{name: "bad table", mutate: func(c *Config) { c.Table = "events; drop" }},
		{name: "min above flush size", mutate: func(c *Config) { c.MinFlushSize = c.FlushSize + 1 }},
		{name: "negative wait", mutate: func(c *Config) { c.MaxWaitTime = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Hosts = []string{"localhost:9000"}
			cfg.Username = "default"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// TestClickHouse_Insert needs a server, e.g. SAVEKIT_CLICKHOUSE_HOSTS=localhost:9000.
func TestClickHouse_Insert(t *testing.T) {
	hosts := os.Getenv("SAVEKIT_CLICKHOUSE_HOSTS")
	if hosts == "" {
		t.Skip("SAVEKIT_CLICKHOUSE_HOSTS not set")
	}
	cfg := DefaultConfig()
	cfg.Hosts = strings.Split(hosts, ",")
	cfg.Username = "default"
	cfg.Password = os.Getenv("SAVEKIT_CLICKHOUSE_PASSWORD")
	cfg.Table = "savekit_test_events"
	cfg.CreateTable = true

	ins, err := Connect(zaptest.NewLogger(t), cfg)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer ins.Close()

	if err := ins.Insert(context.Background(), []Row{newRow(event("a", save.EventSaved))}); err != nil {
		t.Errorf("Insert failed: %v", err)
	}
}
