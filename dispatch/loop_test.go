package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLoop(t *testing.T) (*Loop, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	l, err := NewLoop(zap.New(core), &Config{Name: "test", QueueCapacity: 4})
	if err != nil {
		t.Fatalf("NewLoop failed: %v", err)
	}
	return l, logs
}

func TestLoop_RunsInOrder(t *testing.T) {
	l, _ := newTestLoop(t)

	var got []int
	for i := range 100 {
		if err := l.Post(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Post failed: %v", err)
		}
	}
	l.Close()

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("ran %d functions, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, out of order", i, v)
		}
	}
}

func TestLoop_Do(t *testing.T) {
	l, _ := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go l.Run(ctx)

	var wg sync.WaitGroup
	counter := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Do(ctx, func() { counter++ }); err != nil {
				t.Errorf("Do failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := l.Do(ctx, func() {}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if counter != 10 {
		t.Errorf("counter = %d, want 10", counter)
	}
}

func TestLoop_PostAfterClose(t *testing.T) {
	l, _ := newTestLoop(t)
	l.Close()
	l.Close()

	if err := l.Post(func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Post after Close = %v, want ErrClosed", err)
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Do after Close = %v, want ErrClosed", err)
	}
}

func TestLoop_RecoversPanic(t *testing.T) {
	l, logs := newTestLoop(t)

	ran := false
	l.Post(func() { panic("boom") })
	l.Post(func() { ran = true })
	l.Close()

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !ran {
		t.Error("function after panic did not run")
	}
	if logs.FilterMessage("goroutine panicked").Len() != 1 {
		t.Error("panic not logged")
	}
}

func TestLoop_RunCancelled(t *testing.T) {
	l, _ := newTestLoop(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run = %v, want deadline exceeded", err)
	}
}

func TestLoop_RunPending(t *testing.T) {
	l, _ := newTestLoop(t)

	count := 0
	for range 3 {
		l.Post(func() { count++ })
	}

	deadline := time.Now().Add(time.Second)
	for count < 3 && time.Now().Before(deadline) {
		l.RunPending()
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestInline(t *testing.T) {
	var d Doer = Inline{}
	ran := 0
	d.Post(func() { ran++ })
	d.Do(context.Background(), func() { ran++ })
	if ran != 2 {
		t.Errorf("ran = %d, want 2", ran)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (&Config{QueueCapacity: -1}).Validate(); err == nil {
		t.Error("negative capacity accepted")
	}
	cfg := (&Config{}).MergeDefaults()
	if cfg.Name != "owner" || cfg.QueueCapacity != 64 {
		t.Errorf("MergeDefaults() = %+v", cfg)
	}
}
