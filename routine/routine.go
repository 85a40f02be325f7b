// Package routine provides safe goroutine execution with panic recovery.
//
// It prevents direct use of `go func()` from crashing the entire application
// when a panic occurs, by wrapping goroutine execution with recovery logic.
// Storage workers use a Runner so shutdown can wait for in-flight writes.
package routine

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dailyyoga/savekit/logger"
	"go.uber.org/zap"
)

// Runner provides safe goroutine execution with panic recovery
type Runner interface {
	// Go executes a function in a new goroutine with panic recovery
	Go(fn func())

	// GoNamed executes a named function in a new goroutine with panic recovery
	// The name is used for logging purposes
	GoNamed(name string, fn func())

	// Running reports how many goroutines started by this runner have not finished
	Running() int

	// Wait waits for all goroutines started by this runner to complete
	Wait()
}

// Option configures a Runner
type Option func(*defaultRunner)

// WithLimit bounds how many functions execute at the same time.
// Go never blocks the caller: excess goroutines wait for a free slot.
func WithLimit(n int) Option {
	return func(r *defaultRunner) {
		if n > 0 {
			r.sem = make(chan struct{}, n)
		}
	}
}

// defaultRunner implements Runner interface
type defaultRunner struct {
	log     logger.Logger
	wg      sync.WaitGroup
	sem     chan struct{}
	running atomic.Int64
}

// New creates a new Runner with the given logger
func New(log logger.Logger, opts ...Option) Runner {
	r := &defaultRunner{
		log: log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Go executes a function in a new goroutine with panic recovery
func (r *defaultRunner) Go(fn func()) {
	r.GoNamed("", fn)
}

// GoNamed executes a named function in a new goroutine with panic recovery
func (r *defaultRunner) GoNamed(name string, fn func()) {
	r.wg.Add(1)
	r.running.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Add(-1)
		if r.sem != nil {
			r.sem <- struct{}{}
			defer func() { <-r.sem }()
		}
		defer Recover(r.log, name)
		fn()
	}()
}

// Running reports how many goroutines have not finished yet
func (r *defaultRunner) Running() int {
	return int(r.running.Load())
}

// Wait waits for all goroutines started by this runner to complete
func (r *defaultRunner) Wait() {
	r.wg.Wait()
}

// GoNamed is a convenience function that executes a named function
// in a new goroutine with panic recovery
func GoNamed(log logger.Logger, name string, fn func()) {
	go func() {
		defer Recover(log, name)
		fn()
	}()
}

// GoNamedWithContext is a convenience function that executes a named function
// with context in a new goroutine with panic recovery
func GoNamedWithContext(ctx context.Context, log logger.Logger, name string, fn func(ctx context.Context)) {
	go func() {
		defer Recover(log, name)
		fn(ctx)
	}()
}

// Recover logs a recovered panic on log, or on the global logger when log is
// nil. It must be deferred directly.
func Recover(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		logPanic(log, name, rec)
	}
}

func logPanic(log logger.Logger, name string, rec any) {
	if log == nil {
		log = logger.Global()
	}
	fields := []zap.Field{
		zap.Any("panic", rec),
		zap.String("stack", string(debug.Stack())),
	}
	if name != "" {
		fields = append([]zap.Field{zap.String("routine", name)}, fields...)
	}
	log.Error("goroutine panicked", fields...)
}
