// Package dispatch serializes work onto a single owner goroutine.
//
// A save.Subsystem is not safe for concurrent use. Storage completions and
// requests coming from other goroutines (cron jobs, kafka listeners, CLI
// handlers) are posted to a Loop, and the goroutine running the Loop is the
// only one that touches the subsystem.
package dispatch

import "context"

// Dispatcher accepts functions to run on the owner goroutine.
type Dispatcher interface {
	// Post queues fn without blocking. It fails once the dispatcher is closed.
	Post(fn func()) error
}

// Doer is a Dispatcher that can also run a function and wait for it.
type Doer interface {
	Dispatcher
	// Do runs fn on the owner goroutine and waits for it to return.
	Do(ctx context.Context, fn func()) error
}

// Inline runs every function immediately on the calling goroutine.
// It suits callers that already own the subsystem, such as a CLI.
type Inline struct{}

// Post runs fn right away.
func (Inline) Post(fn func()) error {
	fn()
	return nil
}

// Do runs fn right away.
func (Inline) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}
