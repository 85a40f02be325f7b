// Package autosave runs scheduled chains of tasks against save subsystems.
//
// A chain is a list of tasks run one after another on a cron schedule. The
// built-in tasks save or reload every cached slot of a subsystem; they hop
// onto the subsystem's owner goroutine through a dispatch.Doer and wait for
// the asynchronous completions on the scheduler goroutine.
package autosave

import (
	"context"

	"github.com/dailyyoga/savekit/logger"
)

// Task is the interface for a scheduled task
// Each task must have a unique name and implement the Run method
type Task interface {
	// Name returns the unique identifier for this task
	Name() string
	// Run executes the task with the given context
	// The context carries the Report of the chain run
	Run(ctx context.Context) error
}

// Chain represents a chain of tasks that execute sequentially
type Chain struct {
	// Name is the name of the chain
	Name string
	// Spec is the cron spec for the chain
	Spec string
	// Tasks are the tasks in the chain
	Tasks []Task
}

// Scheduler manages scheduled chains
// It supports chain-based task execution with middleware support
type Scheduler interface {
	// Start begins the scheduler
	Start()
	// Close stops the scheduler and waits for running chains to complete
	Close()
	// AddTasks adds a chain of tasks to be executed according to the cron spec
	// The spec follows the standard cron format with support for seconds
	// Tasks are executed sequentially, and if any task fails, the chain is aborted
	AddTasks(name string, spec string, tasks ...Task) error
	// AddChain is alias for AddTasks
	AddChain(chain Chain) error
	// RunNow executes a registered chain immediately on the calling goroutine
	RunNow(name string) error
}

// NewScheduler creates a scheduler. Every task is wrapped by panic recovery
// and logging, then by mws in order.
func NewScheduler(log logger.Logger, mws ...Middleware) Scheduler {
	return newScheduler(log, append([]Middleware{recoverTask(log), logTask(log)}, mws...)...)
}
