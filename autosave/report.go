package autosave

import (
	"context"
	"slices"
	"sync"
)

type reportKey struct{}

// Outcome is what one task did to the slots of its subsystem.
type Outcome struct {
	Done    []string
	Failed  []string
	Skipped int
}

// Report collects the outcomes of the tasks of one chain run. Each run gets
// a fresh Report in its context.
type Report struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
}

func withReport(ctx context.Context, r *Report) context.Context {
	return context.WithValue(ctx, reportKey{}, r)
}

// ReportFrom returns the Report of the running chain, or nil outside a chain.
func ReportFrom(ctx context.Context) *Report {
	r, _ := ctx.Value(reportKey{}).(*Report)
	return r
}

// Set records the outcome of task, replacing an earlier one.
func (r *Report) Set(task string, o Outcome) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]Outcome)
	}
	r.outcomes[task] = o
}

// Get returns the outcome recorded for task.
func (r *Report) Get(task string) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[task]
	return o, ok
}

// Failed lists every slot some task failed on, sorted and deduplicated.
func (r *Report) Failed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var failed []string
	for _, o := range r.outcomes {
		failed = append(failed, o.Failed...)
	}
	slices.Sort(failed)
	return slices.Compact(failed)
}
