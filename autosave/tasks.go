package autosave

import (
	"context"
	"slices"

	"github.com/dailyyoga/savekit/dispatch"
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/save"
	"go.uber.org/zap"
)

// TypeLookup resolves a record type by name, like codec.Registry.Lookup.
type TypeLookup func(name string) (save.Type, bool)

type slotResult struct {
	slot    string
	success bool
}

// saveAllTask saves every cached slot of a subsystem.
type saveAllTask struct {
	logger logger.Logger
	sub    *save.Subsystem
	doer   dispatch.Doer
}

// SaveAll returns a task that issues an asynchronous save for every cached
// slot of sub and waits for all of them. Slots with a save already in flight
// are skipped. The task fails when any save fails or the context ends first.
func SaveAll(log logger.Logger, sub *save.Subsystem, doer dispatch.Doer) Task {
	return &saveAllTask{logger: log, sub: sub, doer: doer}
}

func (t *saveAllTask) Name() string { return "save_all" }

func (t *saveAllTask) Run(ctx context.Context) error {
	var (
		results chan slotResult
		issued  []string
		skipped int
	)
	err := t.doer.Do(ctx, func() {
		slots := t.sub.Slots()
		results = make(chan slotResult, len(slots))
		for _, slot := range slots {
			if save.HeaderOf(t.sub.Active(slot)).IsSaveInProgress() {
				skipped++
				continue
			}
			if t.sub.AsyncSave(nil, slot, report(results, slot)) {
				issued = append(issued, slot)
			}
		}
	})
	if err != nil {
		return err
	}

	saved, failed, err := collect(ctx, results, issued)
	ReportFrom(ctx).Set(t.Name(), Outcome{Done: saved, Failed: failed, Skipped: skipped})

	t.logger.Info("autosave finished",
		zap.String("subsystem", t.sub.Name()),
		zap.Int("saved", len(saved)),
		zap.Int("failed", len(failed)),
		zap.Int("skipped", skipped),
	)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return ErrSlotsFailed("save", failed)
	}
	return nil
}

// reloadAllTask force-reloads every cached slot of a subsystem.
type reloadAllTask struct {
	logger logger.Logger
	sub    *save.Subsystem
	doer   dispatch.Doer
	lookup TypeLookup
}

// ReloadAll returns a task that force-reloads every cached slot of sub from
// storage, replacing the cached records. Slots with a save in flight are
// skipped so their pending write is not shadowed.
func ReloadAll(log logger.Logger, sub *save.Subsystem, doer dispatch.Doer, lookup TypeLookup) Task {
	return &reloadAllTask{logger: log, sub: sub, doer: doer, lookup: lookup}
}

func (t *reloadAllTask) Name() string { return "reload_all" }

func (t *reloadAllTask) Run(ctx context.Context) error {
	var (
		results chan slotResult
		issued  []string
	)
	err := t.doer.Do(ctx, func() {
		slots := t.sub.Slots()
		results = make(chan slotResult, len(slots))
		for _, slot := range slots {
			h := save.HeaderOf(t.sub.Active(slot))
			if h.IsSaveInProgress() {
				continue
			}
			typ, _ := t.lookup(h.TypeName())
			if t.sub.AsyncLoad(typ, slot, true, report(results, slot)) {
				issued = append(issued, slot)
			}
		}
	})
	if err != nil {
		return err
	}

	loaded, failed, err := collect(ctx, results, issued)
	ReportFrom(ctx).Set(t.Name(), Outcome{Done: loaded, Failed: failed})
	t.logger.Info("reload finished",
		zap.String("subsystem", t.sub.Name()),
		zap.Int("loaded", len(loaded)),
		zap.Int("failed", len(failed)),
	)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return ErrSlotsFailed("reload", failed)
	}
	return nil
}

// report runs on the owner goroutine; results is sized for every slot.
func report(results chan<- slotResult, slot string) save.Callback {
	return func(_ save.Record, success bool) {
		results <- slotResult{slot: slot, success: success}
	}
}

func collect(ctx context.Context, results <-chan slotResult, issued []string) (ok, failed []string, err error) {
	for range issued {
		select {
		case r := <-results:
			if r.success {
				ok = append(ok, r.slot)
			} else {
				failed = append(failed, r.slot)
			}
		case <-ctx.Done():
			return ok, failed, ctx.Err()
		}
	}
	slices.Sort(ok)
	slices.Sort(failed)
	return ok, failed, nil
}
