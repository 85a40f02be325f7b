package save

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"weak"

	"github.com/dailyyoga/savekit/logger"
	"go.uber.org/zap"
)

// Callback reports the outcome of an asynchronous load or save.
type Callback func(rec Record, success bool)

// NotFound is implemented by storage errors that mean "no blob in this slot".
// Such errors are not logged as storage failures.
type NotFound interface {
	NotFound() bool
}

// Corrupt is implemented by storage errors for a blob that exists but cannot
// be decoded. Like a blob of the wrong type, it falls back to a default record.
type Corrupt interface {
	Corrupt() bool
}

// Option configures a Subsystem
type Option func(*Subsystem)

// WithObserver sends slot events to o.
func WithObserver(o Observer) Option {
	return func(s *Subsystem) {
		s.observer = o
	}
}

// WithOwner overrides the owner stamped on records. The user index of the
// owner is forced to the configured one.
func WithOwner(owner Owner) Option {
	return func(s *Subsystem) {
		s.owner.ID = owner.ID
	}
}

// Subsystem caches live records per slot and drives their loads and saves.
// It is not safe for concurrent use; see the package documentation.
type Subsystem struct {
	log      logger.Logger
	backend  Backend
	observer Observer

	name   string
	owner  Owner
	closed atomic.Bool

	records *recordCache
	pending *pendingTracker
}

// New creates a Subsystem on top of backend.
func New(log logger.Logger, backend Backend, cfg *Config, opts ...Option) (*Subsystem, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, ErrInvalidConfig("backend is required")
	}

	s := &Subsystem{
		log:     log,
		backend: backend,
		name:    cfg.Name,
		owner:   Owner{ID: cfg.Name, UserIndex: cfg.UserIndex},
		records: newRecordCache(),
		pending: newPendingTracker(log, cfg.Name),
	}
	for _, opt := range opts {
		opt(s)
	}

	log.Info("save subsystem created",
		zap.String("subsystem", s.name),
		zap.String("scope", string(cfg.Scope)),
		zap.Int("user_index", s.owner.UserIndex),
	)
	return s, nil
}

// Name returns the configured subsystem name.
func (s *Subsystem) Name() string { return s.name }

// Owner returns the owner stamped on every record of this subsystem.
func (s *Subsystem) Owner() Owner { return s.owner }

// Initialize starts a fire-and-forget asynchronous load for every entry.
// Entries whose slot cannot be resolved are skipped.
func (s *Subsystem) Initialize(entries []AutoLoad) {
	s.log.Info("start auto loading records", zap.String("subsystem", s.name), zap.Int("count", len(entries)))

	for _, entry := range entries {
		slot, ok := s.resolve("Initialize", entry.Type, entry.Slot)
		if !ok {
			continue
		}
		s.asyncLoad(entry.Type, slot, nil)
	}
}

// Get returns the cached record for the slot. On a miss it loads the record
// synchronously when loadIfAbsent is set, and returns nil otherwise.
func (s *Subsystem) Get(ctx context.Context, t Type, slot string, loadIfAbsent bool) Record {
	resolved, ok := s.resolve("Get", t, slot)
	if !ok {
		return nil
	}

	if rec := s.records.get(resolved); rec != nil {
		return rec
	}
	if loadIfAbsent {
		return s.SyncLoad(ctx, t, slot, true)
	}
	return nil
}

// SyncLoad returns the record for the slot, reading storage unless the slot
// is cached and force is false. Missing or invalid blobs yield a fresh
// default record. Any other storage failure returns nil and leaves the cached
// record in place.
func (s *Subsystem) SyncLoad(ctx context.Context, t Type, slot string, force bool) Record {
	resolved, ok := s.resolve("SyncLoad", t, slot)
	if !ok {
		return nil
	}

	if !force {
		if rec := s.records.get(resolved); rec != nil {
			return rec
		}
	}

	exists, err := s.backend.Exists(ctx, s.owner.UserIndex, resolved)
	if err != nil && !s.fallsBack("exists", resolved, err) {
		return nil
	}
	if err != nil || !exists {
		return s.fabricate(t, resolved)
	}

	obj, err := s.backend.Load(ctx, s.owner.UserIndex, resolved)
	return s.completeLoad(obj, err, resolved, t)
}

// AsyncLoad loads the record for the slot without blocking on storage.
// onComplete may be nil. A cache hit without force completes immediately.
// The return value reports whether the request was accepted.
func (s *Subsystem) AsyncLoad(t Type, slot string, force bool, onComplete Callback) bool {
	resolved, ok := s.resolve("AsyncLoad", t, slot)
	if !ok {
		return false
	}

	if !force {
		if rec := s.records.get(resolved); rec != nil {
			invoke(onComplete, rec, true)
			return true
		}
	}

	s.asyncLoad(t, resolved, onComplete)
	return true
}

func (s *Subsystem) asyncLoad(t Type, slot string, onComplete Callback) {
	s.pending.beginLoad(slot)

	log, name := s.log, s.name
	self := weak.Make(s)
	s.backend.LoadAsync(s.owner.UserIndex, slot, func(obj any, err error) {
		s := self.Value()
		if s == nil || s.closed.Load() {
			log.Warn("dropping load completion", zap.String("subsystem", name), zap.String("slot", slot), zap.Error(ErrClosed))
			return
		}

		rec := s.completeLoad(obj, err, slot, t)
		s.pending.endLoad(slot)
		invoke(onComplete, rec, rec != nil)
	})
}

// SyncSave writes the cached record of the slot and reports success. It fails
// without touching storage when the slot has no cached record.
func (s *Subsystem) SyncSave(ctx context.Context, t Type, slot string) bool {
	resolved, ok := s.resolve("SyncSave", t, slot)
	if !ok {
		return false
	}

	rec := s.records.get(resolved)
	if rec == nil {
		s.logNotLoaded("SyncSave", resolved)
		return false
	}

	preSave(s.log, rec)
	err := s.backend.Save(ctx, s.owner.UserIndex, resolved, rec)
	if err != nil {
		s.logStorageError("save", resolved, err)
	}
	success := err == nil
	order := postSave(s.log, rec, success)
	s.observeSave(rec, success)
	reportOutOfOrder(s.log, rec, order)

	return success
}

// AsyncSave writes the cached record of the slot without blocking on storage.
// It returns false, without invoking onComplete, when the slot has no cached
// record.
func (s *Subsystem) AsyncSave(t Type, slot string, onComplete Callback) bool {
	resolved, ok := s.resolve("AsyncSave", t, slot)
	if !ok {
		return false
	}

	rec := s.records.get(resolved)
	if rec == nil {
		s.logNotLoaded("AsyncSave", resolved)
		return false
	}

	s.pending.beginSave(resolved)
	preSave(s.log, rec)

	log, name := s.log, s.name
	self := weak.Make(s)
	s.backend.SaveAsync(s.owner.UserIndex, resolved, rec, func(err error) {
		s := self.Value()
		if s == nil || s.closed.Load() {
			log.Warn("dropping save completion", zap.String("subsystem", name), zap.String("slot", resolved), zap.Error(ErrClosed))
			return
		}

		if err != nil {
			s.logStorageError("save", resolved, err)
		}
		success := err == nil
		order := postSave(s.log, rec, success)
		s.observeSave(rec, success)
		invoke(onComplete, rec, success)
		s.pending.endSave(resolved)
		reportOutOfOrder(s.log, rec, order)
	})
	return true
}

// Create installs a fresh default record for the slot, replacing any cached one.
func (s *Subsystem) Create(t Type, slot string) Record {
	resolved, ok := s.resolve("Create", t, slot)
	if !ok {
		return nil
	}
	return s.fabricate(t, resolved)
}

// Release drops the cached record of the slot. Storage is not touched. It
// reports whether the slot resolved, not whether a record was cached.
func (s *Subsystem) Release(t Type, slot string) bool {
	resolved, ok := s.resolve("Release", t, slot)
	if !ok {
		return false
	}

	if rec := s.records.get(resolved); rec != nil {
		s.records.remove(resolved)
		s.observe(EventReleased, rec)
	}
	return true
}

// Active returns the cached record of an already resolved slot, or nil.
func (s *Subsystem) Active(slot string) Record {
	return s.records.get(slot)
}

// Slots lists the cached slot names in sorted order.
func (s *Subsystem) Slots() []string {
	return s.records.slots()
}

// Len returns the number of cached records.
func (s *Subsystem) Len() int {
	return s.records.len()
}

// IsPendingLoad reports whether an asynchronous load of the slot is in flight.
func (s *Subsystem) IsPendingLoad(slot string) bool { return s.pending.isLoading(slot) }

// HasPendingLoad reports whether any asynchronous load is in flight.
func (s *Subsystem) HasPendingLoad() bool { return s.pending.anyLoading() }

// IsPendingSave reports whether an asynchronous save of the slot is in flight.
func (s *Subsystem) IsPendingSave(slot string) bool { return s.pending.isSaving(slot) }

// HasPendingSave reports whether any asynchronous save is in flight.
func (s *Subsystem) HasPendingSave() bool { return s.pending.anySaving() }

// Close drops every cached record. Completions arriving afterwards are ignored.
func (s *Subsystem) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.log.Info("save subsystem closed",
		zap.String("subsystem", s.name),
		zap.Int("records", s.records.len()),
		zap.Bool("pending_load", s.pending.anyLoading()),
		zap.Bool("pending_save", s.pending.anySaving()),
	)
	s.records.clear()
}

func (s *Subsystem) resolve(op string, t Type, slot string) (string, bool) {
	resolved := Resolve(t, slot)
	if resolved == "" {
		s.log.Error("no valid slot name",
			zap.String("subsystem", s.name),
			zap.String("op", op),
			zap.String("type", typeName(t)),
			zap.Error(ErrNoSlot),
		)
		return "", false
	}
	return resolved, true
}

// completeLoad turns the result of a storage read into the cached record. A
// missing or undecodable blob yields a default record; any other error keeps
// the cached record and returns nil.
func (s *Subsystem) completeLoad(obj any, err error, slot string, t Type) Record {
	switch {
	case err != nil:
		if !s.fallsBack("load", slot, err) {
			return nil
		}
		return s.fabricate(t, slot)
	case obj == nil:
		return s.fabricate(t, slot)
	default:
		return s.processLoaded(obj, slot, t)
	}
}

// fallsBack logs err and reports whether the slot may fall back to a default
// record.
func (s *Subsystem) fallsBack(op, slot string, err error) bool {
	var (
		nf NotFound
		c  Corrupt
	)
	switch {
	case errors.As(err, &nf) && nf.NotFound():
		s.log.Debug("slot has no blob", zap.String("subsystem", s.name), zap.String("slot", slot))
		return true
	case errors.As(err, &c) && c.Corrupt():
		s.log.Warn("found undecodable blob in slot",
			zap.String("subsystem", s.name),
			zap.String("slot", slot),
			zap.Error(err),
		)
		return true
	}
	s.logStorageError(op, slot, err)
	return false
}

// processLoaded installs obj when it is a record of the expected type and
// falls back to a default record otherwise.
func (s *Subsystem) processLoaded(obj any, slot string, t Type) Record {
	rec, ok := obj.(Record)
	if t != nil && (!ok || !t.Is(obj)) {
		s.log.Warn("found invalid record in slot",
			zap.String("subsystem", s.name),
			zap.String("slot", slot),
			zap.String("expected", t.Name()),
			zap.String("found", fmt.Sprintf("%T", obj)),
			zap.Error(ErrInvalidRecord),
		)
		ok = false
	}
	if !ok {
		return s.fabricate(t, slot)
	}

	initializeLoaded(rec, t, s.owner, slot)
	s.records.put(slot, rec)
	s.observe(EventLoaded, rec)
	return rec
}

func (s *Subsystem) fabricate(t Type, slot string) Record {
	rec := s.backend.Fabricate(t)
	if rec == nil {
		s.log.Error("failed to create record",
			zap.String("subsystem", s.name),
			zap.String("slot", slot),
			zap.String("type", typeName(t)),
			zap.Error(ErrFabricate),
		)
		return nil
	}

	resetToDefault(rec, t, s.owner, slot)
	s.records.put(slot, rec)
	s.observe(EventCreated, rec)
	return rec
}

func (s *Subsystem) observeSave(rec Record, success bool) {
	if success {
		s.observe(EventSaved, rec)
	} else {
		s.observe(EventSaveFailed, rec)
	}
}

func (s *Subsystem) observe(kind EventKind, rec Record) {
	if s.observer == nil {
		return
	}
	h := rec.header()
	s.observer.Observe(Event{
		Kind:      kind,
		Subsystem: s.name,
		UserIndex: s.owner.UserIndex,
		Slot:      h.slot,
		Type:      h.typeName,
		Request:   h.currentRequest,
		Version:   h.SavedVersion,
		At:        time.Now(),
	})
}

func (s *Subsystem) logNotLoaded(op, slot string) {
	s.log.Warn("cannot save record that is not loaded",
		zap.String("subsystem", s.name),
		zap.String("op", op),
		zap.String("slot", slot),
		zap.Error(ErrNotLoaded),
	)
}

func (s *Subsystem) logStorageError(op, slot string, err error) {
	s.log.Error("storage operation failed",
		zap.String("subsystem", s.name),
		zap.String("slot", slot),
		zap.Error(ErrStorage(op, err)),
	)
}

func invoke(cb Callback, rec Record, success bool) {
	if cb != nil {
		cb(rec, success)
	}
}
