package save

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type profile struct {
	Header
	Name  string
	Level int

	postLoads   int
	resets      int
	preSaves    int
	postSaves   []bool
	seenRequest int
}

func (p *profile) LatestDataVersion() int { return 2 }
func (p *profile) OnPostLoad()            { p.postLoads++ }
func (p *profile) OnResetToDefault()      { p.resets++ }
func (p *profile) OnPreSave() {
	p.preSaves++
	p.seenRequest = p.CurrentSaveRequest()
}
func (p *profile) OnPostSave(success bool) { p.postSaves = append(p.postSaves, success) }

type note struct {
	Header
	Text string
}

var (
	profileType = NewType("profile", func() *profile { return &profile{} }, WithDefaultSlot("profile"))
	noteType    = NewType("note", func() *note { return &note{} })
)

var errDisk = errors.New("disk full")

type missingError struct{}

func (missingError) Error() string  { return "no blob" }
func (missingError) NotFound() bool { return true }

type corruptError struct{}

func (corruptError) Error() string { return "bad envelope" }
func (corruptError) Corrupt() bool { return true }

type pendingLoad struct {
	slot string
	done func(any, error)
}

type pendingSave struct {
	slot string
	rec  Record
	done func(error)
}

// fakeBackend keeps objects in a map and holds asynchronous completions
// until the test releases them.
type fakeBackend struct {
	objects map[string]any

	existsErr error
	loadErr   error
	saveErr   error

	existsCalls int
	loadCalls   int
	saveCalls   int

	loads []pendingLoad
	saves []pendingSave
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: make(map[string]any)}
}

func (b *fakeBackend) Exists(_ context.Context, _ int, slot string) (bool, error) {
	b.existsCalls++
	if b.existsErr != nil {
		return false, b.existsErr
	}
	_, ok := b.objects[slot]
	return ok, nil
}

func (b *fakeBackend) Load(_ context.Context, _ int, slot string) (any, error) {
	b.loadCalls++
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.objects[slot], nil
}

func (b *fakeBackend) LoadAsync(_ int, slot string, done func(any, error)) {
	b.loadCalls++
	b.loads = append(b.loads, pendingLoad{slot: slot, done: done})
}

func (b *fakeBackend) Save(_ context.Context, _ int, slot string, rec Record) error {
	b.saveCalls++
	if b.saveErr != nil {
		return b.saveErr
	}
	b.objects[slot] = snapshot(rec)
	return nil
}

func (b *fakeBackend) SaveAsync(_ int, slot string, rec Record, done func(error)) {
	b.saveCalls++
	b.saves = append(b.saves, pendingSave{slot: slot, rec: rec, done: done})
}

func (b *fakeBackend) Fabricate(t Type) Record {
	if t == nil {
		return nil
	}
	return t.New()
}

// completeLoad finishes the i-th queued load with obj.
func (b *fakeBackend) completeLoad(i int, obj any, err error) {
	b.loads[i].done(obj, err)
}

// completeSave finishes the i-th queued save.
func (b *fakeBackend) completeSave(i int, err error) {
	s := b.saves[i]
	if err == nil {
		b.objects[s.slot] = snapshot(s.rec)
	}
	s.done(err)
}

// snapshot copies the persisted part of a record, the way a real codec would.
func snapshot(rec Record) any {
	switch r := rec.(type) {
	case *profile:
		return &profile{Header: Header{SavedVersion: r.SavedVersion}, Name: r.Name, Level: r.Level}
	case *note:
		return &note{Header: Header{SavedVersion: r.SavedVersion}, Text: r.Text}
	}
	return rec
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newTestSubsystem(t *testing.T, b Backend, opts ...Option) (*Subsystem, *observer.ObservedLogs) {
	t.Helper()
	log, logs := newObservedLogger()
	s, err := New(log, b, nil, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, logs
}

// countErr counts log entries at lvl carrying err.
func countErr(logs *observer.ObservedLogs, lvl zapcore.Level, err error) int {
	n := 0
	for _, e := range logs.FilterLevelExact(lvl).All() {
		for _, f := range e.Context {
			if f.Key != "error" {
				continue
			}
			if got, ok := f.Interface.(error); ok && errors.Is(got, err) {
				n++
			}
		}
	}
	return n
}
