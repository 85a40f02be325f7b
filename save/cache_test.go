package save

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordCache(t *testing.T) {
	c := newRecordCache()
	a, b := &note{}, &note{}

	c.put("b", b)
	c.put("a", a)
	c.put("a", b)

	if c.get("a") != b {
		t.Error("put did not overwrite")
	}
	if diff := cmp.Diff([]string{"a", "b"}, c.slots()); diff != "" {
		t.Errorf("slots() mismatch (-want +got):\n%s", diff)
	}
	if !c.remove("a") || c.remove("a") {
		t.Error("remove should report presence once")
	}
	if c.len() != 1 {
		t.Errorf("len() = %d, want 1", c.len())
	}
	c.clear()
	if c.get("b") != nil {
		t.Error("clear kept a record")
	}
}

func TestPendingTracker(t *testing.T) {
	log, logs := newObservedLogger()
	p := newPendingTracker(log, "test")

	p.beginLoad("a")
	p.beginSave("b")
	if !p.isLoading("a") || p.isSaving("a") || !p.isSaving("b") {
		t.Error("wrong pending state")
	}
	if !p.anyLoading() || !p.anySaving() {
		t.Error("any queries wrong")
	}
	p.endLoad("a")
	p.endSave("b")
	if p.anyLoading() || p.anySaving() {
		t.Error("sets not cleared")
	}
	if got := logs.FilterMessage("start loading slot").Len(); got != 1 {
		t.Errorf("logged %d load starts, want 1", got)
	}
}
