package save

import "time"

// EventKind tells what happened to a slot.
type EventKind string

const (
	EventLoaded     EventKind = "loaded"
	EventCreated    EventKind = "created"
	EventSaved      EventKind = "saved"
	EventSaveFailed EventKind = "save_failed"
	EventReleased   EventKind = "released"
)

// Event describes a change to a cached slot.
type Event struct {
	Kind      EventKind `json:"kind"`
	Subsystem string    `json:"subsystem"`
	UserIndex int       `json:"user_index"`
	Slot      string    `json:"slot"`
	Type      string    `json:"type,omitempty"`
	Request   int       `json:"request,omitempty"`
	Version   int       `json:"version"`
	At        time.Time `json:"at"`
}

// Observer receives events on the owner goroutine. Implementations must not
// block; hand slow work to another goroutine.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// Observers fans each event out to every observer in order.
type Observers []Observer

func (o Observers) Observe(ev Event) {
	for _, obs := range o {
		obs.Observe(ev)
	}
}
