package save

import "fmt"

var (
	// ErrNoSlot is logged when neither the type nor the caller names a slot
	ErrNoSlot = fmt.Errorf("save: no valid slot name")
	// ErrNotLoaded is logged when a save targets a slot with no cached record
	ErrNotLoaded = fmt.Errorf("save: record not loaded")
	// ErrInvalidRecord is logged when storage returns an object of the wrong type
	ErrInvalidRecord = fmt.Errorf("save: invalid record in slot")
	// ErrFabricate is logged when no default record can be built for a type
	ErrFabricate = fmt.Errorf("save: cannot fabricate record")
	// ErrCounterRegressed is logged when a save completion does not advance its counter
	ErrCounterRegressed = fmt.Errorf("save: save request counter regressed")
	// ErrClosed is logged when a completion arrives after the subsystem closed
	ErrClosed = fmt.Errorf("save: subsystem closed")
)

// ErrInvalidConfig returns an error for an invalid subsystem configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("save: invalid config: %s", msg)
}

// ErrOutOfOrder returns an ErrCounterRegressed error for a save completion
// whose request is not newer than the last one with the same outcome
func ErrOutOfOrder(outcome string, request, last int) error {
	return fmt.Errorf("%w: request %d, last %s %d", ErrCounterRegressed, request, outcome, last)
}

// ErrStorage wraps an error reported by the storage backend
func ErrStorage(op string, err error) error {
	return fmt.Errorf("save: storage %s failed: %w", op, err)
}
