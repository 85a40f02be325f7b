package autosave

import (
	"fmt"
	"strings"
)

var (
	// ErrNoTasks is returned when attempting to add a chain with no tasks
	ErrNoTasks = fmt.Errorf("autosave: no tasks provided")

	// ErrInvalidSpec is returned when a cron spec string is invalid
	ErrInvalidSpec = fmt.Errorf("autosave: invalid cron spec")

	// ErrClosed is returned when attempting to operate on a closed scheduler
	ErrClosed = fmt.Errorf("autosave: scheduler is closed")

	// ErrChainNotFound is returned by RunNow for an unknown chain
	ErrChainNotFound = fmt.Errorf("autosave: chain not found")

	// ErrDuplicateChain is returned when a chain name is registered twice
	ErrDuplicateChain = fmt.Errorf("autosave: chain already registered")
)

// ErrSlotsFailed returns an error naming the slots whose operation failed
func ErrSlotsFailed(op string, slots []string) error {
	return fmt.Errorf("autosave: %s failed for slots: %s", op, strings.Join(slots, ", "))
}

// ErrInvalidConfig returns an error for an invalid autosave configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("autosave: invalid config: %s", msg)
}
