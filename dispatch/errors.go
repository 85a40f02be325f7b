package dispatch

import "fmt"

var (
	// ErrClosed is returned when posting to a closed loop
	ErrClosed = fmt.Errorf("dispatch: loop closed")
	// ErrAlreadyRunning is returned when Run is called twice
	ErrAlreadyRunning = fmt.Errorf("dispatch: loop already running")
)

// ErrInvalidConfig returns an error for an invalid loop configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("dispatch: invalid config: %s", msg)
}
