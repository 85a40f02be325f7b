package app

import "fmt"

var (
	// ErrAlreadyStarted Start was called twice
	ErrAlreadyStarted = fmt.Errorf("app: already started")
	// ErrNotStarted the app has not been started
	ErrNotStarted = fmt.Errorf("app: not started")
	// ErrUnknownSubsystem no subsystem with that name
	ErrUnknownSubsystem = fmt.Errorf("app: unknown subsystem")
)

// ErrInvalidConfig app configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("app: invalid config: %s", msg)
}

// ErrOpenStore blob store open error
func ErrOpenStore(driver string, err error) error {
	return fmt.Errorf("app: open %s store: %w", driver, err)
}

// ErrComponent wraps the failure of one component during startup
func ErrComponent(name string, err error) error {
	return fmt.Errorf("app: %s: %w", name, err)
}
