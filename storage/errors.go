package storage

import "fmt"

type notFoundError struct{}

func (notFoundError) Error() string  { return "storage: blob not found" }
func (notFoundError) NotFound() bool { return true }

var (
	// ErrNotFound is matched by errors reporting an absent blob
	ErrNotFound error = notFoundError{}
	// ErrClosed is returned once the backend is closed
	ErrClosed = fmt.Errorf("storage: backend closed")
	// ErrInvalidSlot is returned for slot names a store cannot address
	ErrInvalidSlot = fmt.Errorf("storage: invalid slot name")
)

// ErrMissing returns an ErrNotFound error naming key
func ErrMissing(key Key) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

// ErrInvalidConfig returns an error for an invalid storage configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("storage: invalid config: %s", msg)
}

// ErrRead wraps a failed blob read
func ErrRead(key Key, err error) error {
	return fmt.Errorf("storage: read %s failed: %w", key, err)
}

// ErrWrite wraps a failed blob write
func ErrWrite(key Key, err error) error {
	return fmt.Errorf("storage: write %s failed: %w", key, err)
}
