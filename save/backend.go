package save

import "context"

// Backend is the durable, slot-addressed store a Subsystem reads and writes.
//
// Synchronous methods block until storage answers. Asynchronous methods
// return immediately and must invoke done exactly once, on the Subsystem's
// owner goroutine.
type Backend interface {
	Exists(ctx context.Context, userIndex int, slot string) (bool, error)
	// Load returns the decoded object stored in slot. The object is not
	// guaranteed to be a Record of the expected type.
	Load(ctx context.Context, userIndex int, slot string) (any, error)
	LoadAsync(userIndex int, slot string, done func(obj any, err error))
	Save(ctx context.Context, userIndex int, slot string, rec Record) error
	SaveAsync(userIndex int, slot string, rec Record, done func(err error))
	// Fabricate builds a default record for t, or nil when t is nil.
	Fabricate(t Type) Record
}
