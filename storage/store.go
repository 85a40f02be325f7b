// Package storage implements save.Backend on top of slot-addressed blob
// stores.
//
// A BlobStore only moves bytes. The Backend adapter encodes records with a
// codec.Codec, runs asynchronous reads and writes on worker goroutines and
// hands every completion to a dispatch.Dispatcher so it reaches the
// subsystem's owner goroutine.
package storage

import (
	"context"
	"strconv"
)

// Key addresses one blob.
type Key struct {
	User int
	Slot string
}

func (k Key) String() string {
	return strconv.Itoa(k.User) + "/" + k.Slot
}

// BlobStore is a durable map from Key to bytes. Implementations must be safe
// for concurrent use.
type BlobStore interface {
	Exists(ctx context.Context, key Key) (bool, error)
	// Read returns an error matching ErrNotFound when the blob is absent.
	Read(ctx context.Context, key Key) ([]byte, error)
	// Write replaces the blob atomically.
	Write(ctx context.Context, key Key, blob []byte) error
	// Delete returns an error matching ErrNotFound when the blob is absent.
	Delete(ctx context.Context, key Key) error
	// List returns the slot names stored for user in sorted order.
	List(ctx context.Context, user int) ([]string, error)
	Close() error
}
