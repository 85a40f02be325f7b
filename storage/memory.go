package storage

import (
	"context"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore keeps blobs in process memory. It is meant for tests and tools.
type MemoryStore struct {
	blobs *xsync.MapOf[Key, []byte]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: xsync.NewMapOf[Key, []byte]()}
}

func (m *MemoryStore) Exists(ctx context.Context, key Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := m.blobs.Load(key)
	return ok, nil
}

func (m *MemoryStore) Read(ctx context.Context, key Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, ok := m.blobs.Load(key)
	if !ok {
		return nil, ErrMissing(key)
	}
	return slices.Clone(blob), nil
}

func (m *MemoryStore) Write(ctx context.Context, key Key, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key.Slot == "" {
		return ErrInvalidSlot
	}
	m.blobs.Store(key, slices.Clone(blob))
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := m.blobs.LoadAndDelete(key); !ok {
		return ErrMissing(key)
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, user int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var slots []string
	m.blobs.Range(func(key Key, _ []byte) bool {
		if key.User == user {
			slots = append(slots, key.Slot)
		}
		return true
	})
	slices.Sort(slots)
	return slots, nil
}

// Len reports how many blobs are stored.
func (m *MemoryStore) Len() int {
	return m.blobs.Size()
}

func (m *MemoryStore) Close() error { return nil }
