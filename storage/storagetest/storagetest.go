// Package storagetest holds the behavior every storage.BlobStore must share.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/dailyyoga/savekit/storage"
	"github.com/google/go-cmp/cmp"
)

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.BlobStore) {
	t.Run("missing blob", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := storage.Key{User: 0, Slot: "missing"}

		ok, err := s.Exists(ctx, key)
		if err != nil || ok {
			t.Errorf("Exists() = %v, %v, want false, nil", ok, err)
		}
		if _, err := s.Read(ctx, key); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Read() error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, key); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("write read overwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := storage.Key{User: 1, Slot: "profile"}

		if err := s.Write(ctx, key, []byte("v1")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if err := s.Write(ctx, key, []byte("v2")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		ok, err := s.Exists(ctx, key)
		if err != nil || !ok {
			t.Errorf("Exists() = %v, %v, want true, nil", ok, err)
		}
		got, err := s.Read(ctx, key)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if string(got) != "v2" {
			t.Errorf("Read() = %q, want v2", got)
		}
		if ok, _ := s.Exists(ctx, storage.Key{User: 2, Slot: "profile"}); ok {
			t.Error("blob leaked to another user")
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, slot := range []string{"b", "a", "c"} {
			if err := s.Write(ctx, storage.Key{User: 3, Slot: slot}, []byte(slot)); err != nil {
				t.Fatalf("Write(%s) error = %v", slot, err)
			}
		}
		if err := s.Write(ctx, storage.Key{User: 4, Slot: "z"}, []byte("z")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if err := s.Delete(ctx, storage.Key{User: 3, Slot: "b"}); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		slots, err := s.List(ctx, 3)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if diff := cmp.Diff([]string{"a", "c"}, slots); diff != "" {
			t.Errorf("List() mismatch (-want +got):\n%s", diff)
		}
		empty, err := s.List(ctx, 9)
		if err != nil || len(empty) != 0 {
			t.Errorf("List(empty user) = %v, %v", empty, err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.Write(ctx, storage.Key{Slot: "x"}, []byte("x")); err == nil {
			t.Error("Write() with cancelled context succeeded")
		}
	})
}
