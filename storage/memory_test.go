package storage_test

import (
	"testing"

	"github.com/dailyyoga/savekit/storage"
	"github.com/dailyyoga/savekit/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.BlobStore {
		return storage.NewMemoryStore()
	})
}
