package app

import (
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/settings"
	"github.com/dailyyoga/savekit/storage"
	"github.com/dailyyoga/savekit/storage/filestore"
	"github.com/dailyyoga/savekit/storage/mysqlstore"
	"github.com/dailyyoga/savekit/storage/sqlitestore"
)

// OpenStore opens the blob store selected by cfg.Driver.
func OpenStore(log logger.Logger, cfg *settings.Storage) (storage.BlobStore, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig("storage settings are required")
	}

	var (
		store storage.BlobStore
		err   error
	)
	switch cfg.Driver {
	case settings.DriverMemory:
		store = storage.NewMemoryStore()
	case settings.DriverFile:
		store, err = filestore.Open(log, cfg.Path)
	case settings.DriverSQLite:
		store, err = sqlitestore.Open(log, cfg.Path)
	case settings.DriverMySQL:
		store, err = mysqlstore.Open(log, cfg.MySQL)
	default:
		return nil, ErrInvalidConfig("unknown storage driver " + cfg.Driver)
	}
	if err != nil {
		return nil, ErrOpenStore(cfg.Driver, err)
	}
	return store, nil
}
