// Package mysqlstore keeps slot blobs in a MySQL table through gorm.
package mysqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/storage"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// slotRow is one stored blob.
type slotRow struct {
	UserIndex int       `gorm:"column:user_index;primaryKey;autoIncrement:false"`
	Slot      string    `gorm:"column:slot;primaryKey;size:191"`
	Blob      []byte    `gorm:"column:blob;type:longblob;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// Store is a storage.BlobStore backed by MySQL.
type Store struct {
	logger logger.Logger
	db     *gorm.DB
	table  string
}

var _ storage.BlobStore = (*Store)(nil)

// Open connects to MySQL and, unless disabled, creates the slot table.
func Open(log logger.Logger, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		// merge default values for empty fields
		cfg = cfg.MergeDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := gorm.Open(mysql.Open(cfg.ConnString()), &gorm.Config{
		Logger:                                   newGormLogger(log, cfg),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb, err := db.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}

	// set connection pool settings
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// test connection
	if err := sqldb.Ping(); err != nil {
		return nil, ErrConnection(err)
	}

	s := &Store{logger: log, db: db, table: cfg.Table}
	if !cfg.SkipMigrate {
		if err := s.tx().AutoMigrate(&slotRow{}); err != nil {
			return nil, ErrMigrate(cfg.Table, err)
		}
	}

	log.Info("mysql store connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.String("table", cfg.Table),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		zap.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime),
	)
	return s, nil
}

// DB returns the gorm handle.
func (s *Store) DB() (*gorm.DB, error) {
	if s.db == nil {
		return nil, ErrConnectionNotEstablished
	}
	return s.db, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqldb, err := s.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.PingContext(ctx)
}

func (s *Store) Close() error {
	sqldb, err := s.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.Close()
}

func (s *Store) Exists(ctx context.Context, key storage.Key) (bool, error) {
	var count int64
	err := s.where(ctx, key).Count(&count).Error
	if err != nil {
		return false, storage.ErrRead(key, err)
	}
	return count > 0, nil
}

func (s *Store) Read(ctx context.Context, key storage.Key) ([]byte, error) {
	var row slotRow
	err := s.where(ctx, key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMissing(key)
	}
	if err != nil {
		return nil, storage.ErrRead(key, err)
	}
	return row.Blob, nil
}

func (s *Store) Write(ctx context.Context, key storage.Key, blob []byte) error {
	if key.Slot == "" {
		return storage.ErrInvalidSlot
	}
	row := slotRow{
		UserIndex: key.User,
		Slot:      key.Slot,
		Blob:      blob,
		UpdatedAt: time.Now().UTC(),
	}
	err := s.tx().WithContext(ctx).
		Clauses(clause.OnConflict{DoUpdates: clause.AssignmentColumns([]string{"blob", "updated_at"})}).
		Create(&row).Error
	if err != nil {
		return storage.ErrWrite(key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key storage.Key) error {
	res := s.where(ctx, key).Delete(&slotRow{})
	if res.Error != nil {
		return storage.ErrWrite(key, res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrMissing(key)
	}
	return nil
}

func (s *Store) List(ctx context.Context, user int) ([]string, error) {
	var slots []string
	err := s.tx().WithContext(ctx).
		Where("user_index = ?", user).
		Order("slot").
		Pluck("slot", &slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// tx starts a statement on the slot table.
func (s *Store) tx() *gorm.DB {
	return s.db.Table(s.table)
}

func (s *Store) where(ctx context.Context, key storage.Key) *gorm.DB {
	return s.tx().WithContext(ctx).Where("user_index = ? AND slot = ?", key.User, key.Slot)
}
