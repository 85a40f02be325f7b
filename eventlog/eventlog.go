// Package eventlog keeps an audit trail of slot events in ClickHouse.
//
// A Sink is a save.Observer. Observe only queues a row, so it is safe on the
// owner goroutine; a background loop batches rows and inserts them by size
// or on a timer.
package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/save"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Row is one slot event as stored in the table.
type Row struct {
	EventID   uuid.UUID
	Kind      string
	Subsystem string
	UserIndex int32
	Slot      string
	Type      string
	Request   int64
	Version   int32
	At        time.Time
}

func newRow(ev save.Event) Row {
	return Row{
		EventID:   uuid.New(),
		Kind:      string(ev.Kind),
		Subsystem: ev.Subsystem,
		UserIndex: int32(ev.UserIndex),
		Slot:      ev.Slot,
		Type:      ev.Type,
		Request:   int64(ev.Request),
		Version:   int32(ev.Version),
		At:        ev.At,
	}
}

// Inserter writes a batch of rows.
type Inserter interface {
	Insert(ctx context.Context, rows []Row) error
	Close() error
}

const createTable = "CREATE TABLE IF NOT EXISTS `%s` (" +
	"event_id UUID, " +
	"kind LowCardinality(String), " +
	"subsystem LowCardinality(String), " +
	"user_index Int32, " +
	"slot String, " +
	"type LowCardinality(String), " +
	"request Int64, " +
	"version Int32, " +
	"at DateTime64(3)" +
	") ENGINE = MergeTree ORDER BY (subsystem, user_index, slot, at)"

const insertRows = "INSERT INTO `%s` (event_id, kind, subsystem, user_index, slot, type, request, version, at)"

type clickhouseInserter struct {
	conn  driver.Conn
	table string
}

// Connect opens a ClickHouse connection and returns an Inserter for
// cfg.Table, creating the table first when cfg.CreateTable is set.
func Connect(log logger.Logger, cfg *Config) (Inserter, error) {
	if cfg == nil || !cfg.Enabled() {
		return nil, ErrInvalidConfig("hosts are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Hosts,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
		Debug:       cfg.Debug,
		Settings:    cfg.Settings,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, ErrConnection(err)
	}
	if cfg.CreateTable {
		if err := conn.Exec(ctx, fmt.Sprintf(createTable, cfg.Table)); err != nil {
			conn.Close()
			return nil, ErrConnection(err)
		}
	}

	log.Info("clickhouse event log connected",
		zap.Strings("hosts", cfg.Hosts),
		zap.String("database", cfg.Database),
		zap.String("table", cfg.Table),
	)
	return &clickhouseInserter{conn: conn, table: cfg.Table}, nil
}

func (c *clickhouseInserter) Insert(ctx context.Context, rows []Row) error {
	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(insertRows, c.table))
	if err != nil {
		return ErrInsert(c.table, err)
	}
	for _, r := range rows {
		if err := batch.Append(r.EventID, r.Kind, r.Subsystem, r.UserIndex, r.Slot, r.Type, r.Request, r.Version, r.At); err != nil {
			_ = batch.Abort()
			return ErrInsert(c.table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return ErrInsert(c.table, err)
	}
	return nil
}

func (c *clickhouseInserter) Close() error {
	return c.conn.Close()
}
