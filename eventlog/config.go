package eventlog

import (
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config is the configuration of the ClickHouse event log. It is disabled
// while Hosts is empty.
type Config struct {
	// clickhouse connection config
	Hosts       []string      `mapstructure:"hosts" json:"hosts" env:"HOSTS" envSeparator:","`
	Database    string        `mapstructure:"database" json:"database" env:"DATABASE"`
	Username    string        `mapstructure:"username" json:"username" env:"USERNAME"`
	Password    string        `mapstructure:"password" json:"password" env:"PASSWORD"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
	Debug       bool          `mapstructure:"debug" json:"debug"`
	// clickhouse settings (https://clickhouse.com/docs/operations/settings/settings)
	Settings clickhouse.Settings `mapstructure:"settings" json:"settings"`

	// Table receives one row per slot event
	// default: "save_events"
	Table string `mapstructure:"table" json:"table" env:"TABLE"`
	// CreateTable creates the table on connect when it does not exist
	CreateTable bool `mapstructure:"create_table" json:"create_table"`

	// QueueSize bounds the rows waiting to be flushed; events beyond it are dropped
	// default: 10000
	QueueSize int `mapstructure:"queue_size" json:"queue_size"`
	// FlushInterval is how often buffered rows are considered for a flush
	// default: 10s
	FlushInterval time.Duration `mapstructure:"flush_interval" json:"flush_interval"`
	// FlushSize flushes as soon as this many rows are buffered
	// default: 1000
	FlushSize int `mapstructure:"flush_size" json:"flush_size"`
	// MinFlushSize is the minimum batch size for time-triggered flush.
	// Set to 0 to flush on every interval.
	// default: 100
	MinFlushSize int `mapstructure:"min_flush_size" json:"min_flush_size"`
	// MaxWaitTime forces a time-triggered flush below MinFlushSize once the
	// oldest buffered row is this old. Set to 0 to wait for MinFlushSize.
	// default: 60s
	MaxWaitTime time.Duration `mapstructure:"max_wait_time" json:"max_wait_time"`
}

// DefaultConfig returns the default event log configuration
func DefaultConfig() *Config {
	return &Config{
		Database:      "default",
		DialTimeout:   10 * time.Second,
		Table:         "save_events",
		QueueSize:     10000,
		FlushInterval: 10 * time.Second,
		FlushSize:     1000,
		MinFlushSize:  100,
		MaxWaitTime:   60 * time.Second,
	}
}

// Enabled reports whether hosts are configured.
func (c *Config) Enabled() bool {
	return len(c.Hosts) > 0
}

// MergeDefaults fills empty fields with their default values
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Database == "" {
		c.Database = defaults.Database
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.Table == "" {
		c.Table = defaults.Table
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaults.QueueSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = defaults.FlushInterval
	}
	if c.FlushSize == 0 {
		c.FlushSize = defaults.FlushSize
	}
	return c
}

// Validate validates the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Username == "" {
		return ErrInvalidConfig("username is required")
	}
	if !tableName.MatchString(c.Table) {
		return ErrInvalidConfig("table must be a plain identifier")
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig("queue_size must be greater than 0")
	}
	if c.FlushInterval <= 0 {
		return ErrInvalidConfig("flush_interval must be greater than 0")
	}
	if c.FlushSize <= 0 {
		return ErrInvalidConfig("flush_size must be greater than 0")
	}
	if c.MinFlushSize < 0 {
		return ErrInvalidConfig("min_flush_size cannot be negative")
	}
	if c.MinFlushSize > c.FlushSize {
		return ErrInvalidConfig("min_flush_size cannot be greater than flush_size")
	}
	if c.MaxWaitTime < 0 {
		return ErrInvalidConfig("max_wait_time cannot be negative")
	}
	return nil
}
