package mysqlstore

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config is the configuration of the MySQL slot store. Either DSN or the
// connection fields must be set.
type Config struct {
	// DSN, when set, is used verbatim instead of the connection fields below
	DSN  string `mapstructure:"dsn" json:"dsn" env:"DSN"`
	Host string `mapstructure:"host" json:"host" env:"HOST"`
	// default: 3306
	Port     int    `mapstructure:"port" json:"port" env:"PORT"`
	User     string `mapstructure:"user" json:"user" env:"USER"`
	Password string `mapstructure:"password" json:"password" env:"PASSWORD"`
	Database string `mapstructure:"database" json:"database" env:"DATABASE"`
	// Table holds one row per slot
	// default: "save_slots"
	Table string `mapstructure:"table" json:"table" env:"TABLE"`
	// SkipMigrate disables creating the slot table on open
	SkipMigrate bool `mapstructure:"skip_migrate" json:"skip_migrate" env:"SKIP_MIGRATE"`
	// pool limits
	// default: 25
	MaxOpenConns int `mapstructure:"max_open_conns" json:"max_open_conns"`
	// default: 10
	MaxIdleConns int `mapstructure:"max_idle_conns" json:"max_idle_conns"`
	// default: 30m
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" json:"conn_max_lifetime"`
	// default: 10m
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" json:"conn_max_idle_time"`
	// LogLevel is the gorm log level: silent, error, warn or info
	// default: "warn"
	LogLevel string `mapstructure:"log_level" json:"log_level" env:"LOG_LEVEL"`
	// SlowThreshold logs slot queries slower than this at warn level
	// default: 1s
	SlowThreshold time.Duration `mapstructure:"slow_threshold" json:"slow_threshold"`
	// default: "utf8mb4"
	Charset string `mapstructure:"charset" json:"charset"`
	// default: "Local"
	Loc string `mapstructure:"loc" json:"loc"`
}

// ConnString returns the DSN handed to the MySQL driver.
func (c *Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
		c.Charset, c.Loc,
	)
}

// DefaultConfig returns the default configuration for the store
func DefaultConfig() *Config {
	return &Config{
		Port:            3306,
		Table:           "save_slots",
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
		LogLevel:        "warn",
		SlowThreshold:   time.Second,
		Charset:         "utf8mb4",
		Loc:             "Local",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DSN == "" {
		if c.Host == "" {
			return ErrInvalidConfig("host is required")
		}
		if c.Port <= 0 {
			return ErrInvalidConfig("port is required")
		}
		if c.User == "" {
			return ErrInvalidConfig("user is required")
		}
		if c.Password == "" {
			return ErrInvalidConfig("password is required")
		}
		if c.Database == "" {
			return ErrInvalidConfig("database is required")
		}
	}
	if !tableName.MatchString(c.Table) {
		return ErrInvalidConfig(fmt.Sprintf("table %q is not a valid identifier", c.Table))
	}

	if _, ok := gormLevels[strings.ToLower(c.LogLevel)]; !ok {
		return ErrInvalidConfig(fmt.Sprintf("log_level %q must be one of: silent, error, warn, info", c.LogLevel))
	}
	if c.SlowThreshold < 0 {
		return ErrInvalidConfig("slow_threshold cannot be negative")
	}
	return nil
}

// MergeDefaults fills empty fields with their default values
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.Table == "" {
		c.Table = defaults.Table
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaults.MaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.SlowThreshold == 0 {
		c.SlowThreshold = defaults.SlowThreshold
	}
	if c.Charset == "" {
		c.Charset = defaults.Charset
	}
	if c.Loc == "" {
		c.Loc = defaults.Loc
	}
	return c
}
