package storage

import "time"

// Config is the configuration for the Backend adapter
type Config struct {
	// Workers bounds concurrent asynchronous reads and writes
	// default: 4
	Workers int `mapstructure:"workers" json:"workers" env:"WORKERS"`
	// IOTimeout bounds every blob operation started by the adapter
	// default: 10s
	IOTimeout time.Duration `mapstructure:"io_timeout" json:"io_timeout" env:"IO_TIMEOUT"`
}

// DefaultConfig returns the default configuration for the Backend adapter
func DefaultConfig() *Config {
	return &Config{
		Workers:   4,
		IOTimeout: 10 * time.Second,
	}
}

// MergeDefaults fills empty fields with their default values
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Workers == 0 {
		c.Workers = defaults.Workers
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = defaults.IOTimeout
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return ErrInvalidConfig("workers cannot be negative")
	}
	if c.IOTimeout < 0 {
		return ErrInvalidConfig("io_timeout cannot be negative")
	}
	return nil
}
