package autosave

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config is the configuration of one subsystem's autosave chain
type Config struct {
	// Spec is the cron spec, seconds field included
	// default: "@every 5m"
	Spec string `mapstructure:"spec" json:"spec" env:"SPEC"`
	// Timeout bounds one run of the chain, including waiting for completions
	// default: 30s
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" env:"TIMEOUT"`
	// Reload, when set, reloads every cached slot after saving it
	Reload bool `mapstructure:"reload" json:"reload" env:"RELOAD"`
}

// DefaultConfig returns the default autosave configuration
func DefaultConfig() *Config {
	return &Config{
		Spec:    "@every 5m",
		Timeout: 30 * time.Second,
	}
}

// MergeDefaults fills empty fields with their default values
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Spec == "" {
		c.Spec = defaults.Spec
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := parser.Parse(c.Spec); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSpec, c.Spec, err)
	}
	if c.Timeout < 0 {
		return ErrInvalidConfig("timeout cannot be negative")
	}
	return nil
}

// parser accepts the same specs as the scheduler
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)
