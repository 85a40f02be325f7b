package save

import "fmt"

// Scope selects whose records a Subsystem holds.
type Scope string

const (
	// ScopeProcess holds records shared by the whole process, stored under user index 0.
	ScopeProcess Scope = "process"
	// ScopeUser holds records of one local user, stored under that user's index.
	ScopeUser Scope = "user"
)

// Config is the configuration for a Subsystem
type Config struct {
	// Name identifies the subsystem in logs and events
	// default: "global"
	Name string `mapstructure:"name" json:"name"`
	// Scope is "process" or "user"
	// default: "process"
	Scope Scope `mapstructure:"scope" json:"scope"`
	// UserIndex is the storage user index, must be 0 for process scope
	UserIndex int `mapstructure:"user_index" json:"user_index"`
}

// DefaultConfig returns the default configuration for a Subsystem
func DefaultConfig() *Config {
	return &Config{
		Name:  "global",
		Scope: ScopeProcess,
	}
}

// MergeDefaults fills empty fields with their default values
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.Scope == "" {
		c.Scope = defaults.Scope
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrInvalidConfig("name is required")
	}
	switch c.Scope {
	case ScopeProcess:
		if c.UserIndex != 0 {
			return ErrInvalidConfig("user_index must be 0 for process scope")
		}
	case ScopeUser:
		if c.UserIndex < 0 {
			return ErrInvalidConfig(fmt.Sprintf("user_index %d must be >= 0", c.UserIndex))
		}
	default:
		return ErrInvalidConfig(fmt.Sprintf("scope %q must be one of: process, user", c.Scope))
	}
	return nil
}

// AutoLoad names a record to warm up when a Subsystem initializes.
type AutoLoad struct {
	Type Type
	Slot string
}
