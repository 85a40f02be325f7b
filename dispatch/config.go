package dispatch

// Config is the configuration for a Loop
type Config struct {
	// Name identifies the loop in logs
	// default: "owner"
	Name string `mapstructure:"name" json:"name"`
	// QueueCapacity is the initial capacity of the mailbox, it grows as needed
	// default: 64
	QueueCapacity int `mapstructure:"queue_capacity" json:"queue_capacity"`
}

// DefaultConfig returns the default configuration for a Loop
func DefaultConfig() *Config {
	return &Config{
		Name:          "owner",
		QueueCapacity: 64,
	}
}

// MergeDefaults fills empty fields with their default values
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = defaults.QueueCapacity
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.QueueCapacity < 0 {
		return ErrInvalidConfig("queue_capacity cannot be negative")
	}
	return nil
}
