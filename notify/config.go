package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Config is the configuration for save event publishing and invalidation
// listening. Either side may be disabled by leaving its topic empty.
type Config struct {
	// Brokers is the kafka cluster shared by both sides
	Brokers []string `mapstructure:"brokers" json:"brokers" env:"BROKERS" envSeparator:","`
	// EventsTopic receives slot events, empty disables publishing
	EventsTopic string `mapstructure:"events_topic" json:"events_topic" env:"EVENTS_TOPIC"`
	// InvalidationTopic is consumed for slot invalidations, empty disables listening
	InvalidationTopic string `mapstructure:"invalidation_topic" json:"invalidation_topic" env:"INVALIDATION_TOPIC"`
	// GroupID of the invalidation consumer
	// default: "savekit"
	GroupID string `mapstructure:"group_id" json:"group_id" env:"GROUP_ID"`
	// SkipClusterCheck disables the metadata round trip done before connecting
	SkipClusterCheck bool `mapstructure:"skip_cluster_check" json:"skip_cluster_check"`

	Producer *ProducerConfig `mapstructure:"producer" json:"producer"`
	Consumer *ConsumerConfig `mapstructure:"consumer" json:"consumer"`
}

// DefaultConfig returns the default notify configuration
func DefaultConfig() *Config {
	return &Config{
		GroupID:  "savekit",
		Producer: DefaultProducerConfig(),
		Consumer: DefaultConsumerConfig(),
	}
}

// Enabled reports whether any side is configured.
func (c *Config) Enabled() bool {
	return c.EventsTopic != "" || c.InvalidationTopic != ""
}

// MergeDefaults fills empty fields with their default values
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.GroupID == "" {
		c.GroupID = defaults.GroupID
	}
	if c.Producer == nil {
		c.Producer = defaults.Producer
	} else {
		c.Producer.mergeDefaults()
	}
	if c.Consumer == nil {
		c.Consumer = defaults.Consumer
	} else {
		c.Consumer.mergeDefaults()
	}
	c.Producer.Brokers = c.Brokers
	c.Consumer.Brokers = c.Brokers
	c.Consumer.GroupID = c.GroupID
	if c.InvalidationTopic != "" {
		c.Consumer.Topics = []string{c.InvalidationTopic}
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if len(c.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if c.EventsTopic != "" {
		if err := c.Producer.Validate(); err != nil {
			return err
		}
	}
	if c.InvalidationTopic != "" {
		if err := c.Consumer.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ConsumerConfig is the configuration for kafka consumer
type ConsumerConfig struct {
	// filled from Config
	Brokers []string `mapstructure:"-" json:"-"`
	GroupID string   `mapstructure:"-" json:"-"`
	Topics  []string `mapstructure:"-" json:"-"`

	// Max retries of the handler for one message
	// default: 3
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`

	// Auto offset reset policy: "earliest" or "latest"
	// - earliest: start from the beginning if no offset is committed
	// - latest: start from the end if no offset is committed
	// default: "latest"
	AutoOffsetReset string `mapstructure:"auto_offset_reset" json:"auto_offset_reset"`

	// Enable auto commit of offsets
	// default: false
	EnableAutoCommit bool `mapstructure:"enable_auto_commit" json:"enable_auto_commit"`

	// Auto commit interval (only used when EnableAutoCommit is true)
	// default: 5s
	AutoCommitInterval time.Duration `mapstructure:"auto_commit_interval" json:"auto_commit_interval"`

	// Session timeout
	// default: 30s
	SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout"`

	// Max poll interval - maximum time between two polls
	// default: 120s
	MaxPollInterval time.Duration `mapstructure:"max_poll_interval" json:"max_poll_interval"`

	// PollTimeout bounds one poll so the loop notices cancellation
	// default: 500ms
	PollTimeout time.Duration `mapstructure:"poll_timeout" json:"poll_timeout"`

	// Security protocol: "PLAINTEXT", "SASL_PLAINTEXT", "SASL_SSL"
	// only support PLAINTEXT for now
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol" json:"security_protocol"`

	// Debug Model - enable consumer debug logs
	Debug bool `mapstructure:"debug" json:"debug"`
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		MaxRetries:         3,
		AutoOffsetReset:    "latest",
		AutoCommitInterval: 5 * time.Second,
		SessionTimeout:     30 * time.Second,
		MaxPollInterval:    120 * time.Second,
		PollTimeout:        500 * time.Millisecond,
		SecurityProtocol:   "PLAINTEXT",
	}
}

func (c *ConsumerConfig) mergeDefaults() {
	d := DefaultConsumerConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = d.AutoOffsetReset
	}
	if c.AutoCommitInterval == 0 {
		c.AutoCommitInterval = d.AutoCommitInterval
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.MaxPollInterval == 0 {
		c.MaxPollInterval = d.MaxPollInterval
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.SecurityProtocol == "" {
		c.SecurityProtocol = d.SecurityProtocol
	}
}

func (c *ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if c.GroupID == "" {
		return ErrInvalidConfig("group_id is required")
	}
	if len(c.Topics) == 0 {
		return ErrInvalidConfig("topics are required")
	}

	if c.AutoOffsetReset != "earliest" && c.AutoOffsetReset != "latest" {
		return ErrInvalidConfig(
			fmt.Sprintf("invalid auto_offset_reset: %s, must be either 'earliest' or 'latest'", c.AutoOffsetReset),
		)
	}

	if c.EnableAutoCommit && c.AutoCommitInterval <= 0 {
		return ErrInvalidConfig("auto_commit_interval must be greater than 0 when enable_auto_commit is true")
	}

	if c.SessionTimeout <= 0 {
		return ErrInvalidConfig("session_timeout must be greater than 0")
	}

	if c.MaxPollInterval <= 0 {
		return ErrInvalidConfig("max_poll_interval must be greater than 0")
	}

	return nil
}

func (c *ConsumerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":    strings.Join(c.Brokers, ","),
		"group.id":             c.GroupID,
		"auto.offset.reset":    strings.ToLower(c.AutoOffsetReset), // latest, earliest
		"enable.auto.commit":   c.EnableAutoCommit,
		"session.timeout.ms":   int(c.SessionTimeout.Milliseconds()),
		"max.poll.interval.ms": int(c.MaxPollInterval.Milliseconds()),
		"security.protocol":    c.SecurityProtocol,
	}

	if c.EnableAutoCommit {
		_ = configMap.SetKey("auto.commit.interval.ms", int(c.AutoCommitInterval.Milliseconds()))
	}

	if c.Debug {
		_ = configMap.SetKey("debug", "consumer,cgrp,topic,fetch")
	}

	return configMap
}

// ProducerConfig is the configuration for kafka producer
type ProducerConfig struct {
	// filled from Config
	Brokers []string `mapstructure:"-" json:"-"`

	// Optional: kafka client id, shown in broker logs and metrics
	ClientID string `mapstructure:"client_id" json:"client_id"`

	// Acks: "all", "1" or "0"
	// default: "all"
	Acks string `mapstructure:"acks" json:"acks"`

	// Compression: none, gzip, snappy, lz4, zstd
	// default: "none"
	Compression string `mapstructure:"compression" json:"compression"`

	// LingerMs batch sending wait time (milliseconds).
	// Slot events are small and bursty around autosave, a few ms batches them well.
	// default: 5
	LingerMs int `mapstructure:"linger_ms" json:"linger_ms"`

	// Batch size maximum bytes to send
	// default: 100KB
	BatchSize int `mapstructure:"batch_size" json:"batch_size"`

	// Security protocol: "PLAINTEXT", "SASL_PLAINTEXT", "SASL_SSL"
	// only support PLAINTEXT for now
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol" json:"security_protocol"`

	// Max retries for kafka producer
	// default: 3
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`

	// FlushTimeout bounds waiting for queued messages on Close
	// default: 10s
	FlushTimeout time.Duration `mapstructure:"flush_timeout" json:"flush_timeout"`
}

func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Acks:             "all",
		Compression:      "none",
		LingerMs:         5,
		BatchSize:        100 * 1024, // 100KB
		SecurityProtocol: "PLAINTEXT",
		MaxRetries:       3,
		FlushTimeout:     10 * time.Second,
	}
}

func (p *ProducerConfig) mergeDefaults() {
	d := DefaultProducerConfig()
	if p.Acks == "" {
		p.Acks = d.Acks
	}
	if p.Compression == "" {
		p.Compression = d.Compression
	}
	if p.BatchSize == 0 {
		p.BatchSize = d.BatchSize
	}
	if p.SecurityProtocol == "" {
		p.SecurityProtocol = d.SecurityProtocol
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.FlushTimeout == 0 {
		p.FlushTimeout = d.FlushTimeout
	}
}

func (p *ProducerConfig) Validate() error {
	if len(p.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	switch strings.ToLower(p.Acks) {
	case "all", "-1", "0", "1":
	default:
		return ErrInvalidConfig(fmt.Sprintf("invalid acks: %s", p.Acks))
	}
	return nil
}

func (p *ProducerConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(p.Brokers, ","),
		"compression.type":  strings.ToLower(p.Compression),
		"acks":              strings.ToLower(p.Acks),
		"linger.ms":         p.LingerMs,
		"batch.size":        p.BatchSize,
		"retries":           p.MaxRetries,
		"security.protocol": p.SecurityProtocol,
	}

	if p.ClientID != "" {
		_ = configMap.SetKey("client.id", p.ClientID)
	}

	return configMap
}
