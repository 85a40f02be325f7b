// Package notify connects save subsystems to kafka.
//
// A Publisher is a save.Observer that emits one message per slot event
// (loaded, created, saved, save_failed, released). A Listener consumes slot
// invalidations, typically produced by an admin tool or another process that
// rewrote a blob, and releases or reloads the cached record on the owning
// subsystem's goroutine.
package notify

import (
	"context"
	"time"
)

// Message is a kafka record as seen by publishers and handlers.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one consumed message. A returned error is retried up to
// the consumer's MaxRetries before the message is skipped.
type Handler func(ctx context.Context, msg *Message) error

// Consumer delivers messages from the configured topics to a Handler.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Close() error
}

// Producer enqueues messages. Delivery is asynchronous; failures are logged.
type Producer interface {
	Produce(ctx context.Context, msg *Message) error
	Close() error
}
