package notify

import "fmt"

var (
	// ErrClosed the producer or consumer is closed
	ErrClosed = fmt.Errorf("notify: closed")
	// ErrUnknownSubsystem an invalidation names a subsystem that is not registered
	ErrUnknownSubsystem = fmt.Errorf("notify: unknown subsystem")
	// ErrInvalidMessage an invalidation message cannot be parsed
	ErrInvalidMessage = fmt.Errorf("notify: invalid message")
)

// ErrInvalidConfig Kafka configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("notify: invalid config: %s", msg)
}

// ErrConnection Kafka connection error
func ErrConnection(err error) error {
	return fmt.Errorf("notify: connection failed: %w", err)
}

// ErrSubscribe subscribe error
func ErrSubscribe(topics []string, err error) error {
	return fmt.Errorf("notify: subscribe to topics %v failed: %w", topics, err)
}

// ErrConsume consume message error
func ErrConsume(err error) error {
	return fmt.Errorf("notify: consume message failed: %w", err)
}

// ErrCommit commit message error
func ErrCommit(err error) error {
	return fmt.Errorf("notify: commit offsets failed: %w", err)
}

// ErrUnknownType an invalidation names a record type that is not registered
func ErrUnknownType(name string) error {
	return fmt.Errorf("%w: unknown record type %q", ErrInvalidMessage, name)
}

// ErrPublish event publish error
func ErrPublish(err error) error {
	return fmt.Errorf("notify: publish event failed: %w", err)
}
