package eventlog

import "fmt"

var (
	// ErrClosed the sink is closed
	ErrClosed = fmt.Errorf("eventlog: sink is closed")
	// ErrQueueFull the event queue cannot take more rows
	ErrQueueFull = fmt.Errorf("eventlog: queue is full")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("eventlog: invalid config: %s", msg)
}

// ErrConnection ClickHouse connection error
func ErrConnection(err error) error {
	return fmt.Errorf("eventlog: connection failed: %w", err)
}

// ErrInsert batch insert error
func ErrInsert(table string, err error) error {
	return fmt.Errorf("eventlog: insert into %s failed: %w", table, err)
}
