package mysqlstore

import "fmt"

var (
	// ErrConnectionNotEstablished database connection not established
	ErrConnectionNotEstablished = fmt.Errorf("mysqlstore: database connection not established")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("mysqlstore: invalid config: %s", msg)
}

// ErrConnection database connection error
func ErrConnection(err error) error {
	return fmt.Errorf("mysqlstore: connection failed: %w", err)
}

// ErrMigrate slot table migration error
func ErrMigrate(table string, err error) error {
	return fmt.Errorf("mysqlstore: migrate table %s failed: %w", table, err)
}
