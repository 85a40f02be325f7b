package logger

import "fmt"

// ErrInvalidConfig is wrapped by every configuration error
var ErrInvalidConfig = fmt.Errorf("logger: invalid config")

// ErrBuildLogger zap could not build the logger, usually an unwritable output path
func ErrBuildLogger(err error) error {
	return fmt.Errorf("logger: build failed: %w", err)
}

// ErrInvalidLevel unknown log level
func ErrInvalidLevel(level string, err error) error {
	return fmt.Errorf("%w: level %q: %v", ErrInvalidConfig, level, err)
}

// ErrInvalidEncoding unknown encoder
func ErrInvalidEncoding(encoding string) error {
	return fmt.Errorf("%w: encoding %q must be json or console", ErrInvalidConfig, encoding)
}

// ErrInvalidOutput empty output path
func ErrInvalidOutput(field string) error {
	return fmt.Errorf("%w: %s contains an empty path", ErrInvalidConfig, field)
}
