package settings

import "fmt"

// ErrInvalidConfig settings validation error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("settings: invalid config: %s", msg)
}

// ErrRead settings file read error
func ErrRead(path string, err error) error {
	return fmt.Errorf("settings: read %s: %w", path, err)
}

// ErrParse settings content error
func ErrParse(err error) error {
	return fmt.Errorf("settings: parse: %w", err)
}

// ErrEnv environment override error
func ErrEnv(err error) error {
	return fmt.Errorf("settings: env: %w", err)
}

// ErrSection wraps a component validation error with the section it came from
func ErrSection(section string, err error) error {
	return fmt.Errorf("settings: %s: %w", section, err)
}
