package codec

import "fmt"

var (
	// ErrNilRecord is returned when encoding a nil record
	ErrNilRecord = fmt.Errorf("codec: nil record")
	// ErrInvalidType is returned when registering a nil or unnamed type
	ErrInvalidType = fmt.Errorf("codec: invalid record type")
)

// ErrDuplicateType returns an error for a type name registered twice
func ErrDuplicateType(name string) error {
	return fmt.Errorf("codec: type %q already registered", name)
}

// ErrUnregistered returns an error for a record whose type is not registered
func ErrUnregistered(rec any) error {
	return fmt.Errorf("codec: no registered type for %T", rec)
}

// ErrEncode wraps a marshal failure
func ErrEncode(typeName string, err error) error {
	return fmt.Errorf("codec: encode %s failed: %w", typeName, err)
}

type decodeError struct{ err error }

func (e decodeError) Error() string { return "codec: decode failed: " + e.err.Error() }
func (e decodeError) Unwrap() error { return e.err }
func (decodeError) Corrupt() bool   { return true }

// ErrDecode wraps an unmarshal failure. The result satisfies save.Corrupt.
func ErrDecode(err error) error {
	return decodeError{err: err}
}
