package routine

import "fmt"

// ErrPanicked is wrapped by errors built from a recovered panic
var ErrPanicked = fmt.Errorf("routine: panic recovered")

// ErrPanic turns a recovered panic value into an error. A recovered error
// stays reachable through errors.Is and errors.As.
func ErrPanic(recovered any) error {
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanicked, err)
	}
	return fmt.Errorf("%w: %v", ErrPanicked, recovered)
}
