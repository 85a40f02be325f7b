package save

// Type describes a kind of Record: how to build a fresh one, how to
// recognize one, and which slot it prefers.
type Type interface {
	// Name is the stable tag written next to every encoded record.
	Name() string
	// DefaultSlot, when non-empty, overrides any slot name a caller passes.
	DefaultSlot() string
	// New fabricates a record with default field values.
	New() Record
	// Is reports whether obj is a record of this type.
	Is(obj any) bool
}

// TypeOption configures a Type built by NewType.
type TypeOption func(*typeOptions)

type typeOptions struct {
	defaultSlot string
}

// WithDefaultSlot pins every record of the type to a single slot.
func WithDefaultSlot(slot string) TypeOption {
	return func(o *typeOptions) {
		o.defaultSlot = slot
	}
}

type recordType[T Record] struct {
	name        string
	defaultSlot string
	newFn       func() T
}

// NewType declares a record type backed by the concrete Go type T.
func NewType[T Record](name string, newFn func() T, opts ...TypeOption) Type {
	var o typeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &recordType[T]{
		name:        name,
		defaultSlot: o.defaultSlot,
		newFn:       newFn,
	}
}

func (t *recordType[T]) Name() string        { return t.name }
func (t *recordType[T]) DefaultSlot() string { return t.defaultSlot }
func (t *recordType[T]) New() Record         { return t.newFn() }

func (t *recordType[T]) Is(obj any) bool {
	_, ok := obj.(T)
	return ok
}

// typeName tolerates nil types in log fields and events.
func typeName(t Type) string {
	if t == nil {
		return ""
	}
	return t.Name()
}
