package save

import "context"

// ActiveAs returns the cached record of slot as T.
func ActiveAs[T Record](s *Subsystem, slot string) (T, bool) {
	return as[T](s.Active(slot))
}

// GetAs is Get with the result asserted to T.
func GetAs[T Record](ctx context.Context, s *Subsystem, t Type, slot string, loadIfAbsent bool) (T, bool) {
	return as[T](s.Get(ctx, t, slot, loadIfAbsent))
}

// SyncLoadAs is SyncLoad with the result asserted to T.
func SyncLoadAs[T Record](ctx context.Context, s *Subsystem, t Type, slot string, force bool) (T, bool) {
	return as[T](s.SyncLoad(ctx, t, slot, force))
}

// CreateAs is Create with the result asserted to T.
func CreateAs[T Record](s *Subsystem, t Type, slot string) (T, bool) {
	return as[T](s.Create(t, slot))
}

// GetDefault returns the record living in the default slot of t, loading it
// when it is not cached yet. t must declare a default slot.
func GetDefault[T Record](ctx context.Context, s *Subsystem, t Type) (T, bool) {
	return GetAs[T](ctx, s, t, "", true)
}

func as[T Record](rec Record) (T, bool) {
	var zero T
	if rec == nil {
		return zero, false
	}
	v, ok := rec.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
