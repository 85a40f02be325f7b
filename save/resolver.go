package save

// Resolve returns the slot a record of type t lives in. The type's default
// slot always wins; otherwise the caller's slot is returned unchanged, which
// may be empty. An empty result means the slot could not be determined.
func Resolve(t Type, slot string) string {
	if t != nil {
		if fixed := t.DefaultSlot(); fixed != "" {
			return fixed
		}
	}
	return slot
}
