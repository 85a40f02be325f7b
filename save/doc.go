// Package save keeps the single live in-memory Record for every save slot and
// orchestrates loading it from, and saving it back to, a slot-addressed
// storage Backend.
//
// # Overview
//
// A Subsystem owns three pieces of state:
//
//   - the record cache: resolved slot name -> live Record, unbounded, mutated
//     only through the Subsystem
//   - the pending-load set: slots with an in-flight asynchronous load
//   - the pending-save set: slots with an in-flight asynchronous save
//
// Every operation first resolves the caller's slot name against the record
// Type. A Type may declare a default slot, which always wins over the name
// supplied by the caller. An empty result is logged and turned into a nil or
// false return; operations never return Go errors and never panic.
//
// # Records
//
// Concrete records embed Header and may override the lifecycle hooks:
//
//	type Profile struct {
//		save.Header
//		Nickname string `msgpack:"nickname"`
//	}
//
//	func (p *Profile) LatestDataVersion() int { return 2 }
//	func (p *Profile) OnPostLoad()            { /* migrate old versions */ }
//
//	var ProfileType = save.NewType("profile", func() *Profile { return &Profile{} },
//		save.WithDefaultSlot("profile"))
//
// # Threading
//
// A Subsystem has a single owner goroutine. All methods, and all completion
// callbacks, run on that goroutine; the Backend is responsible for posting
// asynchronous completions back to it (see package dispatch). The pending sets
// are informational only: two overlapping loads of the same slot both run and
// the last completion wins the cache entry.
//
// Completions hold a weak reference to the Subsystem. Once the Subsystem is
// closed or collected a late completion is dropped without invoking the
// caller's callback.
package save
