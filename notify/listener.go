package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dailyyoga/savekit/dispatch"
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/save"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// TypeLookup resolves a record type by name, like codec.Registry.Lookup.
type TypeLookup func(name string) (save.Type, bool)

// Invalidation asks a subsystem to drop or reload a cached slot because the
// stored blob changed behind its back.
//
//	{"subsystem": "player", "user_index": 0, "slot": "profile", "type": "profile", "reload": true}
//
// Slot may be omitted when Type has a default slot. UserIndex, when present,
// must match the subsystem's user. Reload without Type reuses the type of
// the cached record.
type Invalidation struct {
	Subsystem string
	UserIndex int
	HasUser   bool
	Slot      string
	Type      string
	Reload    bool
}

// ParseInvalidation decodes an invalidation message.
func ParseInvalidation(data []byte) (Invalidation, error) {
	if !gjson.ValidBytes(data) {
		return Invalidation{}, fmt.Errorf("%w: not json", ErrInvalidMessage)
	}

	res := gjson.GetManyBytes(data, "subsystem", "user_index", "slot", "type", "reload")
	inv := Invalidation{
		Subsystem: res[0].String(),
		Slot:      res[2].String(),
		Type:      res[3].String(),
		Reload:    res[4].Bool(),
	}
	if inv.Subsystem == "" {
		return Invalidation{}, fmt.Errorf("%w: subsystem is required", ErrInvalidMessage)
	}
	if res[1].Exists() {
		if res[1].Type != gjson.Number {
			return Invalidation{}, fmt.Errorf("%w: user_index must be a number", ErrInvalidMessage)
		}
		inv.UserIndex = int(res[1].Int())
		inv.HasUser = true
	}
	if inv.Slot == "" && inv.Type == "" {
		return Invalidation{}, fmt.Errorf("%w: slot or type is required", ErrInvalidMessage)
	}
	return inv, nil
}

type invalidationWire struct {
	Subsystem string `json:"subsystem"`
	UserIndex *int   `json:"user_index,omitempty"`
	Slot      string `json:"slot,omitempty"`
	Type      string `json:"type,omitempty"`
	Reload    bool   `json:"reload,omitempty"`
}

// Encode renders inv in the form ParseInvalidation reads.
func (inv Invalidation) Encode() ([]byte, error) {
	wire := invalidationWire{
		Subsystem: inv.Subsystem,
		Slot:      inv.Slot,
		Type:      inv.Type,
		Reload:    inv.Reload,
	}
	if inv.HasUser {
		wire.UserIndex = &inv.UserIndex
	}
	return json.Marshal(wire)
}

// Message builds the kafka message carrying inv, keyed like slot events.
func (inv Invalidation) Message(topic string) (*Message, error) {
	value, err := inv.Encode()
	if err != nil {
		return nil, err
	}
	return &Message{
		Topic: topic,
		Key:   []byte(EventKey(inv.Subsystem, inv.UserIndex, inv.Slot)),
		Value: value,
	}, nil
}

type target struct {
	sub  *save.Subsystem
	doer dispatch.Doer
}

// Listener applies invalidations to registered subsystems. Each subsystem is
// only touched through its Doer.
type Listener struct {
	log    logger.Logger
	lookup TypeLookup

	mu      sync.RWMutex
	targets map[string]target
}

// NewListener returns a Listener resolving type names through lookup.
func NewListener(log logger.Logger, lookup TypeLookup) *Listener {
	return &Listener{
		log:     log,
		lookup:  lookup,
		targets: make(map[string]target),
	}
}

// Register makes sub reachable by its name.
func (l *Listener) Register(sub *save.Subsystem, doer dispatch.Doer) {
	l.mu.Lock()
	l.targets[sub.Name()] = target{sub: sub, doer: doer}
	l.mu.Unlock()
}

// Start consumes invalidations from c until ctx is done.
func (l *Listener) Start(ctx context.Context, c Consumer) error {
	return c.Start(ctx, l.Handle)
}

// Handle is the Handler applying one invalidation message. Messages for a
// different user are skipped.
func (l *Listener) Handle(ctx context.Context, msg *Message) error {
	inv, err := ParseInvalidation(msg.Value)
	if err != nil {
		// retrying cannot fix a malformed message
		l.log.Warn("dropping invalidation", zap.String("topic", msg.Topic), zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}
	return l.Apply(ctx, inv)
}

// Apply runs inv on the owner goroutine of its subsystem and waits for it.
func (l *Listener) Apply(ctx context.Context, inv Invalidation) error {
	l.mu.RLock()
	tg, ok := l.targets[inv.Subsystem]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubsystem, inv.Subsystem)
	}

	var applyErr error
	err := tg.doer.Do(ctx, func() {
		applyErr = l.apply(tg.sub, inv)
	})
	if err != nil {
		return err
	}
	return applyErr
}

func (l *Listener) apply(sub *save.Subsystem, inv Invalidation) error {
	if inv.HasUser && inv.UserIndex != sub.Owner().UserIndex {
		l.log.Debug("invalidation for another user",
			zap.String("subsystem", inv.Subsystem),
			zap.Int("user_index", inv.UserIndex),
		)
		return nil
	}

	var t save.Type
	if inv.Type != "" {
		var ok bool
		if t, ok = l.lookup(inv.Type); !ok {
			return ErrUnknownType(inv.Type)
		}
	}
	slot := save.Resolve(t, inv.Slot)

	if !inv.Reload {
		sub.Release(t, slot)
		l.log.Info("slot invalidated", zap.String("subsystem", inv.Subsystem), zap.String("slot", slot))
		return nil
	}

	if t == nil {
		rec := sub.Active(slot)
		if rec == nil {
			// nothing cached, the next Get loads the new blob anyway
			return nil
		}
		name := save.HeaderOf(rec).TypeName()
		var ok bool
		if t, ok = l.lookup(name); !ok {
			return ErrUnknownType(name)
		}
	}

	sub.AsyncLoad(t, slot, true, func(_ save.Record, success bool) {
		l.log.Info("slot reloaded",
			zap.String("subsystem", inv.Subsystem),
			zap.String("slot", slot),
			zap.Bool("success", success),
		)
	})
	return nil
}
