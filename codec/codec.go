// Package codec turns records into self-describing blobs and back.
//
// A blob is a msgpack envelope carrying the record's type name, its saved
// data version and the msgpack payload of the record itself. The type name
// lets the loader build the right Go type before looking at the payload, and
// lets the orchestrator reject a blob that holds some other record type.
package codec

import (
	"github.com/dailyyoga/savekit/save"
	"github.com/vmihailenco/msgpack/v5"
)

type envelope struct {
	Type    string             `msgpack:"type"`
	Version int                `msgpack:"version"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Info describes a blob without decoding its payload.
type Info struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Size    int    `json:"size"`
}

// Unknown is what Decode returns for a blob whose type is not registered.
// It is deliberately not a save.Record.
type Unknown struct {
	Type    string
	Version int
	Payload []byte
}

// Codec encodes records registered in a Registry.
type Codec struct {
	registry *Registry
}

// New creates a Codec over registry.
func New(registry *Registry) *Codec {
	return &Codec{registry: registry}
}

// Registry returns the registry the codec resolves types with.
func (c *Codec) Registry() *Registry { return c.registry }

// Encode serializes rec inside an envelope.
func (c *Codec) Encode(rec save.Record) ([]byte, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	t, ok := c.typeOf(rec)
	if !ok {
		return nil, ErrUnregistered(rec)
	}

	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, ErrEncode(t.Name(), err)
	}
	blob, err := msgpack.Marshal(&envelope{
		Type:    t.Name(),
		Version: save.HeaderOf(rec).SavedDataVersion(),
		Payload: payload,
	})
	if err != nil {
		return nil, ErrEncode(t.Name(), err)
	}
	return blob, nil
}

// typeOf prefers the type stamped on rec, so types sharing one Go type keep
// their own names. Unstamped records match the first registered type.
func (c *Codec) typeOf(rec save.Record) (save.Type, bool) {
	if name := save.HeaderOf(rec).TypeName(); name != "" {
		if t, ok := c.registry.Lookup(name); ok && t.Is(rec) {
			return t, true
		}
	}
	return c.registry.TypeOf(rec)
}

// Decode rebuilds the object stored in blob. Blobs of unregistered types
// decode to *Unknown.
func (c *Codec) Decode(blob []byte) (any, error) {
	var env envelope
	if err := msgpack.Unmarshal(blob, &env); err != nil {
		return nil, ErrDecode(err)
	}

	t, ok := c.registry.Lookup(env.Type)
	if !ok {
		return &Unknown{Type: env.Type, Version: env.Version, Payload: env.Payload}, nil
	}

	rec := t.New()
	if err := msgpack.Unmarshal(env.Payload, rec); err != nil {
		return nil, ErrDecode(err)
	}
	return rec, nil
}

// Peek reads the envelope header of blob.
func (c *Codec) Peek(blob []byte) (Info, error) {
	var env envelope
	if err := msgpack.Unmarshal(blob, &env); err != nil {
		return Info{}, ErrDecode(err)
	}
	return Info{Type: env.Type, Version: env.Version, Size: len(blob)}, nil
}

// Fabricate builds a default record of t.
func (c *Codec) Fabricate(t save.Type) save.Record {
	if t == nil {
		return nil
	}
	return t.New()
}
