package codec

import (
	"context"
	"errors"
	"testing"

	"github.com/dailyyoga/savekit/save"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

type settings struct {
	save.Header
	Volume int               `msgpack:"volume"`
	Keys   map[string]string `msgpack:"keys"`
}

func (s *settings) LatestDataVersion() int { return 3 }

type inventory struct {
	save.Header
	Items []string `msgpack:"items"`
}

var (
	settingsType  = save.NewType("settings", func() *settings { return &settings{} }, save.WithDefaultSlot("settings"))
	inventoryType = save.NewType("inventory", func() *inventory { return &inventory{} })
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	reg, err := NewRegistry(settingsType, inventoryType)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return New(reg)
}

func TestCodec_EncodeDecode(t *testing.T) {
	c := newTestCodec(t)
	in := &settings{Header: save.Header{SavedVersion: 3}, Volume: 7, Keys: map[string]string{"jump": "space"}}

	blob, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	obj, err := c.Decode(blob)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	out, ok := obj.(*settings)
	if !ok {
		t.Fatalf("Decode returned %T, want *settings", obj)
	}
	if out.SavedDataVersion() != 3 || out.Volume != 7 {
		t.Errorf("decoded = %+v", out)
	}
	if diff := cmp.Diff(in.Keys, out.Keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	info, err := c.Peek(blob)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if diff := cmp.Diff(Info{Type: "settings", Version: 3, Size: len(blob)}, info); diff != "" {
		t.Errorf("Peek mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_DecodeUnknownType(t *testing.T) {
	c := newTestCodec(t)
	blob, err := c.Encode(&inventory{Items: []string{"sword"}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	other := New(mustRegistry(t, settingsType))
	obj, err := other.Decode(blob)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	u, ok := obj.(*Unknown)
	if !ok || u.Type != "inventory" {
		t.Fatalf("Decode returned %#v, want *Unknown", obj)
	}
	if _, isRecord := obj.(save.Record); isRecord {
		t.Error("Unknown must not be a record")
	}
	if settingsType.Is(obj) {
		t.Error("settings type accepted an unknown blob")
	}
}

// fabricateOnly backs a Subsystem that only creates records.
type fabricateOnly struct{}

func (fabricateOnly) Exists(context.Context, int, string) (bool, error) { return false, nil }
func (fabricateOnly) Load(context.Context, int, string) (any, error)    { return nil, nil }
func (fabricateOnly) LoadAsync(int, string, func(any, error))           {}
func (fabricateOnly) Save(context.Context, int, string, save.Record) error {
	return nil
}
func (fabricateOnly) SaveAsync(int, string, save.Record, func(error)) {}
func (fabricateOnly) Fabricate(t save.Type) save.Record               { return t.New() }

func TestCodec_EncodeStampedType(t *testing.T) {
	archived := save.NewType("archived_inventory", func() *inventory { return &inventory{} })
	c := New(mustRegistry(t, inventoryType, archived))
	sub, err := save.New(zap.NewNop(), fabricateOnly{}, nil)
	if err != nil {
		t.Fatalf("save.New failed: %v", err)
	}

	tests := []struct {
		name string
		rec  save.Record
		want string
	}{
		{name: "first type", rec: sub.Create(inventoryType, "bag"), want: "inventory"},
		{name: "second type", rec: sub.Create(archived, "attic"), want: "archived_inventory"},
		{name: "unstamped", rec: &inventory{}, want: "inventory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := c.Encode(tt.rec)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			info, err := c.Peek(blob)
			if err != nil {
				t.Fatalf("Peek failed: %v", err)
			}
			if info.Type != tt.want {
				t.Errorf("blob type = %q, want %q", info.Type, tt.want)
			}
		})
	}
}

func TestCodec_DecodeErrorIsCorrupt(t *testing.T) {
	_, err := newTestCodec(t).Decode([]byte("garbage"))
	var c save.Corrupt
	if !errors.As(err, &c) || !c.Corrupt() {
		t.Errorf("Decode error %v does not report a corrupt blob", err)
	}
}

func TestCodec_Errors(t *testing.T) {
	c := newTestCodec(t)

	if _, err := c.Encode(nil); !errors.Is(err, ErrNilRecord) {
		t.Errorf("Encode(nil) = %v, want ErrNilRecord", err)
	}
	type stray struct{ save.Header }
	if _, err := c.Encode(&stray{}); err == nil {
		t.Error("Encode of unregistered type succeeded")
	}
	if _, err := c.Decode([]byte("garbage")); err == nil {
		t.Error("Decode of garbage succeeded")
	}
	if c.Fabricate(nil) != nil {
		t.Error("Fabricate(nil) returned a record")
	}
	if _, ok := c.Fabricate(inventoryType).(*inventory); !ok {
		t.Error("Fabricate did not build an inventory")
	}
}

func TestRegistry(t *testing.T) {
	reg := mustRegistry(t, settingsType)

	if err := reg.Register(settingsType); err == nil {
		t.Error("duplicate registration succeeded")
	}
	if err := reg.Register(nil); !errors.Is(err, ErrInvalidType) {
		t.Errorf("Register(nil) = %v, want ErrInvalidType", err)
	}
	if err := reg.Register(inventoryType); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if diff := cmp.Diff([]string{"settings", "inventory"}, reg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if typ, ok := reg.TypeOf(&inventory{}); !ok || typ.Name() != "inventory" {
		t.Errorf("TypeOf = %v, %v", typ, ok)
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Error("Lookup found a missing type")
	}
}

func mustRegistry(t *testing.T, types ...save.Type) *Registry {
	t.Helper()
	reg, err := NewRegistry(types...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return reg
}
