package save

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		t    Type
		slot string
		want string
	}{
		{name: "nil type", t: nil, slot: "a", want: "a"},
		{name: "nil type empty", t: nil, slot: "", want: ""},
		{name: "no default", t: noteType, slot: "a", want: "a"},
		{name: "no default empty", t: noteType, slot: "", want: ""},
		{name: "default wins", t: profileType, slot: "a", want: "profile"},
		{name: "default for empty", t: profileType, slot: "", want: "profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.t, tt.slot); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestType_Is(t *testing.T) {
	if !profileType.Is(&profile{}) {
		t.Error("profile type rejects *profile")
	}
	if profileType.Is(&note{}) {
		t.Error("profile type accepts *note")
	}
	if profileType.Is(nil) {
		t.Error("profile type accepts nil")
	}
	if _, ok := profileType.New().(*profile); !ok {
		t.Error("New() did not build a *profile")
	}
}
