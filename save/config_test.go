package save

import "testing"

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: *DefaultConfig()},
		{name: "user scope", cfg: Config{Name: "p", Scope: ScopeUser, UserIndex: 3}},
		{name: "missing name", cfg: Config{Scope: ScopeProcess}, wantErr: true},
		{name: "process with user index", cfg: Config{Name: "g", Scope: ScopeProcess, UserIndex: 1}, wantErr: true},
		{name: "negative user index", cfg: Config{Name: "p", Scope: ScopeUser, UserIndex: -1}, wantErr: true},
		{name: "unknown scope", cfg: Config{Name: "p", Scope: "team"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_MergeDefaults(t *testing.T) {
	cfg := (&Config{UserIndex: 2, Scope: ScopeUser}).MergeDefaults()
	if cfg.Name != "global" || cfg.Scope != ScopeUser || cfg.UserIndex != 2 {
		t.Errorf("MergeDefaults() = %+v", cfg)
	}
}
