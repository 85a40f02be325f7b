package mysqlstore

import (
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return (&Config{Host: "db", User: "u", Password: "p", Database: "saves"}).MergeDefaults()
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "dsn only", mutate: func(c *Config) { *c = *(&Config{DSN: "u:p@tcp(db)/saves"}).MergeDefaults() }},
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, wantErr: "host is required"},
		{name: "missing password", mutate: func(c *Config) { c.Password = "" }, wantErr: "password is required"},
		{name: "bad table", mutate: func(c *Config) { c.Table = "slots; drop" }, wantErr: "not a valid identifier"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ConnString(t *testing.T) {
	cfg := (&Config{Host: "db", User: "u", Password: "p", Database: "saves"}).MergeDefaults()
	want := "u:p@tcp(db:3306)/saves?charset=utf8mb4&parseTime=True&loc=Local"
	if got := cfg.ConnString(); got != want {
		t.Errorf("ConnString() = %q, want %q", got, want)
	}

	cfg.DSN = "raw"
	if got := cfg.ConnString(); got != "raw" {
		t.Errorf("ConnString() = %q, want raw", got)
	}
}

func TestConfig_MergeDefaults(t *testing.T) {
	cfg := (&Config{Port: 3307, Table: "slots"}).MergeDefaults()
	if cfg.Port != 3307 || cfg.Table != "slots" || cfg.Charset != "utf8mb4" || cfg.MaxOpenConns != 25 {
		t.Errorf("MergeDefaults() = %+v", cfg)
	}
}
