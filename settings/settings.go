// Package settings loads the savekit settings file.
//
// The file is HuJSON (JSON with comments and trailing commas). Durations may
// be written as strings ("30s", "5m"). Environment variables prefixed with
// SAVEKIT_ override file values, for example SAVEKIT_LOG_LEVEL,
// SAVEKIT_STORAGE_DRIVER, SAVEKIT_STORAGE_PATH, SAVEKIT_NOTIFY_BROKERS or
// SAVEKIT_EVENTLOG_HOSTS.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/dailyyoga/savekit/autosave"
	"github.com/dailyyoga/savekit/dispatch"
	"github.com/dailyyoga/savekit/eventlog"
	"github.com/dailyyoga/savekit/logger"
	"github.com/dailyyoga/savekit/notify"
	"github.com/dailyyoga/savekit/save"
	"github.com/dailyyoga/savekit/storage"
	"github.com/dailyyoga/savekit/storage/mysqlstore"
	"github.com/go-viper/mapstructure/v2"
	"github.com/tailscale/hujson"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SAVEKIT_"

// Storage drivers
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var drivers = []string{DriverMemory, DriverFile, DriverSQLite, DriverMySQL}

// Settings is the whole settings file
type Settings struct {
	Logger     *logger.Config   `mapstructure:"logger" json:"logger" envPrefix:"LOG_"`
	Dispatch   *dispatch.Config `mapstructure:"dispatch" json:"dispatch"`
	Storage    *Storage         `mapstructure:"storage" json:"storage" envPrefix:"STORAGE_"`
	Subsystems []*Subsystem     `mapstructure:"subsystems" json:"subsystems"`
	Notify     *notify.Config   `mapstructure:"notify" json:"notify" envPrefix:"NOTIFY_"`
	EventLog   *eventlog.Config `mapstructure:"eventlog" json:"eventlog" envPrefix:"EVENTLOG_"`
}

// Storage selects and configures the blob store
type Storage struct {
	// Driver is one of memory, file, sqlite, mysql
	// default: "memory"
	Driver string `mapstructure:"driver" json:"driver" env:"DRIVER"`
	// Path is the root directory of the file driver or the database file of
	// the sqlite driver
	Path    string             `mapstructure:"path" json:"path" env:"PATH"`
	Backend *storage.Config    `mapstructure:"backend" json:"backend" envPrefix:"BACKEND_"`
	MySQL   *mysqlstore.Config `mapstructure:"mysql" json:"mysql" envPrefix:"MYSQL_"`
}

// Subsystem configures one save subsystem
type Subsystem struct {
	save.Config `mapstructure:",squash"`

	// AutoLoad lists the slots loaded asynchronously at startup
	AutoLoad []AutoLoad `mapstructure:"autoload" json:"autoload"`
	// AutoSave enables periodic saving when set
	AutoSave *autosave.Config `mapstructure:"autosave" json:"autosave"`
}

// AutoLoad names a record type and an optional slot
type AutoLoad struct {
	Type string `mapstructure:"type" json:"type"`
	Slot string `mapstructure:"slot" json:"slot"`
}

// TypeLookup resolves a record type by name, like codec.Registry.Lookup.
type TypeLookup func(name string) (save.Type, bool)

// Default returns settings with every section at its default: a single
// process-scoped subsystem over an in-memory store.
func Default() *Settings {
	return (&Settings{}).MergeDefaults()
}

// Load reads path, applies environment overrides, fills defaults and
// validates. An empty path starts from Default.
func Load(path string) (*Settings, error) {
	s := &Settings{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ErrRead(path, err)
		}
		if s, err = Parse(data); err != nil {
			return nil, err
		}
	}

	s.MergeDefaults()
	if err := s.ApplyEnv(); err != nil {
		return nil, err
	}
	// env may have touched fields that defaults derive from
	s.MergeDefaults()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse decodes HuJSON settings. Unknown keys are rejected. Defaults are not
// applied.
func Parse(data []byte) (*Settings, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, ErrParse(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(standardized, &raw); err != nil {
		return nil, ErrParse(err)
	}

	s := &Settings{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused: true,
		TagName:     "mapstructure",
		Result:      s,
	})
	if err != nil {
		return nil, ErrParse(err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, ErrParse(err)
	}
	return s, nil
}

// ApplyEnv overrides fields from SAVEKIT_ environment variables. Only
// sections already allocated are visited, so call MergeDefaults first.
func (s *Settings) ApplyEnv() error {
	if err := env.ParseWithOptions(s, env.Options{Prefix: EnvPrefix}); err != nil {
		return ErrEnv(err)
	}
	return nil
}

// MergeDefaults fills empty sections and fields with their default values
func (s *Settings) MergeDefaults() *Settings {
	if s.Logger == nil {
		s.Logger = logger.DefaultConfig()
	} else {
		s.Logger.MergeDefaults()
	}
	if s.Dispatch == nil {
		s.Dispatch = dispatch.DefaultConfig()
	} else {
		s.Dispatch.MergeDefaults()
	}
	if s.Storage == nil {
		s.Storage = &Storage{}
	}
	s.Storage.mergeDefaults()
	if len(s.Subsystems) == 0 {
		s.Subsystems = []*Subsystem{{Config: *save.DefaultConfig()}}
	}
	for _, sub := range s.Subsystems {
		sub.Config.MergeDefaults()
		if sub.AutoSave != nil {
			sub.AutoSave.MergeDefaults()
		}
	}
	if s.Notify == nil {
		s.Notify = notify.DefaultConfig()
	}
	s.Notify.MergeDefaults()
	if s.EventLog == nil {
		s.EventLog = eventlog.DefaultConfig()
	} else {
		s.EventLog.MergeDefaults()
	}
	return s
}

func (st *Storage) mergeDefaults() {
	if st.Driver == "" {
		st.Driver = DriverMemory
	}
	if st.Backend == nil {
		st.Backend = storage.DefaultConfig()
	} else {
		st.Backend.MergeDefaults()
	}
	if st.MySQL == nil {
		st.MySQL = mysqlstore.DefaultConfig()
	} else {
		st.MySQL.MergeDefaults()
	}
}

// Validate validates every section
func (s *Settings) Validate() error {
	if err := s.Logger.Validate(); err != nil {
		return ErrSection("logger", err)
	}
	if err := s.Dispatch.Validate(); err != nil {
		return ErrSection("dispatch", err)
	}
	if err := s.Storage.Validate(); err != nil {
		return ErrSection("storage", err)
	}

	names := make(map[string]bool, len(s.Subsystems))
	for i, sub := range s.Subsystems {
		section := fmt.Sprintf("subsystems[%d]", i)
		if err := sub.Validate(); err != nil {
			return ErrSection(section, err)
		}
		if names[sub.Name] {
			return ErrSection(section, ErrInvalidConfig(fmt.Sprintf("duplicate subsystem name %q", sub.Name)))
		}
		names[sub.Name] = true
	}

	if err := s.Notify.Validate(); err != nil {
		return ErrSection("notify", err)
	}
	if err := s.EventLog.Validate(); err != nil {
		return ErrSection("eventlog", err)
	}
	return nil
}

// Validate validates the storage section
func (st *Storage) Validate() error {
	if !slices.Contains(drivers, st.Driver) {
		return ErrInvalidConfig(fmt.Sprintf("driver %q must be one of: memory, file, sqlite, mysql", st.Driver))
	}
	if (st.Driver == DriverFile || st.Driver == DriverSQLite) && st.Path == "" {
		return ErrInvalidConfig(fmt.Sprintf("path is required for the %s driver", st.Driver))
	}
	if err := st.Backend.Validate(); err != nil {
		return err
	}
	if st.Driver == DriverMySQL {
		return st.MySQL.Validate()
	}
	return nil
}

// Validate validates one subsystem section
func (sub *Subsystem) Validate() error {
	var errs []error
	if err := sub.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	for i, entry := range sub.AutoLoad {
		if entry.Type == "" {
			errs = append(errs, ErrInvalidConfig(fmt.Sprintf("autoload[%d]: type is required", i)))
		}
	}
	if sub.AutoSave != nil {
		if err := sub.AutoSave.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AutoLoads resolves the auto-load list. An unknown type name is logged and
// kept with a nil type, so its slot loads whatever record is stored there.
func (sub *Subsystem) AutoLoads(log logger.Logger, lookup TypeLookup) []save.AutoLoad {
	entries := make([]save.AutoLoad, 0, len(sub.AutoLoad))
	for _, entry := range sub.AutoLoad {
		t, ok := lookup(entry.Type)
		if !ok {
			log.Warn("unknown record type in autoload list",
				zap.String("subsystem", sub.Name),
				zap.String("type", entry.Type),
				zap.String("slot", entry.Slot),
			)
		}
		entries = append(entries, save.AutoLoad{Type: t, Slot: entry.Slot})
	}
	return entries
}
