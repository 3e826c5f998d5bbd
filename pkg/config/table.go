package config

import "fmt"

// DefaultTableName is the distinguished entry TableConfigList falls back to
// when a table has no specific config (spec.md §4.7).
const DefaultTableName = "default"

// TableConfig is one table's engine options (spec.md §4.7 TableConfigList).
type TableConfig struct {
	Database      string        `yaml:"database"`
	Table         string        `yaml:"table"`
	EngineOptions EngineOptions `yaml:"engine_options"`
}

func (c TableConfig) String() string {
	return fmt.Sprintf("TableConfig{%s/%s, %s}", c.Database, c.Table, c.EngineOptions)
}

// TableConfigList is the versioned document holding every table's engine
// options, plus the "default" entry used when a table isn't listed.
type TableConfigList struct {
	Tables  map[string]TableConfig `yaml:"tables"`
	Version int64                  `yaml:"version"`
}

func tableConfigKey(database, table string) string {
	return database + "/" + table
}

// For returns the config for (database, table), falling back to the
// "default" entry, or ok=false if neither exists.
func (l TableConfigList) For(database, table string) (TableConfig, bool) {
	if cfg, ok := l.Tables[tableConfigKey(database, table)]; ok {
		return cfg, true
	}
	cfg, ok := l.Tables[DefaultTableName]
	return cfg, ok
}

// WithDefault builds a TableConfigList whose "default" entry is def,
// guaranteeing For never fails on an otherwise-empty document.
func WithDefault(def EngineOptions) TableConfigList {
	return TableConfigList{
		Tables: map[string]TableConfig{
			DefaultTableName: {Database: "", Table: DefaultTableName, EngineOptions: def},
		},
	}
}
