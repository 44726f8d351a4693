package core

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type" yaml:"type,omitempty"` // duckdb, postgres, sqlite

	// File-based databases (DuckDB, SQLite)
	Database string `koanf:"database" yaml:"database,omitempty"` // file path or database name

	// Network databases
	Host     string `koanf:"host" yaml:"host,omitempty"`
	Port     int    `koanf:"port" yaml:"port,omitempty"`
	User     string `koanf:"user" yaml:"user,omitempty"`
	Password string `koanf:"password" yaml:"password,omitempty"`

	// Common
	Schema string `koanf:"schema" yaml:"schema,omitempty"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options" yaml:"options,omitempty"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params" yaml:"params,omitempty"`
}

// AdapterConfig converts the target to the config passed to adapters.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	cfg := AdapterConfig{
		Type:     t.Type,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
	if t.Type == "duckdb" || t.Type == "sqlite" {
		cfg.Path = t.Database
	}
	return cfg
}
