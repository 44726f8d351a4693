// Package config loads leapqa project configuration (leapqa.yaml).
package config

import "github.com/leapstack-labs/leapqa/pkg/core"

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// Config holds the project configuration.
type Config struct {
	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot  string               `koanf:"-" yaml:"-"`
	Target       *TargetConfig        `koanf:"target" yaml:"target,omitempty"`
	StatePath    string               `koanf:"state_path" yaml:"state_path,omitempty"`
	Environment  string               `koanf:"environment" yaml:"environment,omitempty"`
	Verbose      bool                 `koanf:"verbose" yaml:"verbose,omitempty"`
	OutputFormat string               `koanf:"output" yaml:"output,omitempty"`
	Threads      int                  `koanf:"threads" yaml:"threads,omitempty"`
	Schemas      []SchemaConfig       `koanf:"schemas" yaml:"schemas,omitempty"`
	Environments map[string]EnvConfig `koanf:"environments" yaml:"environments,omitempty"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Target    *TargetConfig `koanf:"target" yaml:"target,omitempty"`
	StatePath string        `koanf:"state_path" yaml:"state_path,omitempty"`
}

// SchemaConfig declares one schema. Exactly one of Query and Merge is set.
type SchemaConfig struct {
	Name        string             `koanf:"name" yaml:"name,omitempty"`
	Description string             `koanf:"description" yaml:"description,omitempty"`
	Query       string             `koanf:"query" yaml:"query,omitempty"`
	Merge       *MergeConfig       `koanf:"merge" yaml:"merge,omitempty"`
	Partition   *PartitionConfig   `koanf:"partition" yaml:"partition,omitempty"`
	Columns     []ColumnConfig     `koanf:"columns" yaml:"columns,omitempty"`
	Constraints []ConstraintConfig `koanf:"constraints" yaml:"constraints,omitempty"`
}

// MergeConfig derives a schema by joining two others on the same key.
type MergeConfig struct {
	Left  string   `koanf:"left" yaml:"left,omitempty"`
	Right string   `koanf:"right" yaml:"right,omitempty"`
	On    []string `koanf:"on" yaml:"on,omitempty"`
	How   string   `koanf:"how" yaml:"how,omitempty"`
}

// PartitionConfig selects the key space of a schema.
type PartitionConfig struct {
	Type       string `koanf:"type" yaml:"type,omitempty"` // default, date
	Start      string `koanf:"start" yaml:"start,omitempty"`
	End        string `koanf:"end" yaml:"end,omitempty"`
	Descending bool   `koanf:"descending" yaml:"descending,omitempty"`
}

// ColumnConfig declares a column and its constraints.
type ColumnConfig struct {
	Name        string             `koanf:"name" yaml:"name,omitempty"`
	Table       string             `koanf:"table" yaml:"table,omitempty"`
	Type        string             `koanf:"type" yaml:"type,omitempty"`
	Description string             `koanf:"description" yaml:"description,omitempty"`
	Constraints []ConstraintConfig `koanf:"constraints" yaml:"constraints,omitempty"`
}

// ConstraintConfig declares a constraint. Which fields apply depends on Type.
type ConstraintConfig struct {
	Type     string   `koanf:"type" yaml:"type,omitempty"`
	Severity string   `koanf:"severity" yaml:"severity,omitempty"`
	Values   []any    `koanf:"values" yaml:"values,omitempty"`   // accepted_values
	Min      any      `koanf:"min" yaml:"min,omitempty"`         // range
	Max      any      `koanf:"max" yaml:"max,omitempty"`         // range
	Columns  []string `koanf:"columns" yaml:"columns,omitempty"` // unique_combination
}

// Schema returns the schema named name.
func (c *Config) Schema(name string) (*SchemaConfig, bool) {
	for i := range c.Schemas {
		if c.Schemas[i].Name == name {
			return &c.Schemas[i], true
		}
	}
	return nil, false
}

// Default configuration values.
const (
	ConfigFileName    = "leapqa.yaml"
	ConfigFileNameAlt = "leapqa.yml"
	DefaultStateFile  = ".leapqa/state.db"
	DefaultEnv        = "dev"
	DefaultOutput     = "auto" // TTY=text, otherwise markdown
	DefaultThreads    = 4
)
