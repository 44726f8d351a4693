package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapqa/pkg/adapter"
	"github.com/leapstack-labs/leapqa/pkg/partition"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// OutputFormats lists the accepted values of output.
var OutputFormats = []string{"auto", "text", "markdown", "json", "yaml"}

// Validate checks the configuration for structural errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error
	if err := ValidateTarget(c.Target); err != nil {
		errs = append(errs, fmt.Errorf("invalid target configuration: %w", err))
	}
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("invalid output %q (expected one of %v)", c.OutputFormat, OutputFormats))
	}
	if c.Threads < 1 {
		errs = append(errs, fmt.Errorf("threads must be at least 1, got %d", c.Threads))
	}

	seen := make(map[string]bool, len(c.Schemas))
	for i := range c.Schemas {
		s := &c.Schemas[i]
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("schemas[%d]: name is required", i))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("schema %s: declared more than once", s.Name))
		}
		seen[s.Name] = true
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("schema %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	if t.Type == "postgres" && t.Database == "" {
		return fmt.Errorf("postgres target requires a database")
	}
	return nil
}

func (s *SchemaConfig) validate() error {
	switch {
	case s.Query == "" && s.Merge == nil:
		return fmt.Errorf("one of query or merge is required")
	case s.Query != "" && s.Merge != nil:
		return fmt.Errorf("query and merge are mutually exclusive")
	}

	if m := s.Merge; m != nil {
		if m.Left == "" || m.Right == "" {
			return fmt.Errorf("merge requires left and right")
		}
		if len(m.On) == 0 {
			return fmt.Errorf("merge requires at least one key in on")
		}
		if _, err := table.ParseJoin(m.How); err != nil {
			return fmt.Errorf("merge: %w", err)
		}
	}

	if p := s.Partition; p != nil {
		switch p.Type {
		case "", "default":
			if p.Start != "" || p.End != "" {
				return fmt.Errorf("partition: start and end require type date")
			}
		case "date":
			for _, d := range []string{p.Start, p.End} {
				if d == "" {
					continue
				}
				if _, err := partition.ParseDate(d); err != nil {
					return fmt.Errorf("partition: %w", err)
				}
			}
		default:
			return fmt.Errorf("partition: unknown type %q", p.Type)
		}
	}

	for i, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("columns[%d]: name is required", i)
		}
		if c.Type != "" {
			if _, ok := table.ParseKind(c.Type); !ok {
				return fmt.Errorf("column %s: unknown type %q", c.Name, c.Type)
			}
		}
	}
	return nil
}
