package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapqa/internal/cli/output"
	"github.com/leapstack-labs/leapqa/internal/config"
	"github.com/leapstack-labs/leapqa/pkg/schema"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List declared schemas",
		Long: `List every schema declared in leapqa.yaml with its source, partition,
columns and constraints. Merge schemas are listed after their inputs.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, yaml`,
		Example: `  # List all schemas
  leapqa list

  # List schemas as JSON
  leapqa list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
}

// SchemaInfo describes a schema in list output.
type SchemaInfo struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Source      string       `json:"source" yaml:"source"`
	Partition   string       `json:"partition" yaml:"partition"`
	Columns     []ColumnInfo `json:"columns,omitempty" yaml:"columns,omitempty"`
	Constraints []string     `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// ColumnInfo describes a column in list output.
type ColumnInfo struct {
	Key         string   `json:"key" yaml:"key"`
	Kind        string   `json:"kind" yaml:"kind"`
	Constraints []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

func runList(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	schemas, err := cmdCtx.Engine.Suite().Schemas()
	if err != nil {
		return err
	}
	infos := make([]SchemaInfo, 0, len(schemas))
	for _, s := range schemas {
		infos = append(infos, describeSchema(cmdCtx.Cfg, s))
	}

	r := cmdCtx.Renderer
	if handled, err := r.Structured(infos); handled || err != nil {
		return err
	}

	r.Header(1, fmt.Sprintf("Schemas (%d total)", len(infos)))
	rows := make([][]any, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []any{info.Name, info.Source, info.Partition, len(info.Columns), countConstraints(info)})
	}
	r.Table([]string{"Schema", "Source", "Partition", "Columns", "Constraints"}, rows)

	if cmdCtx.Cfg.Verbose {
		for _, info := range infos {
			r.Println()
			renderSchemaDetail(r, info)
		}
	}
	return nil
}

func describeSchema(cfg *config.Config, s *schema.Schema) SchemaInfo {
	info := SchemaInfo{
		Name:        s.Name(),
		Description: s.Description(),
		Source:      "query",
		Partition:   fmt.Sprint(s.Partition()),
	}
	if sc, ok := cfg.Schema(s.Name()); ok && sc.Merge != nil {
		how := sc.Merge.How
		if how == "" {
			how = "inner"
		}
		info.Source = fmt.Sprintf("%s join %s on %s (%s)", sc.Merge.Left, sc.Merge.Right, strings.Join(sc.Merge.On, ", "), how)
	}
	for _, c := range s.Columns() {
		ci := ColumnInfo{Key: c.Key(), Kind: c.Kind().String()}
		for _, rule := range c.Rules() {
			ci.Constraints = append(ci.Constraints, rule.Name())
		}
		info.Columns = append(info.Columns, ci)
	}
	for _, rule := range s.Rules() {
		info.Constraints = append(info.Constraints, rule.Name())
	}
	return info
}

func countConstraints(info SchemaInfo) int {
	n := len(info.Constraints)
	for _, c := range info.Columns {
		n += len(c.Constraints)
	}
	return n
}

func renderSchemaDetail(r *output.Renderer, info SchemaInfo) {
	r.Header(2, info.Name)
	if info.Description != "" {
		r.Println(info.Description)
		r.Println()
	}
	rows := make([][]any, 0, len(info.Columns)+len(info.Constraints))
	for _, c := range info.Columns {
		rows = append(rows, []any{c.Key, c.Kind, strings.Join(c.Constraints, ", ")})
	}
	for _, name := range info.Constraints {
		rows = append(rows, []any{"(schema)", "", name})
	}
	r.Table([]string{"Column", "Kind", "Constraints"}, rows)
}
