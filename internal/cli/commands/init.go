package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapqa/internal/config"
	"github.com/leapstack-labs/leapqa/pkg/core"
)

const configHeader = `# LeapQA project configuration.
#
# Schemas read a table per partition key: the key is bound to every ?
# placeholder of the query. Run 'leapqa check' to evaluate the constraints.
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var target string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new LeapQA project",
		Long: `Initialize a new LeapQA project by writing a leapqa.yaml with a target
and an example schema to adapt.`,
		Example: `  # Initialize in current directory
  leapqa init

  # Initialize against Postgres
  leapqa init --target postgres

  # Initialize in a new directory
  leapqa init my-checks

  # Force overwrite existing config
  leapqa init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := NewCommandContextWithoutEngine(cmd).Renderer

			path, err := runInit(dir, target, force)
			if err != nil {
				return err
			}
			r.Printf("Created %s\n", path)
			r.Println()
			r.Println("Next steps:")
			r.Println("  1. Point target at your database")
			r.Println("  2. Declare your schemas and their constraints")
			r.Println("  3. Run 'leapqa list' to review them")
			r.Println("  4. Run 'leapqa check' to evaluate them")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&target, "target", "duckdb", "Target database type (duckdb, postgres, sqlite)")
	_ = cmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"duckdb", "postgres", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(dir, target string, force bool) (string, error) {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	cfg, err := scaffold(target)
	if err != nil {
		return "", err
	}
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), body...), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// scaffold returns the starter configuration for a target type.
func scaffold(targetType string) (*config.Config, error) {
	target := &core.TargetConfig{Type: targetType}
	switch targetType {
	case "duckdb":
		target.Database = "warehouse.duckdb"
	case "sqlite":
		target.Database = "warehouse.db"
	case "postgres":
		target.Host = "localhost"
		target.Port = 5432
		target.Database = "warehouse"
		target.User = "${PGUSER}"
		target.Password = "${PGPASSWORD}"
		target.Schema = "public"
	default:
		return nil, fmt.Errorf("unsupported target %q (expected duckdb, postgres or sqlite)", targetType)
	}

	return &config.Config{
		Target:    target,
		StatePath: config.DefaultStateFile,
		Threads:   config.DefaultThreads,
		Schemas: []config.SchemaConfig{
			{
				Name:        "orders",
				Description: "One row per order, checked one day at a time",
				Query:       "SELECT * FROM orders WHERE order_date = ?",
				Partition:   &config.PartitionConfig{Type: "date", Start: "2024-01-01", End: "2024-12-31"},
				Columns: []config.ColumnConfig{
					{
						Name: "id",
						Type: "int",
						Constraints: []config.ConstraintConfig{
							{Type: "unique"},
							{Type: "not_null"},
						},
					},
					{
						Name: "status",
						Type: "string",
						Constraints: []config.ConstraintConfig{
							{Type: "accepted_values", Values: []any{"open", "shipped", "closed"}, Severity: "warning"},
						},
					},
				},
			},
		},
	}, nil
}
