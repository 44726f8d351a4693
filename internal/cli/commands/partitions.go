package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPartitionsCommand creates the partitions command.
func NewPartitionsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "partitions <schema>",
		Short: "List the partition keys of a schema",
		Long: `List the keys a schema is checked at, in the order check visits them.
Unpartitioned schemas have the single key "default".`,
		Example: `  # List the days of the orders schema
  leapqa partitions orders

  # Only the first 7 keys
  leapqa partitions orders --limit 7`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			cfg := getConfig(cmd)
			names := make([]string, 0, len(cfg.Schemas))
			for _, s := range cfg.Schemas {
				names = append(names, s.Name)
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPartitions(cmd, args[0], limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most N keys (0 for all)")
	return cmd
}

func runPartitions(cmd *cobra.Command, name string, limit int) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	keys, err := cmdCtx.Engine.Partitions(name)
	if err != nil {
		return err
	}
	total := len(keys)
	if limit > 0 && limit < total {
		keys = keys[:limit]
	}

	r := cmdCtx.Renderer
	if handled, err := r.Structured(keys); handled || err != nil {
		return err
	}

	r.Header(1, fmt.Sprintf("Partitions of %s (%d total)", name, total))
	for _, k := range keys {
		r.Println(k)
	}
	if len(keys) < total {
		r.Printf("... %d more\n", total-len(keys))
	}
	return nil
}
