// Package cli provides the command-line interface for LeapQA.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapqa/internal/cli/commands"
	"github.com/leapstack-labs/leapqa/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// skipConfig lists commands that run without a project configuration.
var skipConfig = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
	"init":       true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leapqa",
		Short: "LeapQA - Data Quality Checks",
		Long: `LeapQA checks data quality constraints over partitioned tables.

Declare schemas in leapqa.yaml: a query (or a merge of two other schemas),
a partition such as a date range, and the constraints each column must
satisfy. 'leapqa check' reads each partition once, evaluates every
constraint and records the outcome in a local state database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd)
			ctx := config.WithLogger(cmd.Context(), logger)

			if skipConfig[cmd.Name()] {
				cmd.SetContext(ctx)
				return nil
			}

			flags := cmd.Root().PersistentFlags()
			envName, _ := flags.GetString("env")
			cfg, err := config.Load(config.Options{
				File:        cfgFile,
				Environment: envName,
				Flags:       flags,
			})
			if err != nil {
				return err
			}

			if cfg.Verbose {
				logger = newLogger(cmd, slog.LevelDebug)
				ctx = config.WithLogger(ctx, logger)
			}
			logger.Debug("loaded config",
				"project_root", cfg.ProjectRoot,
				"environment", cfg.Environment,
				"target", cfg.Target.Type,
				"schemas", len(cfg.Schemas))

			cmd.SetContext(config.WithConfig(ctx, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./leapqa.yaml, searched upward)")
	rootCmd.PersistentFlags().String("env", "", "Environment name (selects an environments entry)")
	rootCmd.PersistentFlags().String("state", "", "Path to state database")
	rootCmd.PersistentFlags().Int("threads", 0, "Partitions checked in parallel")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("env", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewPartitionsCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger writes text logs to stderr, warnings and above unless a level
// is given.
func newLogger(cmd *cobra.Command, level ...slog.Level) *slog.Logger {
	lvl := slog.LevelWarn
	if len(level) > 0 {
		lvl = level[0]
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for LeapQA.

To load completions:

Bash:
  $ source <(leapqa completion bash)

Zsh:
  $ leapqa completion zsh > "${fpath[1]}/_leapqa"

Fish:
  $ leapqa completion fish | source

PowerShell:
  PS> leapqa completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
