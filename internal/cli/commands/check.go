package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapqa/internal/cli/output"
	"github.com/leapstack-labs/leapqa/internal/engine"
	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/partition"
	"github.com/leapstack-labs/leapqa/pkg/table"
)

// ErrCheckFailed is returned when a run has failing or errored partitions.
var ErrCheckFailed = errors.New("check failed")

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Schemas    []string
	Partition  string
	From       string
	To         string
	Offset     int
	Anchor     string
	Violations int
	Export     string
	History    int
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check schema constraints over partitions",
		Long: `Evaluate the constraints of every schema, or of the schemas given with
--schema, over their partitions.

Without a partition selection each schema is checked at every key of its
partition. Select keys with one of:
  --partition DATE          a single date
  --from DATE --to DATE     an inclusive date range
  --offset N [--anchor D]   N days from the anchor (default today)

Every run is recorded in the state database. Constraints with severity
"warning" are reported but never fail the run.`,
		Example: `  # Check everything
  leapqa check

  # Check one schema for one day
  leapqa check --schema orders --partition 2024-01-05

  # Check yesterday
  leapqa check --offset -1

  # Show up to 5 violating rows per failed constraint
  leapqa check --schema orders --violations 5

  # Write violating rows as Arrow IPC streams
  leapqa check --export .leapqa/violations

  # Machine-readable report for CI
  leapqa check --output json

  # Show the last 10 runs
  leapqa check --history 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Schemas, "schema", "s", nil, "Schemas to check (repeatable or comma-separated)")
	cmd.Flags().StringVarP(&opts.Partition, "partition", "p", "", "Check a single partition date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.From, "from", "", "First date of a partition range")
	cmd.Flags().StringVar(&opts.To, "to", "", "Last date of a partition range")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Check the partition N days from the anchor")
	cmd.Flags().StringVar(&opts.Anchor, "anchor", "", "Anchor date for --offset (default today)")
	cmd.Flags().IntVar(&opts.Violations, "violations", 0, "Show up to N violating rows per failed constraint")
	cmd.Flags().StringVar(&opts.Export, "export", "", "Write violating rows of failed constraints to DIR as Arrow IPC streams")
	cmd.Flags().IntVar(&opts.History, "history", 0, "List the N most recent runs instead of checking")

	cmd.MarkFlagsMutuallyExclusive("partition", "from")
	cmd.MarkFlagsMutuallyExclusive("partition", "offset")
	cmd.MarkFlagsMutuallyExclusive("from", "offset")
	cmd.MarkFlagsRequiredTogether("from", "to")

	return cmd
}

// selection turns the partition flags into engine options.
func (o *CheckOptions) selection(cmd *cobra.Command, now time.Time) (engine.CheckOptions, error) {
	sel := engine.CheckOptions{Schemas: o.Schemas}

	switch {
	case o.Partition != "":
		key, err := partition.ParseDate(o.Partition)
		if err != nil {
			return sel, err
		}
		sel.Keys = []any{key}
	case o.From != "" || o.To != "":
		from, err := partition.ParseDate(o.From)
		if err != nil {
			return sel, err
		}
		to, err := partition.ParseDate(o.To)
		if err != nil {
			return sel, err
		}
		if to.Before(from) {
			return sel, fmt.Errorf("--from %s is after --to %s", o.From, o.To)
		}
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			sel.Keys = append(sel.Keys, d)
		}
	case cmd.Flags().Changed("offset"):
		sel.Keys = []any{o.Offset}
		anchor := partition.Truncate(now)
		if o.Anchor != "" {
			var err error
			if anchor, err = partition.ParseDate(o.Anchor); err != nil {
				return sel, err
			}
		}
		sel.Anchor = anchor
	case o.Anchor != "":
		return sel, fmt.Errorf("--anchor requires --offset")
	}
	return sel, nil
}

func runCheck(cmd *cobra.Command, opts *CheckOptions) error {
	if opts.History > 0 {
		return runHistory(cmd, opts.History)
	}

	sel, err := opts.selection(cmd, time.Now())
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	start := time.Now()

	res, runErr := cmdCtx.Engine.Check(cmd.Context(), sel)
	if res == nil || len(res.Outcomes) == 0 && runErr != nil {
		return runErr
	}

	var exported []string
	if opts.Export != "" {
		if exported, err = exportViolations(opts.Export, res); err != nil {
			return err
		}
		cmdCtx.Logger.Debug("exported violations", "dir", opts.Export, "files", len(exported))
	}

	handled, err := r.Structured(newCheckOutput(res))
	if err != nil {
		return err
	}
	if !handled {
		renderCheck(r, res, opts.Violations, time.Since(start))
		if len(exported) > 0 {
			r.Printf("Exported %d violation file(s) to %s\n", len(exported), opts.Export)
		}
	}

	if runErr != nil {
		cmdCtx.Logger.Debug("check failed", "error", runErr)
		return fmt.Errorf("%w: %d of %d partition(s) did not pass", ErrCheckFailed, len(res.Failed()), len(res.Outcomes))
	}
	return nil
}

// CheckOutput is the JSON/YAML output of the check command.
type CheckOutput struct {
	RunID       string            `json:"run_id" yaml:"run_id"`
	Environment string            `json:"environment" yaml:"environment"`
	Status      string            `json:"status" yaml:"status"`
	Partitions  []PartitionOutput `json:"partitions" yaml:"partitions"`
}

// PartitionOutput is the check of one schema partition.
type PartitionOutput struct {
	Schema    string         `json:"schema" yaml:"schema"`
	Partition string         `json:"partition" yaml:"partition"`
	Passed    bool           `json:"passed" yaml:"passed"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
	ElapsedMS int64          `json:"elapsed_ms" yaml:"elapsed_ms"`
	Results   []ResultOutput `json:"results,omitempty" yaml:"results,omitempty"`
}

// ResultOutput is the outcome of one constraint.
type ResultOutput struct {
	Constraint string `json:"constraint" yaml:"constraint"`
	Column     string `json:"column,omitempty" yaml:"column,omitempty"`
	Severity   string `json:"severity" yaml:"severity"`
	Status     string `json:"status" yaml:"status"`
	Violations int    `json:"violations" yaml:"violations"`
}

func newCheckOutput(res *engine.RunResult) CheckOutput {
	out := CheckOutput{
		RunID:       res.Run.ID,
		Environment: res.Run.Environment,
		Status:      string(res.Run.Status),
		Partitions:  make([]PartitionOutput, 0, len(res.Outcomes)),
	}
	for _, o := range res.Outcomes {
		p := PartitionOutput{
			Schema:    o.Schema,
			Partition: o.Key,
			Passed:    o.Passed(),
			ElapsedMS: o.Elapsed.Milliseconds(),
		}
		if o.Err != nil {
			p.Error = o.Err.Error()
		} else {
			for _, r := range o.Report.Results {
				p.Results = append(p.Results, ResultOutput{
					Constraint: r.Constraint,
					Column:     r.Column,
					Severity:   r.Severity.String(),
					Status:     string(r.Status()),
					Violations: r.Violations,
				})
			}
		}
		out.Partitions = append(out.Partitions, p)
	}
	return out
}

func renderCheck(r *output.Renderer, res *engine.RunResult, violations int, elapsed time.Duration) {
	mode := r.EffectiveMode()
	r.Header(1, fmt.Sprintf("Check run %s", res.Run.ID))
	r.Println(output.FormatKeyValue(mode, "Environment", res.Run.Environment))
	r.Println(output.FormatKeyValue(mode, "Status", r.Status(string(res.Run.Status))))
	r.Println()

	counts := make(map[core.CheckStatus]int)
	var rows [][]any
	for _, o := range res.Outcomes {
		if o.Err != nil {
			counts[core.CheckStatusErrored]++
			rows = append(rows, []any{o.Schema, o.Key, "-", "-", r.Status(string(core.CheckStatusErrored)), o.Err.Error()})
			continue
		}
		for _, result := range o.Report.Results {
			counts[result.Status()]++
			rows = append(rows, []any{o.Schema, o.Key, result.Label(), result.Severity.String(),
				r.Status(string(result.Status())), result.Violations})
		}
	}
	r.Table([]string{"Schema", "Partition", "Constraint", "Severity", "Status", "Violations"}, rows)

	if violations > 0 {
		renderViolations(r, res, violations)
	}

	r.Println()
	r.Printf("%d passed, %d warned, %d failed, %d errored in %s\n",
		counts[core.CheckStatusPassed], counts[core.CheckStatusWarned],
		counts[core.CheckStatusFailed], counts[core.CheckStatusErrored],
		elapsed.Round(time.Millisecond))
}

// renderViolations prints the first n violating rows of every failed
// constraint.
func renderViolations(r *output.Renderer, res *engine.RunResult, n int) {
	for _, o := range res.Outcomes {
		if o.Err != nil {
			continue
		}
		for _, result := range o.Report.Failed() {
			if result.Rows == nil {
				continue
			}
			r.Println()
			r.Header(2, fmt.Sprintf("%s[%s] %s", o.Schema, o.Key, result.Label()))
			t, err := result.Rows.Table()
			if err != nil {
				r.Warnf("cannot collect violating rows: %v", err)
				continue
			}
			head := t.Head(n)
			r.Table(head.Names(), head.Rows())
			if t.NumRows() > n {
				r.Printf("(%d of %d rows)\n", n, t.NumRows())
			}
		}
	}
}

// exportViolations writes the violating rows of every failed constraint to
// dir/<schema>/<partition>/<constraint>.arrow and returns the written paths.
func exportViolations(dir string, res *engine.RunResult) ([]string, error) {
	var written []string
	for _, o := range res.Outcomes {
		if o.Err != nil {
			continue
		}
		for _, result := range o.Report.Failed() {
			if result.Rows == nil {
				continue
			}
			t, err := result.Rows.Table()
			if err != nil {
				return written, fmt.Errorf("collect %s[%s] %s: %w", o.Schema, o.Key, result.Label(), err)
			}

			path := filepath.Join(dir, fileName(o.Schema), fileName(o.Key), fileName(result.Label())+".arrow")
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return written, fmt.Errorf("failed to create export directory: %w", err)
			}
			if err := writeArrowFile(path, t); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func writeArrowFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := t.WriteArrow(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

var fileNameReplacer = strings.NewReplacer("(", "_", ")", "", "/", "_", ",", "_", " ", "_", "*", "all")

func fileName(s string) string {
	return fileNameReplacer.Replace(s)
}

// RunOutput is a stored run in JSON/YAML output.
type RunOutput struct {
	ID          string     `json:"id" yaml:"id"`
	Environment string     `json:"environment" yaml:"environment"`
	Status      string     `json:"status" yaml:"status"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
}

func runHistory(cmd *cobra.Command, limit int) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := cmdCtx.Engine.History(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	r := cmdCtx.Renderer
	out := make([]RunOutput, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunOutput{
			ID:          run.ID,
			Environment: run.Environment,
			Status:      string(run.Status),
			StartedAt:   run.StartedAt,
			CompletedAt: run.CompletedAt,
			Error:       run.Error,
		})
	}
	if handled, err := r.Structured(out); handled || err != nil {
		return err
	}

	r.Header(1, fmt.Sprintf("Recent runs (%d)", len(runs)))
	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []any{run.ID, run.Environment, r.Status(string(run.Status)),
			run.StartedAt.Local().Format(time.DateTime), duration, run.Error})
	}
	r.Table([]string{"Run", "Environment", "Status", "Started", "Duration", "Error"}, rows)
	return nil
}
