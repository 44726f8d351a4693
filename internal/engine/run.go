package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapqa/pkg/core"
	"github.com/leapstack-labs/leapqa/pkg/partition"
	"github.com/leapstack-labs/leapqa/pkg/schema"
)

// erroredConstraint names the stored result of a partition whose check could
// not be evaluated.
const erroredConstraint = "*"

// CheckOptions selects what a run checks.
type CheckOptions struct {
	// Schemas to check; empty means every schema.
	Schemas []string
	// Keys to check each schema at. Empty means every key of the schema's
	// partition. Unpartitioned schemas are checked once whatever the keys.
	Keys []any
	// Anchor resolves offset keys to absolute ones.
	Anchor any
}

// Outcome is the check of one schema at one partition key.
type Outcome struct {
	Schema  string
	Key     string
	Report  *schema.Report
	Err     error
	Elapsed time.Duration
}

// Passed reports whether the partition was evaluated and no blocking
// constraint failed.
func (o *Outcome) Passed() bool {
	return o.Err == nil && o.Report.Passed()
}

// RunResult is the outcome of a run.
type RunResult struct {
	Run      *core.Run
	Outcomes []*Outcome
}

// Failed returns the outcomes that errored or failed a blocking constraint.
func (r *RunResult) Failed() []*Outcome {
	var out []*Outcome
	for _, o := range r.Outcomes {
		if !o.Passed() {
			out = append(out, o)
		}
	}
	return out
}

type task struct {
	schema *schema.Schema
	key    any
}

// Check evaluates the selected schemas over their partitions, at most
// Threads partitions at a time, and records the run.
//
// The returned error joins every evaluation error and every
// *schema.ViolationError of the run. Warnings never produce an error.
func (e *Engine) Check(ctx context.Context, opts CheckOptions) (*RunResult, error) {
	schemas, err := e.suite.Schemas(opts.Schemas...)
	if err != nil {
		return nil, err
	}

	e.logger.Info("starting run", "environment", e.environment, "schemas", len(schemas))

	run, err := e.store.CreateRun(e.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.logger.Debug("created run", "run_id", run.ID)

	tasks, err := plan(schemas, opts.Keys)
	if err != nil {
		_ = e.store.CompleteRun(run.ID, core.RunStatusFailed, err.Error())
		run, _ = e.store.GetRun(run.ID)
		return &RunResult{Run: run}, err
	}

	outcomes := e.execute(ctx, tasks, opts.Anchor)

	var errs []error
	for _, o := range outcomes {
		if err := e.record(run.ID, o); err != nil {
			e.logger.Warn("failed to record result", "schema", o.Schema, "key", o.Key, "error", err)
		}
		switch {
		case o.Err != nil:
			errs = append(errs, o.Err)
		case o.Report.Err() != nil:
			errs = append(errs, o.Report.Err())
		}
	}
	runErr := errors.Join(errs...)

	switch {
	case ctx.Err() != nil:
		e.logger.Info("run cancelled", "run_id", run.ID)
		_ = e.store.CompleteRun(run.ID, core.RunStatusCancelled, ctx.Err().Error())
	case runErr != nil:
		e.logger.Info("run failed", "run_id", run.ID, "failures", len(errs))
		_ = e.store.CompleteRun(run.ID, core.RunStatusFailed, fmt.Sprintf("%d partition(s) failed", len(errs)))
	default:
		e.logger.Info("run completed", "run_id", run.ID, "partitions", len(outcomes))
		_ = e.store.CompleteRun(run.ID, core.RunStatusCompleted, "")
	}

	if stored, err := e.store.GetRun(run.ID); err == nil {
		run = stored
	}
	return &RunResult{Run: run, Outcomes: outcomes}, runErr
}

// plan lists the (schema, key) pairs of a run in schema order, then key
// order. Keys that resolve to the same partition are checked once.
func plan(schemas []*schema.Schema, keys []any) ([]task, error) {
	var tasks []task
	for _, s := range schemas {
		candidates := keys
		if len(candidates) == 0 {
			var err error
			if candidates, err = partition.Keys(s.Partition()); err != nil {
				return nil, fmt.Errorf("schema %s: %w", s.Name(), err)
			}
		}
		seen := make(map[string]bool)
		for _, key := range candidates {
			resolved, isOffset, err := s.Partition().Resolve(key)
			if err != nil {
				return nil, fmt.Errorf("schema %s: %w", s.Name(), err)
			}
			id := schema.FormatKey(resolved)
			if isOffset {
				id = "offset:" + id
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			tasks = append(tasks, task{schema: s, key: key})
		}
	}
	return tasks, nil
}

// execute checks every task and returns the outcomes in task order.
func (e *Engine) execute(ctx context.Context, tasks []task, anchor any) []*Outcome {
	outcomes := make([]*Outcome, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.threads)

	var mu sync.Mutex
	for i, t := range tasks {
		g.Go(func() error {
			o := e.checkOne(gctx, t, anchor)
			mu.Lock()
			outcomes[i] = o
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Engine) checkOne(ctx context.Context, t task, anchor any) *Outcome {
	start := time.Now()
	o := &Outcome{Schema: t.schema.Name(), Key: schema.FormatKey(t.key)}
	defer func() { o.Elapsed = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}

	var opts []schema.InstanceOption
	if anchor != nil {
		opts = append(opts, schema.WithAnchor(anchor))
	}
	inst, err := t.schema.New(ctx, t.key, opts...)
	if err != nil {
		o.Err = err
		return o
	}
	o.Key = schema.FormatKey(inst.Key())

	report, err := inst.Check()
	if err != nil {
		o.Err = err
		e.logger.Debug("partition errored", "schema", o.Schema, "key", o.Key, "error", err)
		return o
	}
	o.Report = report
	e.logger.Debug("partition checked", "schema", o.Schema, "key", o.Key, "passed", report.Passed())
	return o
}

// record stores one row per constraint, or a single errored row when the
// partition could not be evaluated.
func (e *Engine) record(runID string, o *Outcome) error {
	if o.Err != nil {
		return e.store.RecordCheckResult(&core.CheckResult{
			RunID:       runID,
			Schema:      o.Schema,
			Partition:   o.Key,
			Constraint:  erroredConstraint,
			Severity:    core.SeverityError,
			Status:      core.CheckStatusErrored,
			Error:       o.Err.Error(),
			ExecutionMS: o.Elapsed.Milliseconds(),
		})
	}

	var errs []error
	for _, r := range o.Report.Results {
		errs = append(errs, e.store.RecordCheckResult(&core.CheckResult{
			RunID:       runID,
			Schema:      o.Schema,
			Partition:   o.Key,
			Constraint:  r.Constraint,
			Column:      r.Column,
			Severity:    r.Severity,
			Status:      r.Status(),
			Violations:  int64(r.Violations),
			ExecutionMS: r.Elapsed.Milliseconds(),
		}))
	}
	return errors.Join(errs...)
}

// Partitions lists the keys of a schema's partition in iteration order.
func (e *Engine) Partitions(name string) ([]string, error) {
	s, err := e.suite.Registry().Get(name)
	if err != nil {
		return nil, err
	}
	all, err := partition.Keys(s.Partition())
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(all))
	for i, key := range all {
		keys[i] = schema.FormatKey(key)
	}
	return keys, nil
}

// History returns the most recent runs, newest first.
func (e *Engine) History(limit int) ([]*core.Run, error) {
	return e.store.ListRuns(limit)
}

// RunResults returns the stored results of a run.
func (e *Engine) RunResults(runID string) ([]*core.CheckResult, error) {
	return e.store.GetCheckResultsForRun(runID)
}
