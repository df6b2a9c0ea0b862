// Package runner drives selected collectors one at a time and streams their
// results to an output provider, containing every failure to the collector
// (or single result) that caused it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/praetorian-inc/vantage/pkg/selection"
	"github.com/praetorian-inc/vantage/pkg/types"
)

// PanicError wraps a value recovered from a collector or formatter panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

type Runner struct {
	Provider types.OutputProvider
	Logger   *slog.Logger
	// ID identifies the run. A random one is generated when unset.
	ID uuid.UUID
	// Now is overridable for tests.
	Now func() time.Time
}

func New(provider types.OutputProvider, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Provider: provider, Logger: logger, Now: time.Now}
}

// Run executes items in order. It never returns an error: collector and
// formatting failures are recorded in the summary. Cancelling ctx stops the
// run before the next collector starts.
func (r *Runner) Run(ctx context.Context, items []selection.Item, ec types.ExecutionContext) *Summary {
	now := r.Now
	if now == nil {
		now = time.Now
	}

	id := r.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	summary := &Summary{
		RunID:   id,
		Target:  ec.ComputerName,
		Started: now(),
	}
	if ec.Logger == nil {
		ec.Logger = r.Logger
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for _, rest := range items[i:] {
				summary.Reports = append(summary.Reports, Report{
					Name:   rest.Collector.Name,
					Status: StatusSkipped,
					Err:    err,
				})
			}
			r.Logger.Warn("run interrupted", "remaining", len(items)-i, "error", err)
			break
		}
		summary.Reports = append(summary.Reports, r.runOne(ctx, item, ec, now))
	}

	summary.Elapsed = now().Sub(summary.Started)
	return summary
}

// RunSelection runs sel.Items and records sel.Warnings in the summary.
func (r *Runner) RunSelection(ctx context.Context, sel selection.Selection, ec types.ExecutionContext) *Summary {
	summary := r.Run(ctx, sel.Items, ec)
	summary.Warnings = slices.Clone(sel.Warnings)
	return summary
}

func (r *Runner) runOne(ctx context.Context, item selection.Item, ec types.ExecutionContext, now func() time.Time) Report {
	c := item.Collector
	report := Report{Name: c.Name, Status: StatusOK}
	start := now()
	log := r.Logger.With("collector", c.Name)

	err := r.guard(func() { r.Provider.Begin(c) })
	if err == nil {
		err = r.drain(ctx, item, ec, &report, log)
	}
	if endErr := r.guard(func() { r.Provider.End(c, err) }); endErr != nil && err == nil {
		err = endErr
	}

	report.Elapsed = now().Sub(start)
	if err != nil {
		report.Status = StatusFailed
		report.Err = err
		log.Error("collector failed", "error", err, "results", report.Results)
	} else {
		log.Debug("collector finished", "results", report.Results, "elapsed", report.Elapsed)
	}
	return report
}

// drain pulls the collector's sequence to completion. A yielded error or a
// panic inside the collector ends this collector only.
func (r *Runner) drain(ctx context.Context, item selection.Item, ec types.ExecutionContext, report *Report, log *slog.Logger) (err error) {
	c := item.Collector
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()

	seq := c.Invoke(ctx, item.Args, ec)
	if seq == nil {
		return errors.New("collector returned no result sequence")
	}

	for result, yerr := range seq {
		if yerr != nil {
			return yerr
		}
		if types.IsNil(result) {
			continue
		}
		if ferr := r.emit(c, result); ferr != nil {
			report.FormatErrors++
			log.Warn("failed to format result", "shape", types.ShapeOf(result), "error", ferr)
			continue
		}
		report.Results++
	}
	return nil
}

// guard runs a provider callback, turning a panic into an error.
func (r *Runner) guard(fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

// emit isolates the provider so a panicking formatter cannot unwind the
// collector's iterator.
func (r *Runner) emit(c types.Collector, result types.Result) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return r.Provider.Emit(c, result)
}
