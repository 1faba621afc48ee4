// Package engine drives one or more economies forward in lockstep, one period
// at a time, and keeps the append-only time series they produce.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Engine runs the period loop on a single goroutine.
type Engine struct {
	Sim         *Simulation
	Interval    time.Duration // Wall-clock time per period while running
	ReportEvery int           // Log a period report every N periods; 0 disables

	// OnPeriod is called after every completed period, on the loop goroutine.
	OnPeriod func(row PeriodRow)

	running atomic.Bool
	stepMu  sync.Mutex // Serialises periods and their OnPeriod calls
}

// NewEngine creates a stopped engine with default settings.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:         sim,
		Interval:    time.Second,
		ReportEvery: 12,
	}
}

// SetRunning starts or pauses the loop. A pause takes effect after the
// period in flight completes.
func (e *Engine) SetRunning(on bool) {
	if e.running.Swap(on) != on {
		slog.Info("simulation running flag changed", "running", on, "period", e.Sim.Period())
	}
}

// Running reports whether the loop is advancing periods.
func (e *Engine) Running() bool { return e.running.Load() }

// Run drives the loop until ctx is cancelled. While the running flag is clear
// the loop idles and polls.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "period", e.Sim.Period(), "interval", e.Interval)
	defer func() {
		slog.Info("simulation engine stopped", "period", e.Sim.Period())
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if !e.Running() {
			if !sleepCtx(ctx, 100*time.Millisecond) {
				return nil
			}
			continue
		}

		start := time.Now()
		e.Step()

		if elapsed := time.Since(start); elapsed < e.Interval {
			if !sleepCtx(ctx, e.Interval-elapsed) {
				return nil
			}
		}
	}
}

// RunPeriods advances n periods back to back, ignoring the running flag.
func (e *Engine) RunPeriods(n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

// Step advances one period and notifies OnPeriod. Concurrent callers are
// serialised, so OnPeriod sees rows in period order.
func (e *Engine) Step() PeriodRow {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()
	return e.step()
}

// StepIfPaused advances one period only while the loop is paused. The check
// and the step hold the same lock as the loop's own steps.
func (e *Engine) StepIfPaused() (PeriodRow, bool) {
	e.stepMu.Lock()
	defer e.stepMu.Unlock()
	if e.Running() {
		return PeriodRow{}, false
	}
	return e.step(), true
}

func (e *Engine) step() PeriodRow {
	row := e.Sim.AdvancePeriod()
	if e.ReportEvery > 0 && row.Period%e.ReportEvery == 0 {
		report(row)
	}
	if e.OnPeriod != nil {
		e.OnPeriod(row)
	}
	return row
}

func report(row PeriodRow) {
	for _, er := range row.Economies {
		slog.Info("period report",
			"period", row.Period,
			"economy", er.Name,
			"gdp", humanize.CommafWithDigits(er.GDP, 2),
			"consumption", humanize.CommafWithDigits(er.Consumption, 2),
			"investment", humanize.CommafWithDigits(er.Investment, 2),
			"unemployment", humanize.FtoaWithDigits(er.Unemployment, 3),
			"population", humanize.Comma(int64(er.Population)),
			"matches", er.Matches,
			"failed_solves", er.FailedSolves,
			"replaced", er.Replaced,
		)
	}
}

// sleepCtx sleeps for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
