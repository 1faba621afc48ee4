// Simulation ties the economies together and advances them each period.
package engine

import (
	"fmt"
	"sync"

	"github.com/talgya/macrosim/internal/economy"
)

// Options are the period clock and demographic thresholds shared by all economies.
type Options struct {
	MonthsPerPeriod float64
	RetirementAge   float64
	DeathAge        float64
}

// DefaultOptions returns a monthly clock with retirement at 65 and death at 80.
func DefaultOptions() Options {
	return Options{MonthsPerPeriod: 1, RetirementAge: 65, DeathAge: 80}
}

// Simulation holds every economy and the history they have produced.
// Economies never share state; they only share the period counter.
type Simulation struct {
	Economies []*economy.Economy
	History   *History
	Options   Options

	mu     sync.RWMutex
	period int
}

// NewSimulation wraps already-built economies and records their construction
// state as row 0 of the history.
func NewSimulation(econs []*economy.Economy, opts Options) *Simulation {
	s := &Simulation{
		Economies: econs,
		History:   NewHistory(),
		Options:   opts,
	}
	s.History.Append(s.row())
	return s
}

// Build creates one economy per parameter set from a shared population.
func Build(params []economy.Params, pop economy.Population, seed int64, opts Options) (*Simulation, error) {
	if opts.MonthsPerPeriod <= 0 || opts.DeathAge <= 0 {
		return nil, fmt.Errorf("%w: months per period and death age must be positive", economy.ErrInvalidParams)
	}
	econs := make([]*economy.Economy, 0, len(params))
	for i, p := range params {
		e, err := economy.New(i, p, pop, seed)
		if err != nil {
			return nil, fmt.Errorf("economy %d (%s): %w", i, p.Name, err)
		}
		econs = append(econs, e)
	}
	return NewSimulation(econs, opts), nil
}

// Period returns the number of completed periods.
func (s *Simulation) Period() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

// AdvancePeriod runs every phase for every economy and appends one history row.
func (s *Simulation) AdvancePeriod() PeriodRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	years := s.Options.MonthsPerPeriod / 12
	for _, e := range s.Economies {
		e.FormDemand(years, s.Options.DeathAge)
		e.AllocateFactors()
		e.RunLabourMarket()
		e.Aggregate()
	}
	s.period++

	row := s.row()
	s.History.Append(row)
	return row
}

// View calls fn with the live economies while holding the read lock.
// fn must not retain the economies or modify them.
func (s *Simulation) View(fn func(period int, econs []*economy.Economy)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.period, s.Economies)
}

// row snapshots the current state; callers hold the lock or own s exclusively.
func (s *Simulation) row() PeriodRow {
	row := PeriodRow{
		Period:    s.period,
		Economies: make([]EconomyRow, len(s.Economies)),
	}
	for i, e := range s.Economies {
		row.Economies[i] = economyRow(e, s.Options.RetirementAge)
	}
	return row
}

func economyRow(e *economy.Economy, retirementAge float64) EconomyRow {
	r := EconomyRow{
		Economy:      e.ID,
		Name:         e.Name,
		GDP:          e.GDP,
		Consumption:  e.Consumption,
		Investment:   e.Investment,
		Unemployment: e.UnemploymentRate(),
		Population:   len(e.Workers),
		Retirees:     e.CountAtLeastAge(retirementAge),
		TaxRevenue:   e.Government.Revenue,
		Matches:      e.Matches,
		FailedSolves: e.FailedSolves,
		Replaced:     e.Replaced,
		Prices:       e.Prices(),
		Quantities:   make([]float64, len(e.Markets)),
	}
	for i, m := range e.Markets {
		r.Quantities[i] = m.QuantitySold
	}
	return r
}
