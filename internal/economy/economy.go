package economy

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"
)

// Economy is one closed macroeconomy: its government, goods markets, firms,
// workers and labour market. All aggregates are recomputed every period.
type Economy struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	GDP          float64 `json:"gdp"`
	Consumption  float64 `json:"consumption"`
	Investment   float64 `json:"investment"`
	InterestRate float64 `json:"interest_rate"`

	Government *Government `json:"government"`
	Markets    []*Market   `json:"markets"`
	Workers    []*Worker   `json:"-"`

	// Unemployed lists the IDs of workers without an employer, in arrival order.
	Unemployed []WorkerID `json:"-"`

	Vacancies          float64 `json:"vacancies"`
	MatchingEfficiency float64 `json:"matching_efficiency"`

	// Last period's bookkeeping.
	Matches      int `json:"matches"`
	FailedSolves int `json:"failed_solves"`
	Replaced     int `json:"replaced"`

	params  Params
	index   map[WorkerID]*Worker
	rng     *rand.Rand
	spawner *Spawner
}

// New builds an economy from its parameters and population and seeds initial
// employment by running the matching procedure once for a fixed share of workers.
// Every worker starts with an equal claim on every firm.
func New(id int, p Params, pop Population, seed int64) (*Economy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := pop.validate(p.Goods); err != nil {
		return nil, err
	}

	e := &Economy{
		ID:                 id,
		Name:               p.Name,
		InterestRate:       p.InterestRate,
		Government:         NewGovernment(p.Goods, p.IncomeTax, p.ConsumptionTax, p.GoodsTax),
		Markets:            make([]*Market, p.Goods),
		MatchingEfficiency: p.MatchingEfficiency,
		params:             p,
		index:              make(map[WorkerID]*Worker, pop.Size()),
		rng:                rand.New(rand.NewSource(seed + int64(id)*7919)),
		spawner:            NewSpawner(seed+int64(id)*7919, p),
	}
	for g := range e.Markets {
		e.Markets[g] = NewMarket(g, p)
	}

	n := pop.Size()
	e.Workers = make([]*Worker, 0, n)
	e.Unemployed = make([]WorkerID, 0, n)
	for i := 0; i < n; i++ {
		w := e.spawner.Spawn(pop.Productivity[i], pop.Ages[i], pop.Weights[i])
		for m := range w.Holdings {
			for f := range w.Holdings[m] {
				w.Holdings[m][f] = 1 / float64(n)
			}
		}
		e.Workers = append(e.Workers, w)
		e.index[w.ID] = w
		e.Unemployed = append(e.Unemployed, w.ID)
	}

	e.postVacancies()
	seeded := e.runMatches(int(float64(n) * p.InitialEmployment))
	slog.Debug("economy created",
		"economy", e.ID,
		"name", e.Name,
		"workers", n,
		"markets", len(e.Markets),
		"firms_per_market", p.FirmsPerMarket,
		"seeded_matches", seeded,
	)
	return e, nil
}

// Params returns the parameters the economy was built with.
func (e *Economy) Params() Params { return e.params }

// Firm looks up a firm in the registry.
func (e *Economy) Firm(id FirmID) *Firm {
	if id.Market < 0 || id.Market >= len(e.Markets) {
		return nil
	}
	firms := e.Markets[id.Market].Firms
	if id.Index < 0 || id.Index >= len(firms) {
		return nil
	}
	return firms[id.Index]
}

// Worker looks up a worker by ID. Returns nil for workers no longer in the economy.
func (e *Economy) Worker(id WorkerID) *Worker {
	return e.index[id]
}

// EachFirm calls fn for every firm in market then firm order.
func (e *Economy) EachFirm(fn func(f *Firm)) {
	for _, m := range e.Markets {
		for _, f := range m.Firms {
			fn(f)
		}
	}
}

// Prices returns the current posted price of each good.
func (e *Economy) Prices() []float64 {
	prices := make([]float64, len(e.Markets))
	for i, m := range e.Markets {
		prices[i] = m.Price
	}
	return prices
}

// Employed returns the number of workers with an employer.
func (e *Economy) Employed() int {
	n := 0
	e.EachFirm(func(f *Firm) { n += len(f.Employees) })
	return n
}

// UnemploymentRate is the unemployed share of the population.
func (e *Economy) UnemploymentRate() float64 {
	if len(e.Workers) == 0 {
		return 0
	}
	return float64(len(e.Unemployed)) / float64(len(e.Workers))
}

// CountAtLeastAge returns how many workers are at or above the given age.
func (e *Economy) CountAtLeastAge(age float64) int {
	n := 0
	for _, w := range e.Workers {
		if w.Age >= age {
			n++
		}
	}
	return n
}

// FormDemand runs the demand side of a period: markets post prices, workers age
// and are replaced at deathAge, and survivors' demand at the posted prices is
// summed into each market.
func (e *Economy) FormDemand(years, deathAge float64) {
	for _, m := range e.Markets {
		m.QuantityDemanded = 0
		m.Price = m.ResolvePrice()
	}

	e.Replaced = e.ageAndReplace(years, deathAge)

	prices := e.Prices()
	for _, w := range e.Workers {
		for i, q := range w.DemandVector(prices) {
			e.Markets[i].QuantityDemanded += q
		}
	}
}

// AllocateFactors has every firm re-solve its cost-minimising plan against the
// quantity its market sold last period. Failed solves keep the previous targets.
func (e *Economy) AllocateFactors() {
	e.FailedSolves = 0
	for _, m := range e.Markets {
		for _, f := range m.Firms {
			l, k, err := f.CostMinimize(m.Price, e.InterestRate, m.QuantitySold)
			if err != nil {
				e.FailedSolves++
				slog.Debug("cost minimisation failed, keeping targets",
					"economy", e.ID, "firm", f.ID.String(), "error", err)
				continue
			}
			f.TargetL, f.TargetK = l, k
		}
	}
}

// RunLabourMarket posts vacancies and performs the period's matches.
func (e *Economy) RunLabourMarket() {
	e.postVacancies()
	e.Matches = e.runMatches(e.MatchCount())
}

// Aggregate clears markets, pays factor incomes and sums the national accounts.
func (e *Economy) Aggregate() {
	for _, m := range e.Markets {
		m.ClearingOutput()
		for _, f := range m.Firms {
			f.SettleIncome(m.Price, m.QuantitySupplied)
		}
	}

	e.Consumption = 0
	e.Investment = 0
	revenue := 0.0
	for _, w := range e.Workers {
		e.updateIncome(w)
		e.Consumption += w.Consumption
		e.Investment += w.Investment
		revenue += (w.LabourIncome + w.CapitalIncome) * e.Government.IncomeTax
	}
	e.GDP = e.Consumption + e.Investment
	e.Government.Revenue = revenue + e.goodsTaxRevenue()
}

// updateIncome recomputes one worker's earnings from its employer and share holdings.
func (e *Economy) updateIncome(w *Worker) {
	labour := 0.0
	if w.Employer != nil {
		if f := e.Firm(*w.Employer); f != nil && f.Labour > 0 {
			labour = w.EffectiveLabour() / f.Labour * f.LabourIncome
		}
	}
	capital := 0.0
	for m, row := range w.Holdings {
		for j, frac := range row {
			if frac == 0 {
				continue
			}
			capital += e.Markets[m].Firms[j].CapitalIncome * frac
		}
	}
	w.settleIncome(labour, capital, e.Government.IncomeTax)
}

// goodsTaxRevenue is the consumption and goods tax levied on spending at posted
// prices, with spending split by each worker's preference weights.
func (e *Economy) goodsTaxRevenue() float64 {
	total := 0.0
	for _, w := range e.Workers {
		sum := 0.0
		for _, b := range w.Weights {
			sum += b
		}
		if sum <= 0 || w.Consumption <= 0 {
			continue
		}
		for i, b := range w.Weights {
			total += w.Consumption * b / sum * e.Government.GoodTax(i)
		}
	}
	return total
}

// Audit checks the bookkeeping invariants: the employed/unemployed partition,
// full allocation of every firm's shares and market clearing. Market clearing
// only holds once Aggregate has run for the period.
func (e *Economy) Audit() error {
	var errs []error
	if err := e.checkPartition(); err != nil {
		errs = append(errs, err)
	}
	for _, m := range e.Markets {
		if m.QuantitySold != min(m.QuantitySupplied, m.QuantityDemanded) {
			errs = append(errs, fmt.Errorf("market %d: sold %g, supplied %g, demanded %g",
				m.Good, m.QuantitySold, m.QuantitySupplied, m.QuantityDemanded))
		}
	}
	if err := e.checkShares(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// checkShares verifies every firm's shares sum to one across the population.
func (e *Economy) checkShares() error {
	var errs []error
	e.EachFirm(func(f *Firm) {
		sum := 0.0
		for _, w := range e.Workers {
			sum += w.Holdings[f.ID.Market][f.ID.Index]
		}
		if math.Abs(sum-1) > 1e-9 {
			errs = append(errs, fmt.Errorf("%s: shares allocated %g, want 1", f.ID, sum))
		}
	})
	return errors.Join(errs...)
}

func (e *Economy) checkPartition() error {
	seen := make(map[WorkerID]bool, len(e.Workers))
	for _, id := range e.Unemployed {
		w := e.index[id]
		if w == nil {
			return fmt.Errorf("unemployed worker %d is not in the population", id)
		}
		if w.Employer != nil {
			return fmt.Errorf("worker %d is unemployed but has employer %s", id, *w.Employer)
		}
		if seen[id] {
			return fmt.Errorf("worker %d listed twice", id)
		}
		seen[id] = true
	}
	var err error
	e.EachFirm(func(f *Firm) {
		for _, id := range f.Employees {
			w := e.index[id]
			switch {
			case err != nil:
			case w == nil:
				err = fmt.Errorf("%s employs missing worker %d", f.ID, id)
			case w.Employer == nil || *w.Employer != f.ID:
				err = fmt.Errorf("%s employs worker %d whose employer disagrees", f.ID, id)
			case seen[id]:
				err = fmt.Errorf("worker %d listed twice", id)
			default:
				seen[id] = true
			}
		}
	})
	if err != nil {
		return err
	}
	if len(seen) != len(e.Workers) || len(e.index) != len(e.Workers) {
		return fmt.Errorf("partition covers %d of %d workers", len(seen), len(e.Workers))
	}
	return nil
}

// mustPartition panics when the employed/unemployed partition is broken.
func (e *Economy) mustPartition() {
	if err := e.checkPartition(); err != nil {
		panic(fmt.Sprintf("economy %d: worker partition violated: %v", e.ID, err))
	}
}

func removeID(ids []WorkerID, id WorkerID) ([]WorkerID, bool) {
	i := slices.Index(ids, id)
	if i < 0 {
		return ids, false
	}
	return slices.Delete(ids, i, i+1), true
}
