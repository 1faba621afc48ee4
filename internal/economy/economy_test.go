package economy

import (
	"errors"
	"math"
	"slices"
	"testing"
)

const monthYears = 1.0 / 12

func stepEconomy(e *Economy, deathAge float64) {
	e.FormDemand(monthYears, deathAge)
	e.AllocateFactors()
	e.RunLabourMarket()
	e.Aggregate()
}

func TestNew_SeedsHalfTheWorkforce(t *testing.T) {
	e := newTestEconomy(t, DefaultParams(2, 1), 100, 7)

	if got := len(e.Workers); got != 100 {
		t.Fatalf("workers=%d want=100", got)
	}
	if got := e.Employed(); got != 50 {
		t.Fatalf("employed=%d want=50", got)
	}
	if got := len(e.Unemployed); got != 50 {
		t.Fatalf("unemployed=%d want=50", got)
	}
	if err := e.Audit(); err != nil {
		t.Fatalf("Audit: %v", err)
	}
	for _, w := range e.Workers {
		for m := range w.Holdings {
			for f := range w.Holdings[m] {
				if w.Holdings[m][f] != 0.01 {
					t.Fatalf("worker %d holds %v of firm %d/%d want 0.01", w.ID, w.Holdings[m][f], m, f)
				}
			}
		}
	}
}

func TestNew_RejectsInvalidInput(t *testing.T) {
	good := DefaultParams(2, 1)
	pop := DrawPopulation(10, 2, DefaultDemographics(), 1)

	tests := []struct {
		name string
		p    Params
		pop  Population
	}{
		{"no goods", func() Params { p := good; p.Goods = 0; return p }(), pop},
		{"negative efficiency", func() Params { p := good; p.MatchingEfficiency = -1; return p }(), pop},
		{"goods tax size", func() Params { p := good; p.GoodsTax = []float64{0.1}; return p }(), pop},
		{"empty population", good, Population{}},
		{"ragged population", good, Population{Weights: pop.Weights, Productivity: pop.Productivity, Ages: pop.Ages[:3]}},
		{"weights for wrong goods", good, DrawPopulation(10, 3, DefaultDemographics(), 1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(0, tc.p, tc.pop, 1); !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("err=%v want ErrInvalidParams", err)
			}
		})
	}
}

// checkTurnover verifies the partition and share sums between turnover and
// aggregation, before markets have cleared for the period.
func checkTurnover(t *testing.T, e *Economy) {
	t.Helper()
	if err := e.checkPartition(); err != nil {
		t.Fatalf("partition: %v", err)
	}
	if err := e.checkShares(); err != nil {
		t.Fatalf("shares: %v", err)
	}
}

func TestFormDemand_ReplacesWorkerAtDeathAge(t *testing.T) {
	e := newTestEconomy(t, DefaultParams(2, 1), 50, 11)
	for _, w := range e.Workers {
		w.Age = 20
	}

	// Pick an employed worker so both sides of the partition are exercised.
	var old *Worker
	for _, w := range e.Workers {
		if w.Employed() {
			old = w
			break
		}
	}
	old.Age = 80
	oldID := old.ID
	oldWeights := slices.Clone(old.Weights)
	employer := e.Firm(*old.Employer)
	nextID := e.spawner.NextID()

	e.FormDemand(monthYears, 80)

	if e.Replaced != 1 {
		t.Fatalf("replaced=%d want=1", e.Replaced)
	}
	if e.Worker(oldID) != nil {
		t.Fatalf("dead worker %d still indexed", oldID)
	}
	for _, w := range e.Workers {
		if w.ID == oldID {
			t.Fatalf("dead worker %d still in population", oldID)
		}
	}
	if slices.Contains(e.Unemployed, oldID) || slices.Contains(employer.Employees, oldID) {
		t.Fatalf("dead worker %d still in unemployed list or employer roster", oldID)
	}

	born := e.Worker(nextID)
	if born == nil {
		t.Fatalf("replacement worker %d missing", nextID)
	}
	if born.Age != 0 || born.Employed() || !slices.Equal(born.Weights, oldWeights) {
		t.Fatalf("replacement age=%v employed=%v weights=%v want 0/false/%v",
			born.Age, born.Employed(), born.Weights, oldWeights)
	}
	if !slices.Contains(e.Unemployed, nextID) {
		t.Fatalf("replacement worker not unemployed")
	}
	if born.Productivity <= 0 {
		t.Fatalf("replacement productivity=%v", born.Productivity)
	}
	if len(e.Workers) != 50 {
		t.Fatalf("population=%d want=50", len(e.Workers))
	}
	checkTurnover(t, e)
}

func TestFormDemand_SharesStayFullyAllocated(t *testing.T) {
	e := newTestEconomy(t, DefaultParams(2, 2), 40, 13)
	for i, w := range e.Workers {
		w.Age = 30
		if i%3 == 0 {
			w.Age = 85
		}
	}
	e.FormDemand(monthYears, 80)
	if e.Replaced != 14 {
		t.Fatalf("replaced=%d want=14", e.Replaced)
	}
	checkTurnover(t, e)

	e.AllocateFactors()
	e.RunLabourMarket()
	e.Aggregate()
	if err := e.Audit(); err != nil {
		t.Fatalf("Audit after aggregation: %v", err)
	}
	for _, w := range e.Workers {
		if w.Age != 0 {
			continue
		}
		for m := range w.Holdings {
			for f := range w.Holdings[m] {
				if w.Holdings[m][f] != 0 {
					t.Fatalf("newborn %d inherited shares", w.ID)
				}
			}
		}
	}
}

func TestFormDemand_WholePopulationDies(t *testing.T) {
	e := newTestEconomy(t, DefaultParams(1, 1), 4, 17)
	for _, w := range e.Workers {
		w.Age = 90
	}
	e.FormDemand(monthYears, 80)
	if e.Replaced != 4 || len(e.Workers) != 4 || len(e.Unemployed) != 4 {
		t.Fatalf("replaced=%d workers=%d unemployed=%d", e.Replaced, len(e.Workers), len(e.Unemployed))
	}
	checkTurnover(t, e)
}

func TestFormDemand_ResetsAndSumsDemand(t *testing.T) {
	p := DefaultParams(2, 1)
	p.ConsumptionTax = 0.25
	e := newTestEconomy(t, p, 20, 19)
	want := make([]float64, 2)
	for _, w := range e.Workers {
		w.Age = 30
		w.Consumption = 10
		for i, q := range w.DemandVector([]float64{1, 1}) {
			want[i] += q
		}
	}
	e.Markets[0].QuantityDemanded = 1e9

	e.FormDemand(monthYears, 80)
	for i, m := range e.Markets {
		if !approx(m.QuantityDemanded, want[i], 1e-12) {
			t.Fatalf("market %d demanded=%v want=%v", i, m.QuantityDemanded, want[i])
		}
		if m.Price != 1 {
			t.Fatalf("market %d price=%v want=1", i, m.Price)
		}
	}
}

func TestAggregate_NationalAccounts(t *testing.T) {
	p := DefaultParams(2, 1)
	p.SavingsRateMin, p.SavingsRateMax = 0.1, 0.3
	p.IncomeTax = 0.2
	e := newTestEconomy(t, p, 100, 23)

	for period := 0; period < 24; period++ {
		stepEconomy(e, 80)

		c, inv := 0.0, 0.0
		for _, w := range e.Workers {
			c += w.Consumption
			inv += w.Investment
		}
		if e.GDP != e.Consumption+e.Investment {
			t.Fatalf("period %d: gdp=%v want consumption+investment=%v", period, e.GDP, e.Consumption+e.Investment)
		}
		if !approx(c+inv, e.GDP, 1e-9) {
			t.Fatalf("period %d: worker totals %v vs gdp %v", period, c+inv, e.GDP)
		}
		if err := e.Audit(); err != nil {
			t.Fatalf("period %d: Audit: %v", period, err)
		}
	}
}

func TestAggregate_LabourIncomeSharedByProductivity(t *testing.T) {
	p := DefaultParams(1, 1)
	e := newTestEconomy(t, p, 10, 29)
	for _, w := range e.Workers {
		w.Age = 30
	}
	stepEconomy(e, 80)

	f := e.Markets[0].Firms[0]
	paid := 0.0
	for _, id := range f.Employees {
		w := e.Worker(id)
		paid += w.LabourIncome
		want := w.EffectiveLabour() / f.Labour * f.LabourIncome
		if !approx(w.LabourIncome, want, 1e-12) {
			t.Fatalf("worker %d labour income=%v want=%v", id, w.LabourIncome, want)
		}
	}
	if !approx(paid, f.LabourIncome, 1e-9) {
		t.Fatalf("paid %v of labour income %v", paid, f.LabourIncome)
	}
	capital := 0.0
	for _, w := range e.Workers {
		capital += w.CapitalIncome
	}
	if !approx(capital, f.CapitalIncome, 1e-9) {
		t.Fatalf("capital income paid=%v want=%v", capital, f.CapitalIncome)
	}
}

func TestAggregate_TaxRevenue(t *testing.T) {
	p := DefaultParams(2, 1)
	p.IncomeTax = 0.1
	p.GoodsTax = []float64{0, 0.5}
	e := newTestEconomy(t, p, 30, 31)
	stepEconomy(e, 80)

	gross := 0.0
	for _, w := range e.Workers {
		gross += w.LabourIncome + w.CapitalIncome
	}
	if e.Government.Revenue < 0.1*gross-1e-9 {
		t.Fatalf("revenue=%v below income tax %v", e.Government.Revenue, 0.1*gross)
	}
	if math.IsNaN(e.Government.Revenue) {
		t.Fatalf("revenue is NaN")
	}
}

func TestFormDemand_TaxesDoNotChangeDemand(t *testing.T) {
	p := DefaultParams(2, 1)
	p.ConsumptionTax = 0.25
	e := newTestEconomy(t, p, 2, 23)
	for _, w := range e.Workers {
		w.Age = 30
		w.Consumption = 10
		w.Weights = []float64{0.5, 0.5}
	}
	e.FormDemand(monthYears, 80)
	for i, m := range e.Markets {
		if !approx(m.QuantityDemanded, 10, 1e-12) {
			t.Fatalf("market %d demanded=%v want=10", i, m.QuantityDemanded)
		}
	}
}

func TestGoodsTaxRevenue(t *testing.T) {
	p := DefaultParams(2, 1)
	p.ConsumptionTax = 0.1
	p.GoodsTax = []float64{0, 0.5}
	e := newTestEconomy(t, p, 3, 29)
	for _, w := range e.Workers {
		w.Consumption = 0
	}
	w := e.Workers[0]
	w.Consumption = 20
	w.Weights = []float64{1, 3}

	// 5 spent on good 0 at 10%, 15 on good 1 at 60%.
	if got, want := e.goodsTaxRevenue(), 0.5+9.0; !approx(got, want, 1e-12) {
		t.Fatalf("goods tax revenue=%v want=%v", got, want)
	}
}

func TestAllocateFactors_KeepsTargetsOnFailure(t *testing.T) {
	p := DefaultParams(1, 2)
	p.InterestRate = 0
	e := newTestEconomy(t, p, 10, 37)
	e.Markets[0].Firms[0].TargetL, e.Markets[0].Firms[0].TargetK = 3, 4

	e.AllocateFactors()
	if e.FailedSolves != 2 {
		t.Fatalf("failed solves=%d want=2", e.FailedSolves)
	}
	f := e.Markets[0].Firms[0]
	if f.TargetL != 3 || f.TargetK != 4 {
		t.Fatalf("targets=(%v, %v) want (3, 4)", f.TargetL, f.TargetK)
	}
}
