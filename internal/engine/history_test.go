package engine

import (
	"errors"
	"testing"

	"github.com/talgya/macrosim/internal/economy"
)

func TestHistory_AlignedByPeriod(t *testing.T) {
	sim := buildSim(t, []economy.Params{economy.DefaultParams(3, 2)}, 40)
	for i := 0; i < 10; i++ {
		sim.AdvancePeriod()
	}

	if got := sim.History.Len(); got != 11 {
		t.Fatalf("rows=%d want=11", got)
	}
	for i, row := range sim.History.Rows() {
		if row.Period != i {
			t.Fatalf("row %d has period %d", i, row.Period)
		}
	}
	for _, s := range []Series{SeriesGDP, SeriesConsumption, SeriesInvestment, SeriesUnemployment, SeriesPopulation, SeriesRetirees, SeriesTaxRevenue} {
		v, err := sim.History.Series(0, s)
		if err != nil {
			t.Fatalf("Series(%s): %v", s, err)
		}
		if len(v) != 11 {
			t.Fatalf("Series(%s) len=%d want=11", s, len(v))
		}
	}
	pop, _ := sim.History.Series(0, SeriesPopulation)
	for i, v := range pop {
		if v != 40 {
			t.Fatalf("population[%d]=%v want=40", i, v)
		}
	}
	prices, err := sim.History.GoodSeries(0, 2, GoodPrice)
	if err != nil {
		t.Fatalf("GoodSeries: %v", err)
	}
	for i, p := range prices {
		if p != 1 {
			t.Fatalf("price[%d]=%v want=1", i, p)
		}
	}
	qty, err := sim.History.GoodSeries(0, 0, GoodQuantity)
	if err != nil || len(qty) != 11 {
		t.Fatalf("GoodSeries quantity len=%d err=%v", len(qty), err)
	}
	if qty[0] != 1 {
		t.Fatalf("construction quantity=%v want=1", qty[0])
	}
}

func TestHistory_EmptyKnowsNoEconomies(t *testing.T) {
	h := NewHistory()
	if _, err := h.Series(0, SeriesGDP); !errors.Is(err, ErrUnknownEconomy) {
		t.Fatalf("Series err=%v want ErrUnknownEconomy", err)
	}
	if _, err := h.GoodSeries(3, 0, GoodPrice); !errors.Is(err, ErrUnknownEconomy) {
		t.Fatalf("GoodSeries err=%v want ErrUnknownEconomy", err)
	}
	if _, err := h.Series(0, "wealth"); !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("unknown series err=%v want ErrUnknownSeries", err)
	}
}

func TestHistory_Errors(t *testing.T) {
	h := NewHistory()
	h.Append(PeriodRow{Economies: []EconomyRow{{Prices: []float64{1}, Quantities: []float64{1}}}})

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"unknown series", func() error { _, err := h.Series(0, "wages"); return err }, ErrUnknownSeries},
		{"economy out of range", func() error { _, err := h.Series(3, SeriesGDP); return err }, ErrUnknownEconomy},
		{"negative economy", func() error { _, err := h.GoodSeries(-1, 0, GoodPrice); return err }, ErrUnknownEconomy},
		{"good out of range", func() error { _, err := h.GoodSeries(0, 1, GoodPrice); return err }, ErrUnknownEconomy},
		{"unknown measure", func() error { _, err := h.GoodSeries(0, 0, "volume"); return err }, ErrUnknownSeries},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want=%v", err, tc.want)
			}
		})
	}
}

func TestHistory_Range(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 5; i++ {
		h.Append(PeriodRow{Period: i})
	}
	tests := []struct {
		from, to  int
		wantFirst int
		wantLen   int
	}{
		{0, -1, 0, 5},
		{1, 3, 1, 3},
		{3, 100, 3, 2},
		{-4, 0, 0, 1},
		{4, 2, 0, 0},
	}
	for _, tc := range tests {
		got := h.Range(tc.from, tc.to)
		if len(got) != tc.wantLen {
			t.Fatalf("Range(%d,%d) len=%d want=%d", tc.from, tc.to, len(got), tc.wantLen)
		}
		if tc.wantLen > 0 && got[0].Period != tc.wantFirst {
			t.Fatalf("Range(%d,%d) first=%d want=%d", tc.from, tc.to, got[0].Period, tc.wantFirst)
		}
	}

	rows := h.Rows()
	rows[0].Period = 99
	if first := h.Range(0, 0)[0].Period; first != 0 {
		t.Fatalf("Rows returned shared storage, first period=%d", first)
	}
}
