package engine

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownSeries is returned for a series or good measure that does not exist.
	ErrUnknownSeries = errors.New("engine: unknown series")
	// ErrUnknownEconomy is returned for an economy or good index out of range.
	ErrUnknownEconomy = errors.New("engine: unknown economy")
)

// EconomyRow is one economy's observations at the end of a period.
type EconomyRow struct {
	Economy      int       `json:"economy"`
	Name         string    `json:"name"`
	GDP          float64   `json:"gdp"`
	Consumption  float64   `json:"consumption"`
	Investment   float64   `json:"investment"`
	Unemployment float64   `json:"unemployment"`
	Population   int       `json:"population"`
	Retirees     int       `json:"retirees"`
	TaxRevenue   float64   `json:"tax_revenue"`
	Matches      int       `json:"matches"`
	FailedSolves int       `json:"failed_solves"`
	Replaced     int       `json:"replaced"`
	Prices       []float64 `json:"prices"`     // Indexed by good
	Quantities   []float64 `json:"quantities"` // Quantity sold, indexed by good
}

// PeriodRow holds every economy's observations for one period.
// Row 0 is the state at construction.
type PeriodRow struct {
	Period    int          `json:"period"`
	Economies []EconomyRow `json:"economies"`
}

// Series names a macro time series.
type Series string

const (
	SeriesGDP          Series = "gdp"
	SeriesConsumption  Series = "consumption"
	SeriesInvestment   Series = "investment"
	SeriesUnemployment Series = "unemployment"
	SeriesPopulation   Series = "population"
	SeriesRetirees     Series = "retirees"
	SeriesTaxRevenue   Series = "tax_revenue"
)

// GoodMeasure names a per-good time series.
type GoodMeasure string

const (
	GoodPrice    GoodMeasure = "price"
	GoodQuantity GoodMeasure = "quantity"
)

func (s Series) value(r EconomyRow) (float64, bool) {
	switch s {
	case SeriesGDP:
		return r.GDP, true
	case SeriesConsumption:
		return r.Consumption, true
	case SeriesInvestment:
		return r.Investment, true
	case SeriesUnemployment:
		return r.Unemployment, true
	case SeriesPopulation:
		return float64(r.Population), true
	case SeriesRetirees:
		return float64(r.Retirees), true
	case SeriesTaxRevenue:
		return r.TaxRevenue, true
	}
	return 0, false
}

// History is the append-only record of every period. One writer appends;
// any number of readers receive copies. Appended rows are never modified.
type History struct {
	mu   sync.RWMutex
	rows []PeriodRow
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds the next period's row.
func (h *History) Append(row PeriodRow) {
	h.mu.Lock()
	h.rows = append(h.rows, row)
	h.mu.Unlock()
}

// Len returns the number of recorded rows.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rows)
}

// Rows returns a copy of every recorded row.
func (h *History) Rows() []PeriodRow {
	return h.Range(0, -1)
}

// Range returns rows with from <= period <= to. A negative to means the latest row.
func (h *History) Range(from, to int) []PeriodRow {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if to < 0 || to >= len(h.rows) {
		to = len(h.rows) - 1
	}
	if from < 0 {
		from = 0
	}
	if from > to {
		return []PeriodRow{}
	}
	out := make([]PeriodRow, to-from+1)
	copy(out, h.rows[from:to+1])
	return out
}

// Latest returns the most recent row.
func (h *History) Latest() (PeriodRow, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.rows) == 0 {
		return PeriodRow{}, false
	}
	return h.rows[len(h.rows)-1], true
}

// Series returns one macro series for an economy, indexed by period.
func (h *History) Series(econ int, s Series) ([]float64, error) {
	if _, ok := s.value(EconomyRow{}); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeries, s)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.rows) == 0 {
		// An empty history knows no economies.
		return nil, fmt.Errorf("%w: %d", ErrUnknownEconomy, econ)
	}
	out := make([]float64, 0, len(h.rows))
	for _, row := range h.rows {
		if econ < 0 || econ >= len(row.Economies) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownEconomy, econ)
		}
		v, _ := s.value(row.Economies[econ])
		out = append(out, v)
	}
	return out, nil
}

// GoodSeries returns the price or quantity sold of one good, indexed by period.
func (h *History) GoodSeries(econ, good int, m GoodMeasure) ([]float64, error) {
	if m != GoodPrice && m != GoodQuantity {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeries, m)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.rows) == 0 {
		// An empty history knows no economies.
		return nil, fmt.Errorf("%w: %d", ErrUnknownEconomy, econ)
	}
	out := make([]float64, 0, len(h.rows))
	for _, row := range h.rows {
		if econ < 0 || econ >= len(row.Economies) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownEconomy, econ)
		}
		r := row.Economies[econ]
		if good < 0 || good >= len(r.Prices) {
			return nil, fmt.Errorf("%w: economy %d has no good %d", ErrUnknownEconomy, econ, good)
		}
		if m == GoodPrice {
			out = append(out, r.Prices[good])
		} else {
			out = append(out, r.Quantities[good])
		}
	}
	return out, nil
}
