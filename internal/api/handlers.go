package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/talgya/macrosim/internal/economy"
	"github.com/talgya/macrosim/internal/engine"
	"github.com/talgya/macrosim/internal/persistence"
)

// FirmView summarises one firm without its employee roster.
type FirmView struct {
	ID            economy.FirmID `json:"id"`
	Labour        float64        `json:"labour"`
	Capital       float64        `json:"capital"`
	TargetL       float64        `json:"target_l"`
	TargetK       float64        `json:"target_k"`
	Wage          float64        `json:"wage"`
	Employees     int            `json:"employees"`
	Vacancies     float64        `json:"vacancies"`
	Output        float64        `json:"output"`
	Revenue       float64        `json:"revenue"`
	LabourIncome  float64        `json:"labour_income"`
	CapitalIncome float64        `json:"capital_income"`
}

// MarketView summarises one goods market.
type MarketView struct {
	Good             int        `json:"good"`
	Price            float64    `json:"price"`
	QuantityDemanded float64    `json:"quantity_demanded"`
	QuantitySupplied float64    `json:"quantity_supplied"`
	QuantitySold     float64    `json:"quantity_sold"`
	Firms            []FirmView `json:"firms"`
}

// EconomyView is a live snapshot of one economy.
type EconomyView struct {
	ID           int                 `json:"id"`
	Name         string              `json:"name"`
	Period       int                 `json:"period"`
	GDP          float64             `json:"gdp"`
	Consumption  float64             `json:"consumption"`
	Investment   float64             `json:"investment"`
	InterestRate float64             `json:"interest_rate"`
	Population   int                 `json:"population"`
	Employed     int                 `json:"employed"`
	Unemployed   int                 `json:"unemployed"`
	Vacancies    float64             `json:"vacancies"`
	Government   *economy.Government `json:"government"`
	Markets      []MarketView        `json:"markets"`
	Audit        string              `json:"audit"` // "ok" or the violated invariants
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	latest, _ := s.Sim.History.Latest()
	status := map[string]any{
		"period":    s.Sim.Period(),
		"running":   s.Eng.Running(),
		"interval":  s.Eng.Interval.String(),
		"run_id":    s.RunID,
		"economies": latest.Economies,
	}
	writeJSON(w, status)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := queryInt(r, "to", -1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.Sim.History.Range(from, to))
}

func (s *Server) handleEconomy(w http.ResponseWriter, r *http.Request) {
	id, ok := urlInt(w, r, "id")
	if !ok {
		return
	}

	var view *EconomyView
	s.Sim.View(func(period int, econs []*economy.Economy) {
		if id < 0 || id >= len(econs) {
			return
		}
		view = economyView(period, econs[id])
	})
	if view == nil {
		http.Error(w, "economy not found", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func economyView(period int, e *economy.Economy) *EconomyView {
	gov := *e.Government
	gov.GoodsTax = append([]float64(nil), e.Government.GoodsTax...)

	v := &EconomyView{
		ID:           e.ID,
		Name:         e.Name,
		Period:       period,
		GDP:          e.GDP,
		Consumption:  e.Consumption,
		Investment:   e.Investment,
		InterestRate: e.InterestRate,
		Population:   len(e.Workers),
		Employed:     e.Employed(),
		Unemployed:   len(e.Unemployed),
		Vacancies:    e.Vacancies,
		Government:   &gov,
		Markets:      make([]MarketView, len(e.Markets)),
		Audit:        "ok",
	}
	if err := e.Audit(); err != nil {
		v.Audit = err.Error()
	}
	for i, m := range e.Markets {
		mv := MarketView{
			Good:             m.Good,
			Price:            m.Price,
			QuantityDemanded: m.QuantityDemanded,
			QuantitySupplied: m.QuantitySupplied,
			QuantitySold:     m.QuantitySold,
			Firms:            make([]FirmView, len(m.Firms)),
		}
		for j, f := range m.Firms {
			mv.Firms[j] = FirmView{
				ID:            f.ID,
				Labour:        f.Labour,
				Capital:       f.Capital,
				TargetL:       f.TargetL,
				TargetK:       f.TargetK,
				Wage:          f.Wage,
				Employees:     len(f.Employees),
				Vacancies:     f.Vacancies,
				Output:        f.ProductionOutput(),
				Revenue:       f.Revenue,
				LabourIncome:  f.LabourIncome,
				CapitalIncome: f.CapitalIncome,
			}
		}
		v.Markets[i] = mv
	}
	return v
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := urlInt(w, r, "id")
	if !ok {
		return
	}
	name := chi.URLParam(r, "series")
	values, err := s.Sim.History.Series(id, engine.Series(name))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"economy": id,
		"series":  name,
		"values":  values,
	})
}

func (s *Server) handleGood(w http.ResponseWriter, r *http.Request) {
	id, ok := urlInt(w, r, "id")
	if !ok {
		return
	}
	good, ok := urlInt(w, r, "good")
	if !ok {
		return
	}
	prices, err := s.Sim.History.GoodSeries(id, good, engine.GoodPrice)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	quantities, err := s.Sim.History.GoodSeries(id, good, engine.GoodQuantity)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"economy":    id,
		"good":       good,
		"prices":     prices,
		"quantities": quantities,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.DB.Runs()
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "runs query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunStats(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	runID := chi.URLParam(r, "run")
	if runID == "current" {
		runID = s.RunID
	}
	econ, err := queryInt(r, "economy", -1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	from, err := queryInt(r, "from", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := queryInt(r, "to", -1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", 500)
	if err != nil || limit <= 0 || limit > 10000 {
		http.Error(w, "limit must be between 1 and 10000", http.StatusBadRequest)
		return
	}

	rows, err := s.DB.LoadStats(runID, econ, from, to, limit)
	if err != nil {
		slog.Error("stats query failed", "run", runID, "error", err)
		http.Error(w, "stats query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []persistence.StatRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	switch action := chi.URLParam(r, "action"); action {
	case "start":
		s.Eng.SetRunning(true)
	case "stop":
		s.Eng.SetRunning(false)
	case "step":
		row, ok := s.Eng.StepIfPaused()
		if !ok {
			http.Error(w, "stop the simulation before stepping", http.StatusConflict)
			return
		}
		writeJSON(w, row)
		return
	default:
		http.Error(w, "unknown action "+strconv.Quote(action), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"running": s.Eng.Running(),
		"period":  s.Sim.Period(),
	})
}

func urlInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := chi.URLParam(r, key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "invalid "+key+" "+strconv.Quote(raw), http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownSeries), errors.Is(err, engine.ErrUnknownEconomy):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
