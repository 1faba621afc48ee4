// Cobb-Douglas matching function and highest-offer assignment.

package economy

import "math"

// postVacancies sets each firm's vacancies for the period and totals them.
func (e *Economy) postVacancies() {
	e.Vacancies = 0
	e.EachFirm(func(f *Firm) {
		f.Vacancies = f.VacancyCount()
		e.Vacancies += f.Vacancies
	})
}

// MatchCount is floor(efficiency·√vacancies·√unemployed), or 0 when either side is empty.
func (e *Economy) MatchCount() int {
	u := float64(len(e.Unemployed))
	if e.Vacancies <= 0 || u <= 0 {
		return 0
	}
	return int(math.Floor(e.MatchingEfficiency * math.Sqrt(e.Vacancies) * math.Sqrt(u)))
}

// runMatches draws up to n unemployed workers at random and places each with the
// best-paying firm. Returns the number of workers placed.
func (e *Economy) runMatches(n int) int {
	placed := 0
	for i := 0; i < n && len(e.Unemployed) > 0; i++ {
		id := e.Unemployed[e.rng.Intn(len(e.Unemployed))]
		if e.matchWorker(id) {
			placed++
		}
	}
	return placed
}

// matchWorker assigns the worker to the firm with the highest wage offer among
// those advertising vacancies. Ties go to the earliest market and firm.
func (e *Economy) matchWorker(id WorkerID) bool {
	w := e.index[id]
	if w == nil || w.Employer != nil {
		return false
	}

	var best *Firm
	bestWage := math.Inf(-1)
	for _, m := range e.Markets {
		for _, f := range m.Firms {
			f.Wage = f.WageOffer(m.Price)
			if f.VacancyCount() > 0 && f.Wage > bestWage {
				best = f
				bestWage = f.Wage
			}
		}
	}
	if best == nil {
		return false
	}

	key := best.ID
	w.Employer = &key
	w.Wage = bestWage
	best.hire(w.ID, w.EffectiveLabour())
	e.Vacancies--
	e.Unemployed, _ = removeID(e.Unemployed, w.ID)
	return true
}
