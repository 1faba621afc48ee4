// Ageing, death at a fixed age and one-for-one replacement of workers.

package economy

import "log/slog"

// ageAndReplace ages every worker by years and replaces those at or past deathAge.
// Dying workers are collected first and the population is rebuilt afterwards, so
// nothing is removed from a slice while it is being walked. Returns the number replaced.
func (e *Economy) ageAndReplace(years, deathAge float64) int {
	var dying []int
	for i, w := range e.Workers {
		w.Age += years
		if w.Age >= deathAge {
			dying = append(dying, i)
		}
	}
	if len(dying) == 0 {
		return 0
	}

	dead := make(map[int]bool, len(dying))
	for _, i := range dying {
		dead[i] = true
	}

	survivors := make([]*Worker, 0, len(e.Workers))
	for i, w := range e.Workers {
		if !dead[i] {
			survivors = append(survivors, w)
		}
	}

	newborns := make([]*Worker, 0, len(dying))
	for _, i := range dying {
		w := e.Workers[i]
		e.detach(w)
		newborns = append(newborns, e.spawner.Replacement(w.Weights))
	}

	// Estates pass to the survivors in equal parts; newborns start without shares.
	heirs := survivors
	if len(heirs) == 0 {
		heirs = newborns
	}
	for _, i := range dying {
		bequeath(e.Workers[i], heirs)
	}

	for _, w := range newborns {
		e.index[w.ID] = w
		e.Unemployed = append(e.Unemployed, w.ID)
	}
	e.Workers = append(survivors, newborns...)

	e.mustPartition()
	slog.Debug("workers replaced", "economy", e.ID, "count", len(dying), "population", len(e.Workers))
	return len(dying)
}

// detach removes a worker from its employer or the unemployed list and from the index.
func (e *Economy) detach(w *Worker) {
	if w.Employer != nil {
		f := e.Firm(*w.Employer)
		if f == nil || !f.release(w.ID, w.EffectiveLabour()) {
			panic("economy: employed worker missing from employer's roster")
		}
		w.Employer = nil
	} else {
		var ok bool
		e.Unemployed, ok = removeID(e.Unemployed, w.ID)
		if !ok {
			panic("economy: unemployed worker missing from unemployed list")
		}
	}
	delete(e.index, w.ID)
}

// bequeath splits the dead worker's holdings equally among the heirs.
func bequeath(dead *Worker, heirs []*Worker) {
	if len(heirs) == 0 {
		return
	}
	share := 1 / float64(len(heirs))
	for m, row := range dead.Holdings {
		for f, frac := range row {
			if frac == 0 {
				continue
			}
			for _, h := range heirs {
				h.Holdings[m][f] += frac * share
			}
			row[f] = 0
		}
	}
}
