package economy

// WorkerID is a unique identifier for a worker within one economy.
type WorkerID uint64

// Worker is one household: it supplies labour, owns shares, consumes and saves.
type Worker struct {
	ID           WorkerID `json:"id"`
	Age          float64  `json:"age"` // Years
	Productivity float64  `json:"productivity"`
	HoursWorked  float64  `json:"hours_worked"`

	// Employer is a key into the economy's firm registry; nil when unemployed.
	Employer *FirmID `json:"employer,omitempty"`

	Wage          float64 `json:"wage"`
	Income        float64 `json:"income"` // After income tax
	Consumption   float64 `json:"consumption"`
	Investment    float64 `json:"investment"`
	LabourIncome  float64 `json:"labour_income"`
	CapitalIncome float64 `json:"capital_income"`

	SavingsRate     float64 `json:"savings_rate"`
	BargainingPower float64 `json:"bargaining_power"`

	// Holdings[m][f] is the fraction of firm f in market m owned by this worker.
	Holdings [][]float64 `json:"holdings"`
	// Weights are Cobb-Douglas preference weights over goods.
	Weights []float64 `json:"weights"`
}

// Employed reports whether the worker currently has an employer.
func (w *Worker) Employed() bool { return w.Employer != nil }

// EffectiveLabour is the worker's contribution to an employer's labour input,
// normalised to an eight hour day.
func (w *Worker) EffectiveLabour() float64 {
	return w.Productivity * w.HoursWorked / 8
}

// DemandVector solves the worker's Cobb-Douglas utility problem in closed form:
// demand_i = consumption·weight_i / (price_i·Σweights).
// All weights zero gives zero demand; a non-positive price gives zero for that good.
func (w *Worker) DemandVector(prices []float64) []float64 {
	demand := make([]float64, len(prices))
	total := 0.0
	for _, b := range w.Weights {
		total += b
	}
	if total <= 0 || w.Consumption <= 0 {
		return demand
	}
	for i, p := range prices {
		if i >= len(w.Weights) || p <= 0 {
			continue
		}
		demand[i] = w.Consumption * w.Weights[i] / (p * total)
	}
	return demand
}

// settleIncome applies the period's earnings and splits disposable income.
func (w *Worker) settleIncome(labour, capital, incomeTax float64) {
	w.LabourIncome = labour
	w.CapitalIncome = capital
	w.Income = (labour + capital) * (1 - incomeTax)
	w.Consumption = (1 - w.SavingsRate) * w.Income
	w.Investment = w.SavingsRate * w.Income
}

func newHoldings(goods, firms int) [][]float64 {
	h := make([][]float64, goods)
	for i := range h {
		h[i] = make([]float64, firms)
	}
	return h
}
