package economy

import (
	"fmt"
	"math"
	"slices"
)

// FirmID locates a firm by market (good) index and position within that market.
type FirmID struct {
	Market int `json:"market"`
	Index  int `json:"index"`
}

func (id FirmID) String() string {
	return fmt.Sprintf("firm %d/%d", id.Market, id.Index)
}

// Firm is one productive unit with a Cobb-Douglas technology.
type Firm struct {
	ID    FirmID     `json:"id"`
	TFP   float64    `json:"tfp"`
	Alpha [2]float64 `json:"alpha"` // Exponents on labour and capital

	Labour  float64 `json:"labour"`  // Productivity-weighted employment
	Capital float64 `json:"capital"` // Static for now

	// Cost-minimising factor targets from the last successful solve.
	TargetL float64 `json:"target_l"`
	TargetK float64 `json:"target_k"`

	Wage      float64    `json:"wage"`
	Employees []WorkerID `json:"employees"`
	Vacancies float64    `json:"vacancies"`

	SharesOutstanding float64 `json:"shares_outstanding"`

	Revenue       float64 `json:"revenue"`
	LabourIncome  float64 `json:"labour_income"`
	CapitalIncome float64 `json:"capital_income"`

	reservationWage float64
	vacancyDivisor  float64
	vacancyFloor    float64
}

// NewFirm creates a firm with no workers and the economy's technology.
func NewFirm(id FirmID, p Params) *Firm {
	return &Firm{
		ID:                id,
		TFP:               p.TFP,
		Alpha:             [2]float64{p.LabourShare, p.CapitalShare},
		Capital:           p.InitialCapital,
		SharesOutstanding: p.SharesOutstanding,
		reservationWage:   p.ReservationWage,
		vacancyDivisor:    p.VacancyDivisor,
		vacancyFloor:      p.VacancyFloor,
	}
}

// ProductionOutput returns TFP·L^a_L·K^a_K. Zero labour yields zero output.
func (f *Firm) ProductionOutput() float64 {
	if f.Labour <= 0 || f.Capital <= 0 {
		return 0
	}
	return f.TFP * math.Pow(f.Labour, f.Alpha[0]) * math.Pow(f.Capital, f.Alpha[1])
}

// MarginalProductLabour returns ∂Q/∂L. It is +Inf at zero labour when a_L < 1.
func (f *Firm) MarginalProductLabour() float64 {
	return f.TFP * f.Alpha[0] * math.Pow(f.Labour, f.Alpha[0]-1) * math.Pow(f.Capital, f.Alpha[1])
}

// MarginalProductCapital returns ∂Q/∂K.
func (f *Firm) MarginalProductCapital() float64 {
	return f.TFP * f.Alpha[1] * math.Pow(f.Labour, f.Alpha[0]) * math.Pow(f.Capital, f.Alpha[1]-1)
}

// WageOffer is the value of the marginal product of labour at the given price.
// A firm with no labour offers its reservation wage so it can attract a first hire.
func (f *Firm) WageOffer(price float64) float64 {
	if f.Labour <= 0 {
		return f.reservationWage
	}
	return price * f.MarginalProductLabour()
}

// VacancyCount advertises a share of the labour gap, never fewer than the floor.
// Fully staffed firms therefore keep posting the floor.
func (f *Firm) VacancyCount() float64 {
	return math.Max((f.TargetL-f.Labour)/f.vacancyDivisor, f.vacancyFloor)
}

// SettleIncome splits revenue between labour and capital by marginal products.
// When a_L + a_K != 1 the two shares do not add up to revenue.
func (f *Firm) SettleIncome(price, quantitySupplied float64) {
	f.Revenue = price * quantitySupplied
	f.LabourIncome = 0
	f.CapitalIncome = 0
	if f.Labour <= 0 || f.Capital <= 0 {
		return
	}
	f.LabourIncome = price * f.MarginalProductLabour() * f.Labour
	f.CapitalIncome = price * f.MarginalProductCapital() * f.Capital
}

func (f *Firm) hire(id WorkerID, contribution float64) {
	f.Labour += contribution
	f.Employees = append(f.Employees, id)
	f.Vacancies--
}

func (f *Firm) release(id WorkerID, contribution float64) bool {
	i := slices.Index(f.Employees, id)
	if i < 0 {
		return false
	}
	f.Employees = slices.Delete(f.Employees, i, i+1)
	f.Labour -= contribution
	if len(f.Employees) == 0 || f.Labour < 0 {
		f.Labour = 0
	}
	return true
}
