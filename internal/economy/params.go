package economy

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when an economy cannot be built from its parameters.
var ErrInvalidParams = errors.New("economy: invalid parameters")

// Params holds everything fixed at economy construction.
type Params struct {
	Name string

	Goods          int // Number of consumption goods (one market each)
	FirmsPerMarket int

	// Firm technology.
	TFP               float64
	LabourShare       float64 // a_L
	CapitalShare      float64 // a_K
	InitialCapital    float64
	SharesOutstanding float64
	ReservationWage   float64 // Offer made by a firm with no labour
	VacancyDivisor    float64
	VacancyFloor      float64

	// Labour market.
	MatchingEfficiency float64
	InitialEmployment  float64 // Share of the population matched at construction
	HoursWorked        float64

	InterestRate float64

	// Government.
	IncomeTax      float64
	ConsumptionTax float64
	GoodsTax       []float64 // Indexed by good; nil means zero for all goods

	// Worker draws.
	ProductivityMean float64
	ProductivitySD   float64
	SavingsRateMin   float64
	SavingsRateMax   float64
	BargainingPower  float64
}

// DefaultParams returns the baseline economy used by the simulator.
func DefaultParams(goods, firmsPerMarket int) Params {
	return Params{
		Name:               "baseline",
		Goods:              goods,
		FirmsPerMarket:     firmsPerMarket,
		TFP:                10,
		LabourShare:        2.0 / 3.0,
		CapitalShare:       1.0 / 3.0,
		InitialCapital:     1,
		SharesOutstanding:  1_000_000,
		ReservationWage:    1000,
		VacancyDivisor:     10,
		VacancyFloor:       100,
		MatchingEfficiency: 0.05,
		InitialEmployment:  0.5,
		HoursWorked:        8,
		InterestRate:       0.05,
		ProductivityMean:   1,
		ProductivitySD:     0.5,
		BargainingPower:    1,
	}
}

// Validate reports the first parameter that cannot produce a working economy.
func (p Params) Validate() error {
	switch {
	case p.Goods < 1:
		return fmt.Errorf("%w: goods must be positive, got %d", ErrInvalidParams, p.Goods)
	case p.FirmsPerMarket < 1:
		return fmt.Errorf("%w: firms per market must be positive, got %d", ErrInvalidParams, p.FirmsPerMarket)
	case p.TFP <= 0:
		return fmt.Errorf("%w: tfp must be positive", ErrInvalidParams)
	case p.LabourShare <= 0 || p.CapitalShare <= 0:
		return fmt.Errorf("%w: factor shares must be positive", ErrInvalidParams)
	case p.SharesOutstanding <= 0:
		return fmt.Errorf("%w: shares outstanding must be positive", ErrInvalidParams)
	case p.VacancyDivisor <= 0:
		return fmt.Errorf("%w: vacancy divisor must be positive", ErrInvalidParams)
	case p.MatchingEfficiency < 0:
		return fmt.Errorf("%w: matching efficiency must not be negative", ErrInvalidParams)
	case p.InitialEmployment < 0 || p.InitialEmployment > 1:
		return fmt.Errorf("%w: initial employment must be in [0,1]", ErrInvalidParams)
	case p.HoursWorked <= 0:
		return fmt.Errorf("%w: hours worked must be positive", ErrInvalidParams)
	case p.IncomeTax < 0 || p.IncomeTax >= 1:
		return fmt.Errorf("%w: income tax must be in [0,1)", ErrInvalidParams)
	case p.ConsumptionTax < 0:
		return fmt.Errorf("%w: consumption tax must not be negative", ErrInvalidParams)
	case p.GoodsTax != nil && len(p.GoodsTax) != p.Goods:
		return fmt.Errorf("%w: goods tax has %d entries for %d goods", ErrInvalidParams, len(p.GoodsTax), p.Goods)
	case p.ProductivityMean <= 0 && p.ProductivitySD <= 0:
		return fmt.Errorf("%w: productivity distribution cannot produce a positive draw", ErrInvalidParams)
	case p.SavingsRateMin < 0 || p.SavingsRateMax > 1 || p.SavingsRateMin > p.SavingsRateMax:
		return fmt.Errorf("%w: savings rate range must lie in [0,1]", ErrInvalidParams)
	}
	return nil
}
