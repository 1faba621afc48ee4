package economy

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// ErrNoFeasiblePlan is returned when cost minimisation has no finite, non-negative optimum.
var ErrNoFeasiblePlan = errors.New("economy: cost minimisation found no feasible plan")

// stationarityTol bounds the relative first-order gap w·L − r·(a_L/a_K)·K at an accepted optimum.
const stationarityTol = 1e-4

// CostMinimize finds the cheapest labour/capital mix producing quantitySold:
//
//	min wage·L + r·K  s.t.  TFP·L^a_L·K^a_K = quantitySold
//
// The wage is the firm's current offer at price. Zero output needs no inputs.
func (f *Firm) CostMinimize(price, interestRate, quantitySold float64) (labour, capital float64, err error) {
	guess := f.TargetL
	if guess <= 0 {
		guess = f.Labour
	}
	if guess <= 0 {
		guess = 1
	}
	return solveCostMin(f.WageOffer(price), interestRate, f.TFP, f.Alpha, quantitySold, guess)
}

// solveCostMin eliminates the constraint by writing K as a function of u = ln L,
// K(u) = (q/TFP)^(1/a_K)·exp(−(a_L/a_K)·u), and minimises the convex cost in u.
func solveCostMin(wage, r, tfp float64, alpha [2]float64, q, guess float64) (float64, float64, error) {
	if q == 0 {
		return 0, 0, nil
	}
	if !(q > 0) || !(wage > 0) || !(r > 0) || !(tfp > 0) || !(alpha[0] > 0) || !(alpha[1] > 0) ||
		math.IsInf(wage, 0) || math.IsInf(q, 0) {
		return 0, 0, ErrNoFeasiblePlan
	}

	scale := math.Pow(q/tfp, 1/alpha[1])
	ratio := alpha[0] / alpha[1]
	capitalFor := func(u float64) float64 { return scale * math.Exp(-ratio*u) }
	cost := func(u float64) float64 { return wage*math.Exp(u) + r*capitalFor(u) }

	u0 := math.Log(guess)
	norm := cost(u0)
	if !(norm > 0) || math.IsInf(norm, 0) {
		return 0, 0, ErrNoFeasiblePlan
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return cost(x[0]) / norm
		},
		Grad: func(grad, x []float64) {
			u := x[0]
			grad[0] = (wage*math.Exp(u) - r*ratio*capitalFor(u)) / norm
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-10,
		MajorIterations:   200,
	}

	res, err := optimize.Minimize(problem, []float64{u0}, settings, &optimize.BFGS{})
	if res == nil {
		return 0, 0, ErrNoFeasiblePlan
	}
	// A line-search stall right at the optimum still leaves an acceptable point.
	labour := math.Exp(res.X[0])
	capital := capitalFor(res.X[0])
	if !acceptablePlan(wage, r, ratio, labour, capital) {
		if err != nil {
			return 0, 0, errors.Join(ErrNoFeasiblePlan, err)
		}
		return 0, 0, ErrNoFeasiblePlan
	}
	return labour, capital, nil
}

func acceptablePlan(wage, r, ratio, labour, capital float64) bool {
	for _, v := range []float64{labour, capital} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	lhs := wage * labour
	rhs := r * ratio * capital
	return math.Abs(lhs-rhs) <= stationarityTol*(lhs+rhs)
}
