// Draws the initial population and replacement workers.

package economy

import (
	"fmt"
	"math"
	"math/rand"
)

// Population is the per-worker input for building an economy.
// All slices are indexed by worker and must have equal length.
type Population struct {
	Weights      [][]float64 // Preference weights per good
	Productivity []float64
	Ages         []float64
}

// Size returns the number of workers described.
func (p Population) Size() int { return len(p.Productivity) }

func (p Population) validate(goods int) error {
	n := p.Size()
	if n == 0 {
		return fmt.Errorf("%w: empty population", ErrInvalidParams)
	}
	if len(p.Weights) != n || len(p.Ages) != n {
		return fmt.Errorf("%w: population slices differ in length (weights=%d productivity=%d ages=%d)",
			ErrInvalidParams, len(p.Weights), n, len(p.Ages))
	}
	for i, w := range p.Weights {
		if len(w) != goods {
			return fmt.Errorf("%w: worker %d has %d weights for %d goods", ErrInvalidParams, i, len(w), goods)
		}
	}
	return nil
}

// DemographicConfig controls initial population draws.
type DemographicConfig struct {
	WeightMin        float64
	WeightMax        float64
	ProductivityMean float64
	ProductivitySD   float64
	AgeMin           float64
	AgeMax           float64
}

// DefaultDemographics returns the baseline population distribution.
func DefaultDemographics() DemographicConfig {
	return DemographicConfig{
		WeightMin:        0.1,
		WeightMax:        0.9,
		ProductivityMean: 1,
		ProductivitySD:   0.5,
		AgeMin:           0,
		AgeMax:           80,
	}
}

// DrawPopulation draws n workers' weights, productivity and ages.
// Ages are rounded to a tenth of a year.
func DrawPopulation(n, goods int, cfg DemographicConfig, seed int64) Population {
	rng := rand.New(rand.NewSource(seed + 300))
	pop := Population{
		Weights:      make([][]float64, n),
		Productivity: make([]float64, n),
		Ages:         make([]float64, n),
	}
	for i := 0; i < n; i++ {
		w := make([]float64, goods)
		for g := range w {
			w[g] = cfg.WeightMin + rng.Float64()*(cfg.WeightMax-cfg.WeightMin)
		}
		pop.Weights[i] = w
		pop.Productivity[i] = drawProductivity(rng, cfg.ProductivityMean, cfg.ProductivitySD)
		age := cfg.AgeMin + rng.Float64()*(cfg.AgeMax-cfg.AgeMin)
		pop.Ages[i] = math.Round(age*10) / 10
	}
	return pop
}

// drawProductivity draws from a normal distribution until the draw is positive.
func drawProductivity(rng *rand.Rand, mean, sd float64) float64 {
	for i := 0; i < 1000; i++ {
		if p := mean + rng.NormFloat64()*sd; p > 0 {
			return p
		}
	}
	return math.Max(mean, 1e-3)
}

// Spawner issues worker IDs and draws per-worker traits for one economy.
type Spawner struct {
	rng    *rand.Rand
	nextID WorkerID
	params Params
}

// NewSpawner creates a worker spawner with the given seed.
func NewSpawner(seed int64, p Params) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 500)),
		nextID: 1,
		params: p,
	}
}

// NextID returns the ID the next spawned worker will receive.
func (s *Spawner) NextID() WorkerID { return s.nextID }

// Spawn creates an unemployed worker with the given traits and no share holdings.
func (s *Spawner) Spawn(productivity, age float64, weights []float64) *Worker {
	id := s.nextID
	s.nextID++

	savings := s.params.SavingsRateMin
	if s.params.SavingsRateMax > s.params.SavingsRateMin {
		savings += s.rng.Float64() * (s.params.SavingsRateMax - s.params.SavingsRateMin)
	}

	return &Worker{
		ID:              id,
		Age:             age,
		Productivity:    productivity,
		HoursWorked:     s.params.HoursWorked,
		SavingsRate:     savings,
		BargainingPower: s.params.BargainingPower,
		Holdings:        newHoldings(s.params.Goods, s.params.FirmsPerMarket),
		Weights:         append([]float64(nil), weights...),
	}
}

// Replacement spawns a newborn worker carrying over the given preference weights.
func (s *Spawner) Replacement(weights []float64) *Worker {
	p := drawProductivity(s.rng, s.params.ProductivityMean, s.params.ProductivitySD)
	return s.Spawn(p, 0, weights)
}
