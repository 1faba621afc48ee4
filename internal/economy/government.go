package economy

// Government holds the tax schedule of one economy.
type Government struct {
	IncomeTax      float64   `json:"income_tax"`
	ConsumptionTax float64   `json:"consumption_tax"`
	GoodsTax       []float64 `json:"goods_tax"`

	// Revenue collected in the last period (income plus goods taxes).
	Revenue float64 `json:"revenue"`
}

// NewGovernment creates a tax schedule sized for the given number of goods.
func NewGovernment(goods int, incomeTax, consumptionTax float64, goodsTax []float64) *Government {
	g := &Government{
		IncomeTax:      incomeTax,
		ConsumptionTax: consumptionTax,
		GoodsTax:       make([]float64, goods),
	}
	copy(g.GoodsTax, goodsTax)
	return g
}

// GoodTax returns the total tax rate on good i.
func (g *Government) GoodTax(i int) float64 {
	if i < 0 || i >= len(g.GoodsTax) {
		return g.ConsumptionTax
	}
	return g.ConsumptionTax + g.GoodsTax[i]
}
