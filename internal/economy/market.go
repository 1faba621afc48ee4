// Package economy provides the agents and markets of one closed macroeconomy:
// firms, workers, goods markets, the government and the labour-matching procedure.
package economy

// PricePolicy decides the price a market posts for the coming period.
type PricePolicy interface {
	Price(m *Market) float64
}

// FixedPrice holds every market at the same price. Price discovery is disabled.
type FixedPrice float64

// Price implements PricePolicy.
func (p FixedPrice) Price(*Market) float64 { return float64(p) }

// Market holds the supply/demand state for one good and the firms producing it.
type Market struct {
	Good  int     `json:"good"`
	Firms []*Firm `json:"firms"`

	Price            float64 `json:"price"`
	QuantityDemanded float64 `json:"quantity_demanded"`
	QuantitySupplied float64 `json:"quantity_supplied"`
	QuantitySold     float64 `json:"quantity_sold"` // min(demanded, supplied)

	policy PricePolicy
}

// NewMarket creates the market for one good with a fixed roster of firms.
func NewMarket(good int, p Params) *Market {
	m := &Market{
		Good:             good,
		Price:            1,
		QuantityDemanded: 1,
		QuantitySupplied: 1,
		QuantitySold:     1,
		policy:           FixedPrice(1),
	}
	m.Firms = make([]*Firm, p.FirmsPerMarket)
	for i := range m.Firms {
		m.Firms[i] = NewFirm(FirmID{Market: good, Index: i}, p)
	}
	return m
}

// SetPricePolicy replaces the pricing rule. A nil policy restores the fixed price of 1.
func (m *Market) SetPricePolicy(p PricePolicy) {
	if p == nil {
		p = FixedPrice(1)
	}
	m.policy = p
}

// ResolvePrice returns the price for the coming period under the market's policy.
func (m *Market) ResolvePrice() float64 {
	if m.policy == nil {
		return 1
	}
	return m.policy.Price(m)
}

// ClearingOutput sums firm output and sells the lesser of supply and demand.
func (m *Market) ClearingOutput() {
	m.QuantitySupplied = 0
	for _, f := range m.Firms {
		m.QuantitySupplied += f.ProductionOutput()
	}
	m.QuantitySold = min(m.QuantitySupplied, m.QuantityDemanded)
}
