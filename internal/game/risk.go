package game

import (
	"math"

	"github.com/talgya/borderline/internal/catalog"
)

// ComputeRisk returns the seizure probability for a proposed shipment, in
// [0.01, 0.99]. Pure and reproducible: the launch command freezes its result
// onto the shipment, and the presentation layer calls it with hypothetical
// parameters for previews.
func ComputeRisk(cat *catalog.Catalog, commodity catalog.CommodityType, route catalog.RouteType, strategy catalog.StrategyType, amount int, currentRouteHeat float64) float64 {
	comm := cat.Commodities[commodity]
	rt := cat.Routes[route]

	risk := 0.4*rt.BaseRisk + 0.4*comm.RiskProfile

	// More heat on the route means more eyes on it.
	risk += (currentRouteHeat / 100) * 0.5

	// Larger shipments are harder to hide. Both surcharges stack above
	// 1000 units.
	if amount > 100 {
		risk += 0.1
	}
	if amount > 1000 {
		risk += 0.2
	}

	// Small stealth loads slip under detection entirely. Applied before the
	// strategy factor, which still scales it.
	if rt.Stealth && amount <= 10 {
		risk = 0.05
	}

	if st, ok := cat.Strategies[strategy]; ok {
		risk *= st.RiskFactor
	}

	return math.Min(math.Max(risk, 0.01), 0.99)
}
