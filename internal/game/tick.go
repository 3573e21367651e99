package game

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/talgya/borderline/internal/catalog"
	"github.com/talgya/borderline/internal/entropy"
)

// Tick tuning constants.
const (
	seizureHeat       = 15  // route heat added on a seizure
	deliveryHeat      = 5   // route heat added on a delivery (stealth routes exempt)
	heatDecayPerTick  = 0.2 // flat cooldown applied to every route
	marketDriftChance = 0.1 // one gate draw per tick for all commodities
	priceFloorFactor  = 0.5 // prices never fall below baseSellPrice * this
	levelStep         = 1000
)

// Advance runs one simulation tick and returns the next snapshot. Random
// draws come only from rng, one per decision, in a fixed order: shipment by
// shipment a jitter draw then, when it completes, its resolution roll; one
// market gate draw; then one delta draw per commodity in catalog order.
func Advance(s WorldState, cat *catalog.Catalog, rng entropy.Source) WorldState {
	next := s.Clone()
	next.Day++

	// Shipment progression and resolution. Efficiency is read before this
	// tick's cooldown is applied.
	var active, completed []Shipment
	for _, sh := range next.ActiveShipments {
		rt := cat.Routes[sh.Route]
		eff := next.RouteStats[sh.Route].Efficiency
		jitter := 0.75 + rng.Float64()*0.5
		sh.Progress += rt.Speed * (eff / 100) * jitter

		if sh.Progress < 100 {
			active = append(active, sh)
			continue
		}
		sh.Progress = 100
		resolve(&next, cat, &sh, rng.Float64())
		completed = append(completed, sh)
	}
	next.ActiveShipments = active

	// The tick's completions go to the front of the history as one batch, in
	// resolution order.
	if len(completed) > 0 {
		next.ShipmentHistory = append(completed, next.ShipmentHistory...)
	}

	// Route cooldown.
	for _, id := range cat.RouteOrder {
		rs := next.RouteStats[id]
		rs.Heat = math.Max(0, rs.Heat-heatDecayPerTick)
		rs.Efficiency = 100 - rs.Heat*0.5
		next.RouteStats[id] = rs
	}

	// Market drift: a single draw gates all commodities together.
	if rng.Float64() < marketDriftChance {
		for _, id := range cat.CommodityOrder {
			comm := cat.Commodities[id]
			delta := (rng.Float64()*2 - 1) * comm.Volatility * comm.BaseSellPrice * 0.2
			next.MarketPrices[id] = math.Max(comm.BaseSellPrice*priceFloorFactor, next.MarketPrices[id]+delta)
		}
	}

	next.GlobalHeat = meanHeat(next.RouteStats)
	trimNotes(&next)
	return next
}

// resolve settles a completed shipment with a single roll: roll < risk is a
// seizure, anything else a delivery.
func resolve(s *WorldState, cat *catalog.Catalog, sh *Shipment, roll float64) {
	rt := cat.Routes[sh.Route]

	if roll < sh.Risk {
		sh.Status = StatusSeized

		// Risk pool insurance covers up to the shipment's sunk cost.
		covered := math.Min(sh.Cost, s.RiskPoolBalance)
		if covered > 0 {
			s.RiskPoolBalance -= covered
			s.Money += covered
		}

		msg := fmt.Sprintf("%s intercepted. Lost %d units.", rt.Name, sh.Amount)
		if covered > 0 {
			msg += fmt.Sprintf(" Insurance covered $%s.", humanize.Commaf(covered))
		} else {
			msg += " No insurance coverage."
		}
		pushNote(s, NoteError, "Shipment Seized", msg)

		bumpHeat(s, sh.Route, seizureHeat)
		return
	}

	sh.Status = StatusDelivered
	s.Money += sh.PotentialRevenue

	repGain := int(sh.PotentialRevenue / 100)
	s.Reputation += repGain

	// One level per resolution, even when reputation jumps past several
	// thresholds at once.
	if s.Reputation >= s.Level*levelStep {
		s.Level++
		pushNote(s, NoteSuccess, "Empire Expansion",
			fmt.Sprintf("Organization reached tier %d. New contacts available.", s.Level))
	}

	pushNote(s, NoteSuccess, "Payout Received",
		fmt.Sprintf("Shipment delivered via %s. +$%s | +%d rep", rt.Name, humanize.Commaf(sh.PotentialRevenue), repGain))

	// Stealth routes generate no heat on success.
	if !rt.Stealth {
		bumpHeat(s, sh.Route, deliveryHeat)
	}
}

func bumpHeat(s *WorldState, route catalog.RouteType, amount float64) {
	rs := s.RouteStats[route]
	rs.Heat = math.Min(100, rs.Heat+amount)
	s.RouteStats[route] = rs
}

func meanHeat(stats map[catalog.RouteType]RouteStats) float64 {
	if len(stats) == 0 {
		return 0
	}
	total := 0.0
	for _, rs := range stats {
		total += rs.Heat
	}
	return total / float64(len(stats))
}
