package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/borderline/internal/catalog"
	"github.com/talgya/borderline/internal/entropy"
)

// Draw order in Advance: one jitter per active shipment, one roll per
// resolved shipment, one market gate, then one delta per commodity in
// catalog order. Scripts below are laid out accordingly; a fallback of 0.99
// keeps the market gate closed.
const skipMarket = 0.99

func testShipment(risk float64, progress float64) Shipment {
	return Shipment{
		ID:               "sh-test",
		Commodity:        catalog.Methrax,
		Amount:           50,
		Route:            catalog.SouthwestMegaport,
		Strategy:         catalog.Standard,
		Progress:         progress,
		Risk:             risk,
		PotentialRevenue: 4000,
		Cost:             1000,
		Status:           StatusInTransit,
	}
}

func TestAdvance_ProgressClampsAt100(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.ActiveShipments = []Shipment{testShipment(0.01, 95)}

	// Jitter draw 0.5 → jitter 1.0; speed 20 at efficiency 100 overshoots,
	// so progress clamps to exactly 100 and the shipment resolves.
	rng := &entropy.Script{Values: []float64{0.5, 0.9}, Fallback: skipMarket}
	next := Advance(s, cat, rng)

	assert.Empty(t, next.ActiveShipments)
	require.Len(t, next.ShipmentHistory, 1)
	assert.Equal(t, 100.0, next.ShipmentHistory[0].Progress)
	assert.Equal(t, StatusDelivered, next.ShipmentHistory[0].Status)
}

func TestAdvance_EfficiencyReadBeforeDecay(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.RouteStats[catalog.SouthwestMegaport] = RouteStats{Heat: 10, Efficiency: 95}
	s.ActiveShipments = []Shipment{testShipment(0.01, 0)}

	rng := &entropy.Script{Values: []float64{0.5}, Fallback: skipMarket}
	next := Advance(s, cat, rng)

	// 20 * (95/100) * 1.0 — using pre-decay efficiency, not the 95.1 the
	// cooldown step produces.
	require.Len(t, next.ActiveShipments, 1)
	assert.InDelta(t, 19.0, next.ActiveShipments[0].Progress, 1e-9)
	assert.InDelta(t, 9.8, next.RouteStats[catalog.SouthwestMegaport].Heat, 1e-9)
	assert.InDelta(t, 95.1, next.RouteStats[catalog.SouthwestMegaport].Efficiency, 1e-9)
}

func TestAdvance_ProgressMonotonic(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.ActiveShipments = []Shipment{{
		ID:        "slow",
		Commodity: catalog.Cocaether,
		Amount:    10,
		Route:     catalog.MaritimeBlueZone,
		Strategy:  catalog.Standard,
		Risk:      0.01,
		Status:    StatusInTransit,
	}}

	rng := entropy.Seeded(7)
	last := 0.0
	for i := 0; i < 50; i++ {
		s = Advance(s, cat, rng)
		var progress float64
		if len(s.ActiveShipments) > 0 {
			progress = s.ActiveShipments[0].Progress
		} else {
			progress = s.ShipmentHistory[0].Progress
		}
		assert.GreaterOrEqual(t, progress, last)
		assert.LessOrEqual(t, progress, 100.0)
		last = progress
		if len(s.ActiveShipments) == 0 {
			break
		}
	}
	assert.Empty(t, s.ActiveShipments, "maritime shipment should finish within 50 ticks")
}

func TestAdvance_SeizurePaysFromPool(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.Money = 1000
	s.RiskPoolBalance = 300
	sh := testShipment(0.99, 99)
	s.ActiveShipments = []Shipment{sh}

	// Jitter 1.0 finishes the run; roll 0.5 < 0.99 seizes it.
	rng := &entropy.Script{Values: []float64{0.5, 0.5}, Fallback: skipMarket}
	next := Advance(s, cat, rng)

	require.Len(t, next.ShipmentHistory, 1)
	assert.Equal(t, StatusSeized, next.ShipmentHistory[0].Status)

	// Payout capped at the pool balance.
	assert.Equal(t, 0.0, next.RiskPoolBalance)
	assert.Equal(t, 1300.0, next.Money)

	// Seizure heat +15, then the same tick's 0.2 cooldown.
	assert.InDelta(t, 14.8, next.RouteStats[catalog.SouthwestMegaport].Heat, 1e-9)

	last := next.Notifications[len(next.Notifications)-1]
	assert.Equal(t, NoteError, last.Level)
	assert.Contains(t, last.Message, "Insurance covered $300")
}

func TestAdvance_SeizureWithEmptyPool(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.Money = 1000
	s.RiskPoolBalance = 0
	s.ActiveShipments = []Shipment{testShipment(0.99, 99)}

	rng := &entropy.Script{Values: []float64{0.5, 0.5}, Fallback: skipMarket}
	next := Advance(s, cat, rng)

	assert.Equal(t, 1000.0, next.Money)
	assert.Equal(t, 0.0, next.RiskPoolBalance)
	last := next.Notifications[len(next.Notifications)-1]
	assert.Contains(t, last.Message, "No insurance coverage")
}

func TestAdvance_DeliveryPaysAndEarnsReputation(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.Money = 0
	s.Reputation = 0
	s.ActiveShipments = []Shipment{testShipment(0.01, 99)}

	// Roll 0.9 >= 0.01 delivers.
	rng := &entropy.Script{Values: []float64{0.5, 0.9}, Fallback: skipMarket}
	next := Advance(s, cat, rng)

	require.Len(t, next.ShipmentHistory, 1)
	assert.Equal(t, StatusDelivered, next.ShipmentHistory[0].Status)
	assert.Equal(t, 4000.0, next.Money)
	assert.Equal(t, 40, next.Reputation)
	assert.Equal(t, 1, next.Level)

	// Delivery heats the route by 5, minus the same-tick cooldown.
	assert.InDelta(t, 4.8, next.RouteStats[catalog.SouthwestMegaport].Heat, 1e-9)
}

func TestAdvance_LevelUpSingleStep(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.Reputation = 990
	s.Level = 1
	sh := testShipment(0.01, 99)
	sh.PotentialRevenue = 400000 // enough reputation to cross several thresholds
	s.ActiveShipments = []Shipment{sh}

	rng := &entropy.Script{Values: []float64{0.5, 0.9}, Fallback: skipMarket}
	next := Advance(s, cat, rng)

	// One level per resolution, even on a jump past multiple thresholds.
	assert.Equal(t, 990+4000, next.Reputation)
	assert.Equal(t, 2, next.Level)
}

func TestAdvance_StealthRouteNoDeliveryHeat(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.UnlockedTechs["drone_program"] = true
	s.ActiveShipments = []Shipment{{
		ID:               "drone",
		Commodity:        catalog.Fentalyte,
		Amount:           5,
		Route:            catalog.DroneCorridor,
		Strategy:         catalog.Standard,
		Progress:         99,
		Risk:             0.05,
		PotentialRevenue: 7500,
		Cost:             1000,
		Status:           StatusInTransit,
	}}

	rng := &entropy.Script{Values: []float64{0.5, 0.9}, Fallback: skipMarket}
	next := Advance(s, cat, rng)

	require.Len(t, next.ShipmentHistory, 1)
	assert.Equal(t, StatusDelivered, next.ShipmentHistory[0].Status)
	assert.Equal(t, 0.0, next.RouteStats[catalog.DroneCorridor].Heat)
}

func TestAdvance_RouteCooldownAndEfficiency(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.RouteStats[catalog.AirFreight] = RouteStats{Heat: 60, Efficiency: 70}
	s.RouteStats[catalog.NorthernCrossing] = RouteStats{Heat: 0.1, Efficiency: 99.95}

	rng := &entropy.Script{Fallback: skipMarket}
	next := Advance(s, cat, rng)

	assert.InDelta(t, 59.8, next.RouteStats[catalog.AirFreight].Heat, 1e-9)
	assert.InDelta(t, 100-59.8*0.5, next.RouteStats[catalog.AirFreight].Efficiency, 1e-9)

	// Heat floors at zero.
	assert.Equal(t, 0.0, next.RouteStats[catalog.NorthernCrossing].Heat)
	assert.Equal(t, 100.0, next.RouteStats[catalog.NorthernCrossing].Efficiency)
}

func TestAdvance_MarketDriftGatedBySingleDraw(t *testing.T) {
	cat := catalog.Default()

	t.Run("gate closed leaves all prices alone", func(t *testing.T) {
		s := NewState(cat)
		before := map[catalog.CommodityType]float64{}
		for id, p := range s.MarketPrices {
			before[id] = p
		}

		rng := &entropy.Script{Values: []float64{0.1}, Fallback: 0.5} // gate draw exactly 0.1 fails
		next := Advance(s, cat, rng)

		for id, p := range before {
			assert.Equal(t, p, next.MarketPrices[id], "commodity %s", id)
		}
	})

	t.Run("gate open drifts every commodity", func(t *testing.T) {
		s := NewState(cat)

		// Gate 0.05 passes; every commodity draws 1.0 → +0.2*volatility*base.
		rng := &entropy.Script{Values: []float64{0.05}, Fallback: 1.0}
		next := Advance(s, cat, rng)

		for _, id := range cat.CommodityOrder {
			comm := cat.Commodities[id]
			want := comm.BaseSellPrice + 0.2*comm.Volatility*comm.BaseSellPrice
			assert.InDelta(t, want, next.MarketPrices[id], 1e-9, "commodity %s", id)
		}
	})

	t.Run("prices floor at half base", func(t *testing.T) {
		s := NewState(cat)
		for _, id := range cat.CommodityOrder {
			s.MarketPrices[id] = cat.Commodities[id].BaseSellPrice * 0.5
		}

		// Every commodity draws 0.0 → −0.2*volatility*base, into the floor.
		rng := &entropy.Script{Values: []float64{0.05}, Fallback: 0.0}
		next := Advance(s, cat, rng)

		for _, id := range cat.CommodityOrder {
			assert.Equal(t, cat.Commodities[id].BaseSellPrice*0.5, next.MarketPrices[id], "commodity %s", id)
		}
	})
}

func TestAdvance_DayAndGlobalHeat(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.RouteStats[catalog.AirFreight] = RouteStats{Heat: 60.2, Efficiency: 69.9}

	rng := &entropy.Script{Fallback: skipMarket}
	next := Advance(s, cat, rng)

	assert.Equal(t, s.Day+1, next.Day)
	// 5 routes at 0 after decay, air freight at 60.
	assert.InDelta(t, 10.0, next.GlobalHeat, 1e-9)
}

func TestAdvance_NotificationsCapped(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.Money = 1e9

	for i := 0; i < 30; i++ {
		var res Result
		s, res = BuyCommodity(s, cat, catalog.Methrax, 1)
		require.True(t, res.OK)
	}
	assert.Len(t, s.Notifications, 20)

	s = Advance(s, cat, &entropy.Script{Fallback: skipMarket})
	assert.LessOrEqual(t, len(s.Notifications), 20)
}

func TestAdvance_HistoryExactlyOnce(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.Money = 1e7
	s.Inventory[catalog.Methrax] = 10000

	for i := 0; i < 5; i++ {
		var res Result
		s, res = LaunchShipment(s, cat, catalog.Methrax, catalog.AirFreight, catalog.Standard, 100)
		require.True(t, res.OK)
	}
	ids := map[string]bool{}
	for _, sh := range s.ActiveShipments {
		ids[sh.ID] = false
	}

	rng := entropy.Seeded(99)
	for i := 0; i < 100 && len(s.ActiveShipments) > 0; i++ {
		s = Advance(s, cat, rng)
	}
	require.Empty(t, s.ActiveShipments)
	require.Len(t, s.ShipmentHistory, 5)

	for _, sh := range s.ShipmentHistory {
		seen, known := ids[sh.ID]
		require.True(t, known, "unknown shipment %s in history", sh.ID)
		require.False(t, seen, "shipment %s appears twice", sh.ID)
		ids[sh.ID] = true
		assert.Contains(t, []ShipmentStatus{StatusDelivered, StatusSeized}, sh.Status)
	}
}

// Shipments resolving in the same tick land at the front of the history as
// one batch, keeping resolution order, ahead of older entries.
func TestAdvance_SameTickResolutionsKeepOrder(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)

	first := testShipment(0.01, 99)
	first.ID = "first"
	second := testShipment(0.01, 99)
	second.ID = "second"
	s.ActiveShipments = []Shipment{first, second}
	s.ShipmentHistory = []Shipment{{ID: "older", Progress: 100, Status: StatusDelivered}}

	// Draws interleave per shipment: jitter, roll, jitter, roll.
	rng := &entropy.Script{Values: []float64{0.5, 0.9, 0.5, 0.9}, Fallback: skipMarket}
	next := Advance(s, cat, rng)

	require.Empty(t, next.ActiveShipments)
	require.Len(t, next.ShipmentHistory, 3)
	assert.Equal(t, "first", next.ShipmentHistory[0].ID)
	assert.Equal(t, "second", next.ShipmentHistory[1].ID)
	assert.Equal(t, "older", next.ShipmentHistory[2].ID)
}

// Money, pool and inventory stay non-negative under an arbitrary mix of
// commands and ticks.
func TestInvariants_NeverNegative(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	rng := entropy.Seeded(1234)
	cmdRng := entropy.Seeded(5678)

	check := func() {
		assert.GreaterOrEqual(t, s.Money, 0.0)
		assert.GreaterOrEqual(t, s.RiskPoolBalance, 0.0)
		for id, n := range s.Inventory {
			assert.GreaterOrEqual(t, n, 0, "inventory %s", id)
		}
	}

	for i := 0; i < 200; i++ {
		switch int(cmdRng.Float64() * 5) {
		case 0:
			s, _ = BuyCommodity(s, cat, catalog.Methrax, int(cmdRng.Float64()*500)+1)
		case 1:
			s, _ = LaunchShipment(s, cat, catalog.Methrax, catalog.SouthwestMegaport, catalog.Shotgun, int(cmdRng.Float64()*300)+1)
		case 2:
			s, _ = DepositToPool(s, cmdRng.Float64()*5000)
		case 3:
			s, _ = WithdrawFromPool(s, cmdRng.Float64()*5000)
		case 4:
			s, _ = UnlockTech(s, cat, "ghost_fleet")
		}
		s = Advance(s, cat, rng)
		check()
	}
}

// unlockedTechs only ever grows across commands and ticks.
func TestInvariants_TechSetGrowsOnly(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.Money = 1e6
	rng := entropy.Seeded(42)

	prev := map[string]bool{}
	steps := []string{"ghost_fleet", "counter_surveillance", "drone_program", "air_cavalry"}
	for _, node := range steps {
		s, _ = UnlockTech(s, cat, node)
		s = Advance(s, cat, rng)

		for id := range prev {
			assert.True(t, s.UnlockedTechs[id], "tech %s disappeared", id)
		}
		prev = map[string]bool{}
		for id := range s.UnlockedTechs {
			prev[id] = true
		}
	}
	assert.Len(t, s.UnlockedTechs, len(steps))
}

func TestAdvance_InputNotMutated(t *testing.T) {
	cat := catalog.Default()
	s := NewState(cat)
	s.ActiveShipments = []Shipment{testShipment(0.5, 50)}
	s.RouteStats[catalog.AirFreight] = RouteStats{Heat: 30, Efficiency: 85}

	progressBefore := s.ActiveShipments[0].Progress
	heatBefore := s.RouteStats[catalog.AirFreight].Heat
	dayBefore := s.Day

	_ = Advance(s, cat, entropy.Seeded(3))

	assert.Equal(t, progressBefore, s.ActiveShipments[0].Progress)
	assert.Equal(t, heatBefore, s.RouteStats[catalog.AirFreight].Heat)
	assert.Equal(t, dayBefore, s.Day)
}
