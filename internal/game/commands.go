package game

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/borderline/internal/catalog"
)

// RejectReason classifies why a command declined to run.
type RejectReason string

const (
	ReasonInsufficientFunds     RejectReason = "insufficient_funds"
	ReasonInsufficientInventory RejectReason = "insufficient_inventory"
	ReasonPrerequisiteNotMet    RejectReason = "prerequisite_not_met"
	ReasonAlreadyUnlocked       RejectReason = "already_unlocked"
	ReasonRouteLocked           RejectReason = "route_locked"
	ReasonLevelTooLow           RejectReason = "level_too_low"
	ReasonUnknownEntity         RejectReason = "unknown_entity"
	ReasonInvalidAmount         RejectReason = "invalid_amount"
)

// Result reports whether a command ran. Rejections are ordinary business
// outcomes, not errors: the caller gets the state back unchanged along with
// the reason.
type Result struct {
	OK     bool         `json:"ok"`
	Reason RejectReason `json:"reason,omitempty"`
}

func accepted() Result               { return Result{OK: true} }
func rejected(r RejectReason) Result { return Result{Reason: r} }

// BuyCommodity purchases amount units at catalog base cost.
func BuyCommodity(s WorldState, cat *catalog.Catalog, commodity catalog.CommodityType, amount int) (WorldState, Result) {
	comm, ok := cat.Commodities[commodity]
	if !ok {
		return s, rejected(ReasonUnknownEntity)
	}
	if amount <= 0 {
		return s, rejected(ReasonInvalidAmount)
	}
	if s.Level < comm.RequiredLevel {
		return s, rejected(ReasonLevelTooLow)
	}
	cost := comm.BaseCost * float64(amount)
	if s.Money < cost {
		return s, rejected(ReasonInsufficientFunds)
	}

	next := s.Clone()
	next.Money -= cost
	next.Inventory[commodity] += amount
	pushNote(&next, NoteSuccess, "Stock Acquired",
		fmt.Sprintf("Purchased %d units of %s for $%s.", amount, comm.Name, humanize.Commaf(cost)))
	return next, accepted()
}

// LaunchShipment dispatches a load. The seizure risk is computed against the
// route's current heat and frozen onto the shipment.
func LaunchShipment(s WorldState, cat *catalog.Catalog, commodity catalog.CommodityType, route catalog.RouteType, strategy catalog.StrategyType, amount int) (WorldState, Result) {
	comm, ok := cat.Commodities[commodity]
	if !ok {
		return s, rejected(ReasonUnknownEntity)
	}
	rt, ok := cat.Routes[route]
	if !ok {
		return s, rejected(ReasonUnknownEntity)
	}
	st, ok := cat.Strategies[strategy]
	if !ok {
		return s, rejected(ReasonUnknownEntity)
	}
	if amount <= 0 {
		return s, rejected(ReasonInvalidAmount)
	}
	if rt.RequiredTech != "" && !s.UnlockedTechs[rt.RequiredTech] {
		return s, rejected(ReasonRouteLocked)
	}
	if s.Inventory[commodity] < amount {
		return s, rejected(ReasonInsufficientInventory)
	}
	if s.Money < st.Fee {
		return s, rejected(ReasonInsufficientFunds)
	}

	next := s.Clone()
	next.Inventory[commodity] -= amount
	next.Money -= st.Fee

	sh := Shipment{
		ID:               uuid.NewString(),
		Commodity:        commodity,
		Amount:           amount,
		Route:            route,
		Strategy:         strategy,
		Progress:         0,
		Risk:             ComputeRisk(cat, commodity, route, strategy, amount, next.RouteStats[route].Heat),
		PotentialRevenue: float64(amount) * next.MarketPrices[commodity],
		Cost:             float64(amount)*comm.BaseCost + st.Fee,
		Status:           StatusInTransit,
	}
	next.ActiveShipments = append(next.ActiveShipments, sh)
	pushNote(&next, NoteInfo, "Operation Launched",
		fmt.Sprintf("Moving %d units of %s via %s.", amount, comm.Name, rt.Name))
	return next, accepted()
}

// DepositToPool moves money into the risk pool.
func DepositToPool(s WorldState, amount float64) (WorldState, Result) {
	if amount <= 0 {
		return s, rejected(ReasonInvalidAmount)
	}
	if s.Money < amount {
		return s, rejected(ReasonInsufficientFunds)
	}

	next := s.Clone()
	next.Money -= amount
	next.RiskPoolBalance += amount
	pushNote(&next, NoteInfo, "Pool Deposit",
		fmt.Sprintf("Moved $%s into the risk pool.", humanize.Commaf(amount)))
	return next, accepted()
}

// WithdrawFromPool moves risk pool funds back to money.
func WithdrawFromPool(s WorldState, amount float64) (WorldState, Result) {
	if amount <= 0 {
		return s, rejected(ReasonInvalidAmount)
	}
	if s.RiskPoolBalance < amount {
		return s, rejected(ReasonInsufficientFunds)
	}

	next := s.Clone()
	next.RiskPoolBalance -= amount
	next.Money += amount
	pushNote(&next, NoteWarning, "Pool Withdrawal",
		fmt.Sprintf("Withdrew $%s from the risk pool. Coverage reduced.", humanize.Commaf(amount)))
	return next, accepted()
}

// UnlockTech buys a tech tree node. The node's parent, if any, must already
// be unlocked.
func UnlockTech(s WorldState, cat *catalog.Catalog, nodeID string) (WorldState, Result) {
	node, ok := cat.TechNodes[nodeID]
	if !ok {
		return s, rejected(ReasonUnknownEntity)
	}
	if s.UnlockedTechs[nodeID] {
		return s, rejected(ReasonAlreadyUnlocked)
	}
	if node.ParentID != "" && !s.UnlockedTechs[node.ParentID] {
		return s, rejected(ReasonPrerequisiteNotMet)
	}
	if s.Money < node.Cost {
		return s, rejected(ReasonInsufficientFunds)
	}

	next := s.Clone()
	next.Money -= node.Cost
	next.UnlockedTechs[nodeID] = true
	pushNote(&next, NoteSuccess, "Upgrade Secured",
		fmt.Sprintf("%s unlocked. New logistics capabilities available.", node.Name))
	return next, accepted()
}
