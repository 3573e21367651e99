// Package game implements the core simulation: the world snapshot, the risk
// model, the player command layer, and the tick engine that advances the
// world once per external time unit. All transforms are pure: they take a
// snapshot and return a new one, never mutating their input.
package game

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/borderline/internal/catalog"
)

// ShipmentStatus is the lifecycle state of a shipment. A shipment is created
// in transit and resolves to exactly one terminal status.
type ShipmentStatus string

const (
	StatusInTransit ShipmentStatus = "in-transit"
	StatusDelivered ShipmentStatus = "delivered"
	StatusSeized    ShipmentStatus = "seized"
)

// Shipment is one load moving along a route. The descriptive fields are
// fixed at launch; Risk in particular is frozen using the route heat at
// launch time and never recomputed in transit. Only the tick engine touches
// Progress and Status.
type Shipment struct {
	ID               string                `json:"id"`
	Commodity        catalog.CommodityType `json:"commodity"`
	Amount           int                   `json:"amount"`
	Route            catalog.RouteType     `json:"route"`
	Strategy         catalog.StrategyType  `json:"strategy"`
	Progress         float64               `json:"progress"`
	Risk             float64               `json:"risk"`
	PotentialRevenue float64               `json:"potential_revenue"`
	Cost             float64               `json:"cost"`
	Status           ShipmentStatus        `json:"status"`
}

// RouteStats is the per-route surveillance state. Efficiency is derived:
// 100 - heat*0.5.
type RouteStats struct {
	Heat       float64 `json:"heat"`
	Efficiency float64 `json:"efficiency"`
}

// NoteLevel classifies a notification for the presentation layer.
type NoteLevel string

const (
	NoteSuccess NoteLevel = "success"
	NoteError   NoteLevel = "error"
	NoteWarning NoteLevel = "warning"
	NoteInfo    NoteLevel = "info"
)

// Notification is one entry in the capped event log.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Level     NoteLevel `json:"level"`
	Timestamp int64     `json:"timestamp"` // unix milliseconds
}

// maxNotifications caps the event log; oldest entries are evicted first.
const maxNotifications = 20

// WorldState is the single root snapshot. State advances by whole-snapshot
// replacement: every command and every tick clones, transforms, and returns.
type WorldState struct {
	Money           float64                           `json:"money"`
	RiskPoolBalance float64                           `json:"risk_pool_balance"`
	Reputation      int                               `json:"reputation"`
	Level           int                               `json:"level"`
	Day             uint64                            `json:"day"`
	GlobalHeat      float64                           `json:"global_heat"`
	Inventory       map[catalog.CommodityType]int     `json:"inventory"`
	ActiveShipments []Shipment                        `json:"active_shipments"`
	ShipmentHistory []Shipment                        `json:"shipment_history"` // most recent first
	RouteStats      map[catalog.RouteType]RouteStats  `json:"route_stats"`
	MarketPrices    map[catalog.CommodityType]float64 `json:"market_prices"`
	Notifications   []Notification                    `json:"notifications"`
	UnlockedTechs   map[string]bool                   `json:"unlocked_techs"`
}

// NewState builds the opening snapshot from the catalog.
func NewState(cat *catalog.Catalog) WorldState {
	inv := make(map[catalog.CommodityType]int, len(cat.Commodities))
	prices := make(map[catalog.CommodityType]float64, len(cat.Commodities))
	for id, comm := range cat.Commodities {
		inv[id] = comm.StartingStock
		prices[id] = comm.BaseSellPrice
	}

	routes := make(map[catalog.RouteType]RouteStats, len(cat.Routes))
	for id := range cat.Routes {
		routes[id] = RouteStats{Heat: 0, Efficiency: 100}
	}

	s := WorldState{
		Money:           50000,
		RiskPoolBalance: 10000,
		Reputation:      0,
		Level:           1,
		Day:             1,
		GlobalHeat:      10,
		Inventory:       inv,
		RouteStats:      routes,
		MarketPrices:    prices,
		UnlockedTechs:   map[string]bool{},
	}
	pushNote(&s, NoteInfo, "System Online", "Welcome to the network, Boss.")
	return s
}

// Clone returns a deep copy. Shipments and notifications are value types, so
// cloning the containers is enough.
func (s WorldState) Clone() WorldState {
	out := s
	out.Inventory = maps.Clone(s.Inventory)
	out.RouteStats = maps.Clone(s.RouteStats)
	out.MarketPrices = maps.Clone(s.MarketPrices)
	out.UnlockedTechs = maps.Clone(s.UnlockedTechs)
	out.ActiveShipments = slices.Clone(s.ActiveShipments)
	out.ShipmentHistory = slices.Clone(s.ShipmentHistory)
	out.Notifications = slices.Clone(s.Notifications)
	return out
}

func pushNote(s *WorldState, level NoteLevel, title, message string) {
	s.Notifications = append(s.Notifications, Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Level:     level,
		Timestamp: time.Now().UnixMilli(),
	})
	trimNotes(s)
}

func trimNotes(s *WorldState) {
	if n := len(s.Notifications); n > maxNotifications {
		s.Notifications = slices.Clone(s.Notifications[n-maxNotifications:])
	}
}
