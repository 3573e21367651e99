package game

import (
	"sync"

	"github.com/talgya/borderline/internal/catalog"
	"github.com/talgya/borderline/internal/entropy"
)

// Session owns the live snapshot. Transforms replace the whole snapshot, so
// one mutex is the only locking discipline the game needs; there is nothing
// finer-grained to protect.
type Session struct {
	mu    sync.Mutex
	cat   *catalog.Catalog
	state WorldState
	rng   entropy.Source

	// OnChange, when set, receives a deep copy of the snapshot after every
	// accepted command and every tick. Set before the first tick fires.
	OnChange func(WorldState)
}

// NewSession starts a fresh game against the given catalog and randomness
// source.
func NewSession(cat *catalog.Catalog, rng entropy.Source) *Session {
	return &Session{cat: cat, state: NewState(cat), rng: rng}
}

// Catalog returns the immutable lookup tables.
func (s *Session) Catalog() *catalog.Catalog { return s.cat }

// Snapshot returns a deep copy of the current state. Callers may read or
// mangle it freely.
func (s *Session) Snapshot() WorldState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Advance runs one tick and returns the new snapshot.
func (s *Session) Advance() WorldState {
	s.mu.Lock()
	s.state = Advance(s.state, s.cat, s.rng)
	snap := s.state.Clone()
	s.mu.Unlock()

	s.changed(snap)
	return snap
}

// PreviewRisk computes the seizure probability for a hypothetical shipment
// against the route's current heat, without touching state.
func (s *Session) PreviewRisk(commodity catalog.CommodityType, route catalog.RouteType, strategy catalog.StrategyType, amount int) float64 {
	s.mu.Lock()
	heat := s.state.RouteStats[route].Heat
	s.mu.Unlock()
	return ComputeRisk(s.cat, commodity, route, strategy, amount, heat)
}

func (s *Session) BuyCommodity(commodity catalog.CommodityType, amount int) Result {
	return s.apply(func(st WorldState) (WorldState, Result) {
		return BuyCommodity(st, s.cat, commodity, amount)
	})
}

func (s *Session) LaunchShipment(commodity catalog.CommodityType, route catalog.RouteType, strategy catalog.StrategyType, amount int) Result {
	return s.apply(func(st WorldState) (WorldState, Result) {
		return LaunchShipment(st, s.cat, commodity, route, strategy, amount)
	})
}

func (s *Session) DepositToPool(amount float64) Result {
	return s.apply(func(st WorldState) (WorldState, Result) {
		return DepositToPool(st, amount)
	})
}

func (s *Session) WithdrawFromPool(amount float64) Result {
	return s.apply(func(st WorldState) (WorldState, Result) {
		return WithdrawFromPool(st, amount)
	})
}

func (s *Session) UnlockTech(nodeID string) Result {
	return s.apply(func(st WorldState) (WorldState, Result) {
		return UnlockTech(st, s.cat, nodeID)
	})
}

// apply runs a command transform under the lock, committing the new snapshot
// only when the command was accepted.
func (s *Session) apply(f func(WorldState) (WorldState, Result)) Result {
	s.mu.Lock()
	next, res := f(s.state)
	var snap WorldState
	if res.OK {
		s.state = next
		snap = next.Clone()
	}
	s.mu.Unlock()

	if res.OK {
		s.changed(snap)
	}
	return res
}

func (s *Session) changed(snap WorldState) {
	if s.OnChange != nil {
		s.OnChange(snap)
	}
}
