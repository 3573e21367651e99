// Package entropy isolates the simulation's randomness behind a small
// source interface so tick outcomes are replayable under test. The game
// never calls an ambient global RNG.
package entropy

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// Source yields uniform random floats in [0, 1). Every stochastic decision
// in the simulation takes exactly one draw.
type Source interface {
	Float64() float64
}

// Seeded returns a deterministic source backed by math/rand. Safe for
// concurrent use.
func Seeded(seed int64) Source {
	return &seeded{rng: rand.New(rand.NewSource(seed))}
}

type seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Crypto returns a source drawing from crypto/rand. Used when no seed is
// given and replayability doesn't matter.
func Crypto() Source {
	return cryptoSource{}
}

type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		// Should never happen; 0.5 is a safe neutral default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Script replays a canned sequence of draws, then returns Fallback forever.
// Test helper for pinning individual tick decisions.
type Script struct {
	Values   []float64
	Fallback float64
	next     int
}

func (s *Script) Float64() float64 {
	if s.next < len(s.Values) {
		v := s.Values[s.next]
		s.next++
		return v
	}
	return s.Fallback
}
