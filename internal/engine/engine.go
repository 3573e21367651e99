// Package engine drives the simulation on a fixed wall-clock cadence. The
// state transition itself lives in the game package; this loop only decides
// when it fires. Pausing the loop produces no catch-up ticks on resume.
package engine

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// Engine fires OnTick at a fixed interval, adjusted by the speed multiplier.
// Interval and OnTick are set before Run; speed and the running flag are
// atomics because the admin endpoint and the signal handler touch them from
// other goroutines.
type Engine struct {
	Tick     uint64        // monotonic tick counter, owned by the Run goroutine
	Interval time.Duration // base tick interval

	OnTick func(tick uint64)

	speed   atomic.Uint64 // float64 bits
	running atomic.Bool
}

// New creates an engine ticking once per second at normal speed.
func New() *Engine {
	e := &Engine{Interval: time.Second}
	e.SetSpeed(1.0)
	return e
}

// Speed returns the current tick-rate multiplier.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speed.Load())
}

// SetSpeed changes the multiplier: 1.0 = real-time, 0 = paused. Safe to call
// from any goroutine.
func (e *Engine) SetSpeed(v float64) {
	e.speed.Store(math.Float64bits(v))
}

// Run starts the loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("tick engine started", "tick", e.Tick, "interval", e.Interval, "speed", e.Speed())

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("tick engine stopped", "tick", e.Tick)
}

// Stop halts the loop. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.running.Store(false)
}

func (e *Engine) step() {
	e.Tick++
	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
}
