package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEngine_TicksAndStops(t *testing.T) {
	e := New()
	e.Interval = time.Millisecond

	var count atomic.Int32
	e.OnTick = func(tick uint64) {
		if count.Add(1) >= 5 {
			e.Stop()
		}
	}

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}

	assert.GreaterOrEqual(t, count.Load(), int32(5))
	assert.GreaterOrEqual(t, e.Tick, uint64(5))
}

func TestEngine_PausedProducesNoTicks(t *testing.T) {
	e := New()
	e.Interval = time.Millisecond
	e.SetSpeed(0)

	var count atomic.Int32
	e.OnTick = func(uint64) { count.Add(1) }

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	e.Stop()
	<-done

	// Paused means no ticks fire, and no catch-up happens on resume.
	assert.Equal(t, int32(0), count.Load())
}

// Speed changes and Stop arrive from other goroutines in the shipped wiring
// (admin endpoint, signal handler). Hammer both while the loop runs; run with
// -race.
func TestEngine_ConcurrentSpeedAndStop(t *testing.T) {
	e := New()
	e.Interval = time.Millisecond

	var count atomic.Int32
	e.OnTick = func(uint64) { count.Add(1) }

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				e.SetSpeed(float64((i+j)%3) + 0.5)
				_ = e.Speed()
			}
		}(i)
	}
	wg.Wait()

	go e.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.Greater(t, count.Load(), int32(0))
}
