package layout

import (
	"sync/atomic"
	"time"

	"github.com/starford/thoughtmap/internal/metrics"
)

// DefaultFrameInterval paces simulation steps at roughly 60 per second.
const DefaultFrameInterval = 16 * time.Millisecond

// TickFunc observes the simulation after each step. It runs on the runner
// goroutine and must not call back into the Runner.
type TickFunc func(s *Simulation)

// Runner drives a Simulation as a scheduled task: step, notify, wait for the
// next frame, repeat.
//
// Concurrency model: a single goroutine owns the simulation and its nodes.
// Callers reach it only through Do, which runs a function between two steps,
// so positions, pins and alpha need no locks. The frame ticker is stopped
// while the simulation is at rest and restarted by any command that warms it.
type Runner struct {
	sim      *Simulation
	interval time.Duration
	onTick   TickFunc

	cmdCh   chan func(*Simulation)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewRunner starts a runner for sim. onTick may be nil.
func NewRunner(sim *Simulation, interval time.Duration, onTick TickFunc) *Runner {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	r := &Runner{
		sim:      sim,
		interval: interval,
		onTick:   onTick,
		cmdCh:    make(chan func(*Simulation)),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Runner) run() {
	defer close(r.stopped)

	var ticker *time.Ticker
	var tickCh <-chan time.Time
	wake := func() {
		if ticker != nil || r.sim.Done() {
			return
		}
		ticker = time.NewTicker(r.interval)
		tickCh = ticker.C
	}
	sleep := func() {
		if ticker == nil {
			return
		}
		ticker.Stop()
		ticker, tickCh = nil, nil
	}
	defer sleep()

	wake()
	for {
		select {
		case <-r.stopCh:
			return

		case fn := <-r.cmdCh:
			fn(r.sim)
			wake()

		case <-tickCh:
			r.sim.Tick()
			if r.onTick != nil {
				r.onTick(r.sim)
			}
			if r.sim.Done() {
				sleep()
			}
		}
	}
}

// Do runs fn on the runner goroutine between two steps and waits for it to
// return. It reports false, without running fn, once the runner is stopped.
func (r *Runner) Do(fn func(*Simulation)) bool {
	if r.closed.Load() {
		return false
	}
	done := make(chan struct{})
	wrapped := func(s *Simulation) {
		defer close(done)
		fn(s)
	}
	select {
	case r.cmdCh <- wrapped:
	case <-r.stopped:
		return false
	}
	<-done
	return true
}

// Reheat restarts the simulation at full temperature.
func (r *Runner) Reheat(cause string) bool {
	return r.Do(func(s *Simulation) {
		s.Restart()
		metrics.ObserveRestart(cause)
	})
}

// Running reports whether the runner has not been stopped.
func (r *Runner) Running() bool {
	return !r.closed.Load()
}

// Stop halts the loop and waits for it to exit. No TickFunc call starts after
// Stop returns. Stop is idempotent.
func (r *Runner) Stop() {
	if r.closed.CompareAndSwap(false, true) {
		close(r.stopCh)
	}
	<-r.stopped
}
