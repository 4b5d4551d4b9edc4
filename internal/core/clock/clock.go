// Package clock provides elapsed-time sources for the match state machine.
//
// A Source reports monotonic active time since its last Start. The match
// only relies on that contract, so a wall-clock stopwatch, a manual clock
// driven by tests, or an external sensor feed are interchangeable.
package clock

import (
	"sync"
	"time"
)

// Source supplies elapsed active time.
type Source interface {
	// Start resets the reading to zero and begins counting.
	Start()
	// Stop freezes the reading until the next Start.
	Stop()
	// Elapsed returns active time since the last Start.
	Elapsed() time.Duration
}

// Stopwatch measures elapsed time with the process monotonic clock.
type Stopwatch struct {
	mu      sync.Mutex
	now     func() time.Time
	started time.Time
	frozen  time.Duration
	running bool
}

// NewStopwatch returns a stopped stopwatch. A nil now uses time.Now.
func NewStopwatch(now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	return &Stopwatch{now: now}
}

func (watch *Stopwatch) Start() {
	watch.mu.Lock()
	defer watch.mu.Unlock()
	watch.started = watch.now()
	watch.frozen = 0
	watch.running = true
}

func (watch *Stopwatch) Stop() {
	watch.mu.Lock()
	defer watch.mu.Unlock()
	if !watch.running {
		return
	}
	watch.frozen = watch.sinceLocked()
	watch.running = false
}

func (watch *Stopwatch) Elapsed() time.Duration {
	watch.mu.Lock()
	defer watch.mu.Unlock()
	if !watch.running {
		return watch.frozen
	}
	return watch.sinceLocked()
}

func (watch *Stopwatch) sinceLocked() time.Duration {
	elapsed := watch.now().Sub(watch.started)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Manual is a Source moved forward explicitly with Advance.
// Use it in tests and simulations.
type Manual struct {
	mu      sync.Mutex
	elapsed time.Duration
	running bool
}

// NewManual returns a stopped manual clock.
func NewManual() *Manual {
	return &Manual{}
}

func (manual *Manual) Start() {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	manual.elapsed = 0
	manual.running = true
}

func (manual *Manual) Stop() {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	manual.running = false
}

func (manual *Manual) Elapsed() time.Duration {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	return manual.elapsed
}

// Advance moves the reading forward while the clock is running.
// Negative durations and advances on a stopped clock are ignored.
func (manual *Manual) Advance(delta time.Duration) {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	if !manual.running || delta <= 0 {
		return
	}
	manual.elapsed += delta
}

// Running reports whether the clock is counting.
func (manual *Manual) Running() bool {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	return manual.running
}

var (
	_ Source = (*Stopwatch)(nil)
	_ Source = (*Manual)(nil)
	_ Source = (*SensorFeed)(nil)
)
