package match

import (
	"math"
	"time"
)

// Stoppage accumulates interruption time within the current playing phase.
// Readings are phase-local active clock values, not wall time.
type Stoppage struct {
	accumulated time.Duration
	openSince   time.Duration
	open        bool
}

// Begin opens an interruption. Calling it while one is open is a no-op.
func (stoppage *Stoppage) Begin(now time.Duration) {
	if stoppage.open {
		return
	}
	stoppage.openSince = now
	stoppage.open = true
}

// End closes the open interruption, if any.
func (stoppage *Stoppage) End(now time.Duration) {
	if !stoppage.open {
		return
	}
	if now > stoppage.openSince {
		stoppage.accumulated += now - stoppage.openSince
	}
	stoppage.openSince = 0
	stoppage.open = false
}

// Reset clears all accumulated time.
func (stoppage *Stoppage) Reset() {
	*stoppage = Stoppage{}
}

// Open reports whether an interruption is in progress.
func (stoppage *Stoppage) Open() bool {
	return stoppage.open
}

// Accumulated is the closed interruption time.
func (stoppage *Stoppage) Accumulated() time.Duration {
	return stoppage.accumulated
}

// Live is the accumulated time plus the in-progress interruption at now.
func (stoppage *Stoppage) Live(now time.Duration) time.Duration {
	live := stoppage.accumulated
	if stoppage.open && now > stoppage.openSince {
		live += now - stoppage.openSince
	}
	return live
}

// RecommendedAddedTime is zero until elapsed reaches phaseDuration minus the
// alert threshold, then the live interruption time rounded to whole minutes.
func (stoppage *Stoppage) RecommendedAddedTime(elapsed, phaseDuration, alertThreshold time.Duration) time.Duration {
	if elapsed < phaseDuration-alertThreshold {
		return 0
	}
	minutes := math.Round(stoppage.Live(elapsed).Minutes())
	return time.Duration(minutes) * time.Minute
}
