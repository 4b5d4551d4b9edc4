package clock

import (
	"sync"
	"time"
)

// SensorFeed is a Source backed by an external session such as a workout
// tracker. Until the first reading arrives it falls back to a local
// stopwatch; afterwards it reports the sensor's readings. Readings never go
// backwards within one Start/Stop span.
type SensorFeed struct {
	mu       sync.Mutex
	fallback *Stopwatch
	reading  time.Duration
	synced   bool
	running  bool
}

// NewSensorFeed returns a stopped feed. A nil now uses time.Now for the
// fallback stopwatch.
func NewSensorFeed(now func() time.Time) *SensorFeed {
	return &SensorFeed{fallback: NewStopwatch(now)}
}

func (feed *SensorFeed) Start() {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	feed.fallback.Start()
	feed.reading = 0
	feed.synced = false
	feed.running = true
}

func (feed *SensorFeed) Stop() {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if !feed.running {
		return
	}
	feed.reading = feed.currentLocked()
	feed.fallback.Stop()
	feed.running = false
}

func (feed *SensorFeed) Elapsed() time.Duration {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if !feed.running {
		return feed.reading
	}
	return feed.currentLocked()
}

// Update records a reading from the sensor. Readings while stopped, and
// readings lower than what has already been reported, are dropped.
func (feed *SensorFeed) Update(elapsed time.Duration) {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if !feed.running {
		return
	}
	if elapsed < feed.currentLocked() {
		return
	}
	feed.reading = elapsed
	if !feed.synced {
		feed.synced = true
		feed.fallback.Stop()
	}
}

// Synced reports whether the sensor has taken over from the fallback.
func (feed *SensorFeed) Synced() bool {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	return feed.synced
}

func (feed *SensorFeed) currentLocked() time.Duration {
	if feed.synced {
		return feed.reading
	}
	local := feed.fallback.Elapsed()
	if local < feed.reading {
		return feed.reading
	}
	return local
}
