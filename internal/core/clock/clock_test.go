package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeWall struct {
	now time.Time
}

func (wall *fakeWall) Now() time.Time { return wall.now }

func (wall *fakeWall) advance(delta time.Duration) { wall.now = wall.now.Add(delta) }

func TestStopwatchStartStop(t *testing.T) {
	wall := &fakeWall{now: time.Date(2025, 10, 22, 15, 0, 0, 0, time.UTC)}
	watch := NewStopwatch(wall.Now)

	require.Zero(t, watch.Elapsed())

	watch.Start()
	require.Zero(t, watch.Elapsed(), "reading must be zero right after Start")

	wall.advance(90 * time.Second)
	require.Equal(t, 90*time.Second, watch.Elapsed())

	watch.Stop()
	wall.advance(time.Hour)
	require.Equal(t, 90*time.Second, watch.Elapsed(), "reading must freeze after Stop")

	watch.Start()
	require.Zero(t, watch.Elapsed(), "Start resets the reading")
}

func TestStopwatchNeverNegative(t *testing.T) {
	wall := &fakeWall{now: time.Date(2025, 10, 22, 15, 0, 0, 0, time.UTC)}
	watch := NewStopwatch(wall.Now)
	watch.Start()
	wall.advance(-time.Minute)
	require.Zero(t, watch.Elapsed())
}

func TestManualAdvanceOnlyWhileRunning(t *testing.T) {
	manual := NewManual()
	manual.Advance(time.Minute)
	require.Zero(t, manual.Elapsed())

	manual.Start()
	manual.Advance(time.Minute)
	manual.Advance(-time.Second)
	require.Equal(t, time.Minute, manual.Elapsed())
	require.True(t, manual.Running())

	manual.Stop()
	manual.Advance(time.Minute)
	require.Equal(t, time.Minute, manual.Elapsed())
	require.False(t, manual.Running())
}

func TestSensorFeedFallsBackUntilFirstReading(t *testing.T) {
	wall := &fakeWall{now: time.Date(2025, 11, 6, 18, 0, 0, 0, time.UTC)}
	feed := NewSensorFeed(wall.Now)
	feed.Start()

	wall.advance(5 * time.Second)
	require.Equal(t, 5*time.Second, feed.Elapsed())
	require.False(t, feed.Synced())

	feed.Update(6 * time.Second)
	require.True(t, feed.Synced())
	require.Equal(t, 6*time.Second, feed.Elapsed())

	wall.advance(time.Minute)
	require.Equal(t, 6*time.Second, feed.Elapsed(), "synced feed ignores the wall clock")

	feed.Update(4 * time.Second)
	require.Equal(t, 6*time.Second, feed.Elapsed(), "readings never go backwards")

	feed.Update(70 * time.Second)
	feed.Stop()
	feed.Update(80 * time.Second)
	require.Equal(t, 70*time.Second, feed.Elapsed())
}

func TestSensorFeedRejectsReadingBehindFallback(t *testing.T) {
	wall := &fakeWall{now: time.Date(2025, 11, 6, 18, 0, 0, 0, time.UTC)}
	feed := NewSensorFeed(wall.Now)
	feed.Start()
	wall.advance(10 * time.Second)

	feed.Update(3 * time.Second)
	require.False(t, feed.Synced())
	require.Equal(t, 10*time.Second, feed.Elapsed())
}
