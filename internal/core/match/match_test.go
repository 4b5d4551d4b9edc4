package match

import (
	"sync"
	"testing"
	"time"

	"refwatch/internal/core/clock"
	"refwatch/internal/core/model"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	reports []Report
}

func (publisher *recordingPublisher) Publish(report Report) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.reports = append(publisher.reports, report)
}

func (publisher *recordingPublisher) published() []Report {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	return append([]Report(nil), publisher.reports...)
}

type harness struct {
	match     *Match
	clock     *clock.Manual
	publisher *recordingPublisher
}

var kickOffTime = time.Date(2025, 10, 22, 19, 45, 0, 0, time.UTC)

func newHarness(t *testing.T) harness {
	t.Helper()
	manual := clock.NewManual()
	publisher := &recordingPublisher{}
	match := New(model.MatchConfig{HomeTeam: "Lions", AwayTeam: "Tigers"}, Options{
		Clock:     manual,
		Publisher: publisher,
		NewID:     sequentialIDs(),
		Now:       func() time.Time { return kickOffTime },
	})
	t.Cleanup(match.Close)
	return harness{match: match, clock: manual, publisher: publisher}
}

// playTo advances the clock so that the current phase reads elapsed.
func (h harness) playTo(elapsed time.Duration) {
	h.clock.Advance(elapsed - h.match.Status().ElapsedInPhase)
}

func (h harness) playRegulation(t *testing.T) {
	t.Helper()
	h.playTo(45 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.NoError(t, h.match.ResumePhase())
	h.playTo(45 * time.Minute)
	require.NoError(t, h.match.EndPhase())
}

func TestNewMatchKicksOff(t *testing.T) {
	h := newHarness(t)

	status := h.match.Status()
	require.Equal(t, PhaseFirstHalf, status.Phase)
	require.True(t, status.Running)
	require.True(t, status.ClockActive)
	require.Zero(t, status.ElapsedInPhase)
	require.True(t, h.clock.Running())
	require.Equal(t, model.DefaultHalfDuration, h.match.Config().HalfDuration)
	require.Equal(t, model.DefaultExtraTimeHalfDuration, h.match.Config().ExtraTimeHalfDuration)
	require.Equal(t, model.DefaultAlertThreshold, h.match.Config().AlertThreshold)
}

func TestEndToEndRegulationMatch(t *testing.T) {
	h := newHarness(t)

	h.playTo(900 * time.Second)
	goal, err := h.match.RecordGoal(TeamHome, 9, GoalNormal)
	require.NoError(t, err)
	require.Equal(t, 900.0, goal.TimestampSeconds)
	require.Equal(t, PhaseFirstHalf, goal.Phase)
	require.Equal(t, 1, h.match.ScoreBoard().HomeScore)

	h.playTo(1800 * time.Second)
	_, err = h.match.RecordCard(TeamAway, 4, CardYellow)
	require.NoError(t, err)

	h.playTo(2500 * time.Second)
	cards, err := h.match.RecordCard(TeamAway, 4, CardYellow)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	require.Len(t, h.match.Events(), 4)
	require.Equal(t, 1, h.match.ScoreBoard().AwayRedCards)

	h.playTo(2700 * time.Second)
	require.NoError(t, h.match.EndPhase())
	require.Equal(t, PhaseHalftimeBreak, h.match.Phase())
	require.False(t, h.match.Running())

	require.NoError(t, h.match.ResumePhase())
	require.Equal(t, PhaseSecondHalf, h.match.Phase())
	require.True(t, h.match.Running())

	h.playTo(2820 * time.Second)
	require.NoError(t, h.match.EndPhase())

	report, err := h.match.Finalize()
	require.NoError(t, err)
	require.Equal(t, PhaseFinished, h.match.Phase())
	require.Equal(t, 1, report.HomeScore)
	require.Equal(t, 0, report.AwayScore)
	require.Len(t, report.Events, 4)
	require.Equal(t, 2700.0, report.FirstHalfDuration)
	require.Equal(t, 2820.0, report.SecondHalfDuration)
	require.Equal(t, "Lions", report.HomeTeam)
	require.Equal(t, "Tigers", report.AwayTeam)
	require.Equal(t, kickOffTime, report.CreatedAt)
	require.Nil(t, report.HomePenaltyScore)

	published := h.publisher.published()
	require.Len(t, published, 1)
	require.Equal(t, report.ID, published[0].ID)

	stored, ok := h.match.Report()
	require.True(t, ok)
	require.Equal(t, report.ID, stored.ID)
}

func TestSecondYellowAddsOneRedCard(t *testing.T) {
	h := newHarness(t)
	updates := h.match.Subscribe(32)

	h.playTo(10 * time.Minute)
	_, err := h.match.RecordCard(TeamHome, 7, CardYellow)
	require.NoError(t, err)

	h.playTo(45 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.NoError(t, h.match.ResumePhase())

	h.playTo(20 * time.Minute)
	before := h.match.ScoreBoard().HomeRedCards
	cards, err := h.match.RecordCard(TeamHome, 7, CardYellow)
	require.NoError(t, err)
	require.Equal(t, before+1, h.match.ScoreBoard().HomeRedCards)

	events := h.match.Events()
	require.Len(t, events, 3)
	red := events[2]
	require.Equal(t, cards[1], red)
	require.Equal(t, KindCard, red.Kind)
	require.Equal(t, CardRed, red.CardKind)
	require.Equal(t, TeamHome, red.Team)
	require.Equal(t, 7, red.Player())
	require.True(t, red.Automatic)
	require.Equal(t, PhaseSecondHalf, red.Phase)
	require.Equal(t, events[1].TimestampSeconds, red.TimestampSeconds)
	require.Equal(t, (65 * time.Minute).Seconds(), red.TimestampSeconds)

	require.Contains(t, drainFeedback(updates), FeedbackSecondYellow)

	_, err = h.match.RecordCard(TeamHome, 7, CardYellow)
	require.NoError(t, err)
	require.Equal(t, before+1, h.match.ScoreBoard().HomeRedCards, "a third yellow does not add another red")
}

func TestYellowsForDifferentPlayersDoNotCombine(t *testing.T) {
	h := newHarness(t)
	_, err := h.match.RecordCard(TeamHome, 7, CardYellow)
	require.NoError(t, err)
	_, err = h.match.RecordCard(TeamAway, 7, CardYellow)
	require.NoError(t, err)
	_, err = h.match.RecordCard(TeamHome, 8, CardYellow)
	require.NoError(t, err)

	board := h.match.ScoreBoard()
	require.Zero(t, board.HomeRedCards)
	require.Zero(t, board.AwayRedCards)
	require.Len(t, h.match.Events(), 3)
}

func TestRecordingRejectedWhileNotRunning(t *testing.T) {
	h := newHarness(t)
	updates := h.match.Subscribe(8)

	require.NoError(t, h.match.PauseClock())
	before := h.match.Status()

	_, err := h.match.RecordGoal(TeamHome, 9, GoalNormal)
	require.ErrorIs(t, err, ErrNotRunning)
	_, err = h.match.RecordCard(TeamAway, 4, CardRed)
	require.ErrorIs(t, err, ErrNotRunning)
	_, err = h.match.RecordSubstitution(TeamAway, 4, 14)
	require.ErrorIs(t, err, ErrNotRunning)

	after := h.match.Status()
	require.Equal(t, before.Board, after.Board)
	require.Equal(t, before.EventCount, after.EventCount)
	require.Empty(t, h.match.Events())

	rejected := 0
	for range len(updates) {
		if n := <-updates; n.Type == NotifyRejected {
			rejected++
			require.ErrorIs(t, n.Err, ErrNotRunning)
		}
	}
	require.Equal(t, 3, rejected)
}

func TestRecordingRejectedDuringBreak(t *testing.T) {
	h := newHarness(t)
	h.playTo(45 * time.Minute)
	require.NoError(t, h.match.EndPhase())

	_, err := h.match.RecordGoal(TeamAway, 11, GoalNormal)
	require.ErrorIs(t, err, ErrNotRunning)
	require.Zero(t, h.match.ScoreBoard().AwayScore)
}

func TestInvalidEventInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.match.RecordGoal(Team("neutral"), 9, GoalNormal)
	require.ErrorIs(t, err, ErrInvalidEvent)
	_, err = h.match.RecordGoal(TeamHome, -1, GoalNormal)
	require.ErrorIs(t, err, ErrInvalidEvent)
	_, err = h.match.RecordGoal(TeamHome, 9, GoalKind("header"))
	require.ErrorIs(t, err, ErrInvalidEvent)
	_, err = h.match.RecordCard(TeamHome, 9, CardKind("blue"))
	require.ErrorIs(t, err, ErrInvalidEvent)
	require.Empty(t, h.match.Events())
}

func TestAllGoalKindsCountForRecordedTeam(t *testing.T) {
	h := newHarness(t)
	for _, kind := range []GoalKind{GoalNormal, GoalPenalty, GoalOwnGoal} {
		_, err := h.match.RecordGoal(TeamAway, 5, kind)
		require.NoError(t, err)
	}
	require.Equal(t, 3, h.match.ScoreBoard().AwayScore)
	require.Zero(t, h.match.ScoreBoard().HomeScore)
}

func TestInterruptionsDoNotBlockEvents(t *testing.T) {
	h := newHarness(t)
	h.playTo(10 * time.Minute)

	require.NoError(t, h.match.BeginInterruption())
	status := h.match.Status()
	require.True(t, status.Interrupted)
	require.False(t, status.ClockActive)
	require.True(t, status.Running)

	h.playTo(11 * time.Minute)
	_, err := h.match.RecordCard(TeamAway, 6, CardYellow)
	require.NoError(t, err)

	require.NoError(t, h.match.BeginInterruption(), "second begin is a no-op")
	h.playTo(12 * time.Minute)
	require.NoError(t, h.match.EndInterruption())
	require.NoError(t, h.match.EndInterruption(), "end without an open interruption is a no-op")

	status = h.match.Status()
	require.False(t, status.Interrupted)
	require.True(t, status.ClockActive)
	require.Equal(t, 2*time.Minute, status.StoppageTime)
}

func TestInterruptionRequiresRunningHalf(t *testing.T) {
	h := newHarness(t)
	h.playTo(45 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.ErrorIs(t, h.match.BeginInterruption(), ErrNotRunning)
	require.ErrorIs(t, h.match.EndInterruption(), ErrNotRunning)
}

func TestRecommendedAddedTimeAndStoppageReset(t *testing.T) {
	h := newHarness(t)
	updates := h.match.Subscribe(64)

	h.playTo(20 * time.Minute)
	require.NoError(t, h.match.BeginInterruption())
	h.playTo(22*time.Minute + 40*time.Second)
	require.NoError(t, h.match.EndInterruption())

	h.playTo(44 * time.Minute)
	status := h.match.Tick()
	require.Zero(t, status.RecommendedAddedTime)

	h.playTo(44*time.Minute + 30*time.Second)
	status = h.match.Tick()
	require.Equal(t, 3*time.Minute, status.RecommendedAddedTime)
	h.match.Tick()

	alerts := 0
	for _, feedback := range drainFeedback(updates) {
		if feedback == FeedbackAddedTimeAlert {
			alerts++
		}
	}
	require.Equal(t, 1, alerts, "the added time alert fires once per half")

	h.playTo(47 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.NoError(t, h.match.ResumePhase())
	status = h.match.Status()
	require.Zero(t, status.StoppageTime, "stoppage resets between halves")
}

func TestEndPhaseClosesOpenInterruption(t *testing.T) {
	h := newHarness(t)
	h.playTo(44 * time.Minute)
	require.NoError(t, h.match.BeginInterruption())
	h.playTo(46 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.NoError(t, h.match.ResumePhase())
	require.False(t, h.match.Status().Interrupted)
}

func TestPauseAndResumeContinueElapsed(t *testing.T) {
	h := newHarness(t)
	h.playTo(10 * time.Minute)
	require.NoError(t, h.match.PauseClock())
	require.ErrorIs(t, h.match.PauseClock(), ErrInvalidTransition)
	require.ErrorIs(t, h.match.EndPhase(), ErrInvalidTransition, "end phase while not running")

	h.clock.Advance(5 * time.Minute)
	require.Equal(t, 10*time.Minute, h.match.Status().ElapsedInPhase)

	require.NoError(t, h.match.ResumePhase())
	h.clock.Advance(time.Minute)
	require.Equal(t, 11*time.Minute, h.match.Status().ElapsedInPhase)
	require.Equal(t, PhaseFirstHalf, h.match.Phase())
}

func TestMatchTimeDisplayOffsets(t *testing.T) {
	h := newHarness(t)
	h.playTo(45 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.Equal(t, 45*time.Minute, h.match.Status().MatchTime)

	require.NoError(t, h.match.ResumePhase())
	h.playTo(3 * time.Minute)
	require.Equal(t, 48*time.Minute, h.match.Status().MatchTime)
	require.Equal(t, 3*time.Minute, h.match.Status().ElapsedInPhase)

	h.playTo(45 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.NoError(t, h.match.StartExtraTime())
	require.Equal(t, 90*time.Minute, h.match.Status().MatchTime)

	require.NoError(t, h.match.ResumePhase())
	h.playTo(15 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.Equal(t, 105*time.Minute, h.match.Status().MatchTime)

	require.NoError(t, h.match.ResumePhase())
	h.playTo(2 * time.Minute)
	require.Equal(t, 107*time.Minute, h.match.Status().MatchTime)
}

func TestInvalidTransitions(t *testing.T) {
	h := newHarness(t)

	require.ErrorIs(t, h.match.ResumePhase(), ErrInvalidTransition)
	require.ErrorIs(t, h.match.StartExtraTime(), ErrInvalidTransition)
	require.ErrorIs(t, h.match.StartPenaltyShootout(), ErrInvalidTransition)
	_, err := h.match.Finalize()
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = h.match.RecordKick(true)
	require.ErrorIs(t, err, ErrInvalidTransition)

	h.playTo(45 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.ErrorIs(t, h.match.EndPhase(), ErrInvalidTransition)
	_, err = h.match.Finalize()
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.Equal(t, PhaseHalftimeBreak, h.match.Phase())
	require.Empty(t, h.publisher.published())
}

func TestShootoutRequiresLevelScores(t *testing.T) {
	h := newHarness(t)
	_, err := h.match.RecordGoal(TeamHome, 9, GoalNormal)
	require.NoError(t, err)
	h.playRegulation(t)

	require.ErrorIs(t, h.match.StartPenaltyShootout(), ErrInvalidTransition)
	require.Equal(t, PhaseSecondHalf, h.match.Phase())
	require.False(t, h.match.Status().CanStartShootout)
	require.True(t, h.match.Status().CanFinalize)
}

func TestExtraTimeAndShootout(t *testing.T) {
	h := newHarness(t)
	h.playTo(30 * time.Minute)
	_, err := h.match.RecordGoal(TeamHome, 9, GoalNormal)
	require.NoError(t, err)
	h.playTo(45 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.NoError(t, h.match.ResumePhase())
	h.playTo(40 * time.Minute)
	_, err = h.match.RecordGoal(TeamAway, 11, GoalPenalty)
	require.NoError(t, err)
	h.playTo(46 * time.Minute)
	require.NoError(t, h.match.EndPhase())

	require.True(t, h.match.Status().CanStartExtraTime)
	require.NoError(t, h.match.StartExtraTime())
	require.Equal(t, PhaseExtraTimeFirstHalf, h.match.Phase())
	require.False(t, h.match.Running())
	_, err = h.match.RecordGoal(TeamHome, 9, GoalNormal)
	require.ErrorIs(t, err, ErrNotRunning, "extra time has not kicked off yet")

	require.NoError(t, h.match.ResumePhase())
	h.playTo(15 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.Equal(t, PhaseExtraTimeBreak, h.match.Phase())
	require.NoError(t, h.match.ResumePhase())
	require.Equal(t, PhaseExtraTimeSecondHalf, h.match.Phase())
	h.playTo(16 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.False(t, h.match.Status().CanStartExtraTime)

	require.NoError(t, h.match.StartPenaltyShootout())
	require.Equal(t, PhasePenaltyShootout, h.match.Phase())
	_, err = h.match.Finalize()
	require.ErrorIs(t, err, ErrInvalidTransition, "an undecided shootout cannot be finalized")

	results := []bool{true, false, true, false, true, false}
	for i, scored := range results {
		_, err := h.match.RecordKick(scored)
		require.NoError(t, err)
		if i < len(results)-1 {
			require.Equal(t, PhasePenaltyShootout, h.match.Phase())
		}
	}
	require.Equal(t, PhaseFinished, h.match.Phase())

	_, err = h.match.RecordKick(true)
	require.ErrorIs(t, err, ErrAlreadyFinalized)

	published := h.publisher.published()
	require.Len(t, published, 1)
	report := published[0]
	require.Equal(t, 1, report.HomeScore)
	require.Equal(t, 1, report.AwayScore)
	require.NotNil(t, report.HomePenaltyScore)
	require.Equal(t, 3, *report.HomePenaltyScore)
	require.Equal(t, 0, *report.AwayPenaltyScore)
	require.Equal(t, (45 * time.Minute).Seconds(), report.FirstHalfDuration)
	require.Equal(t, (46 * time.Minute).Seconds(), report.SecondHalfDuration)
	require.Equal(t, (15 * time.Minute).Seconds(), report.ExtraTimeFirstHalfDuration)
	require.Equal(t, (16 * time.Minute).Seconds(), report.ExtraTimeSecondHalfDuration)
	require.True(t, report.WentToPenalties())
}

func TestPhasesOnlyMoveForward(t *testing.T) {
	h := newHarness(t)
	h.playRegulation(t)
	require.NoError(t, h.match.StartExtraTime())
	require.NoError(t, h.match.ResumePhase())
	h.playTo(15 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.NoError(t, h.match.ResumePhase())
	h.playTo(15 * time.Minute)
	require.NoError(t, h.match.EndPhase())
	require.NoError(t, h.match.StartPenaltyShootout())
	for _, scored := range []bool{true, false, true, false, true, false} {
		_, err := h.match.RecordKick(scored)
		require.NoError(t, err)
	}

	visited := h.match.Visited()
	require.Equal(t, phaseOrder, visited)
	for i := 1; i < len(visited); i++ {
		require.Greater(t, visited[i].index(), visited[i-1].index())
	}
}

func TestSkippingExtraTimeKeepsOrder(t *testing.T) {
	h := newHarness(t)
	h.playRegulation(t)
	_, err := h.match.Finalize()
	require.NoError(t, err)

	require.Equal(t, []Phase{PhaseFirstHalf, PhaseHalftimeBreak, PhaseSecondHalf, PhaseFinished}, h.match.Visited())
}

func TestFinalizedMatchRejectsMutations(t *testing.T) {
	h := newHarness(t)
	h.playRegulation(t)
	_, err := h.match.Finalize()
	require.NoError(t, err)

	_, err = h.match.RecordGoal(TeamHome, 9, GoalNormal)
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	require.ErrorIs(t, h.match.EndPhase(), ErrAlreadyFinalized)
	require.ErrorIs(t, h.match.ResumePhase(), ErrAlreadyFinalized)
	require.ErrorIs(t, h.match.BeginInterruption(), ErrAlreadyFinalized)
	require.ErrorIs(t, h.match.SetRefereeNote("late"), ErrAlreadyFinalized)
	_, err = h.match.Finalize()
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	require.Len(t, h.publisher.published(), 1, "a report is published exactly once")
}

func TestFinalizedReportSharesNoMemory(t *testing.T) {
	h := newHarness(t)
	_, err := h.match.RecordGoal(TeamHome, 9, GoalNormal)
	require.NoError(t, err)
	h.playRegulation(t)

	report, err := h.match.Finalize()
	require.NoError(t, err)
	report.Events[0].Team = TeamAway
	report.Events[0].PlayerNumber = intPtr(99)

	stored, ok := h.match.Report()
	require.True(t, ok)
	require.Equal(t, TeamHome, stored.Events[0].Team)
	require.Equal(t, 9, stored.Events[0].Player())

	stored.Events[0].PlayerNumber = intPtr(42)
	again, _ := h.match.Report()
	require.Equal(t, 9, again.Events[0].Player())

	published := h.publisher.published()
	require.Len(t, published, 1)
	require.Equal(t, TeamHome, published[0].Events[0].Team)
	require.Equal(t, 9, published[0].Events[0].Player())
}

func TestRecordedEventSharesNoMemoryWithLog(t *testing.T) {
	h := newHarness(t)
	event, err := h.match.RecordGoal(TeamHome, 9, GoalNormal)
	require.NoError(t, err)
	*event.PlayerNumber = 99

	events := h.match.Events()
	require.Equal(t, 9, events[0].Player())
	*events[0].PlayerNumber = 77
	require.Equal(t, 9, h.match.Events()[0].Player())
}

func TestRefereeNoteCarriedIntoReport(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.match.SetRefereeNote("Floodlight failure delayed kick-off"))
	h.playRegulation(t)
	report, err := h.match.Finalize()
	require.NoError(t, err)
	require.Equal(t, "Floodlight failure delayed kick-off", report.RefereeNote)
}

func TestResetStartsFreshMatch(t *testing.T) {
	h := newHarness(t)
	_, err := h.match.RecordGoal(TeamHome, 9, GoalNormal)
	require.NoError(t, err)
	h.playRegulation(t)
	_, err = h.match.Finalize()
	require.NoError(t, err)

	h.match.Reset()
	status := h.match.Status()
	require.Equal(t, PhaseFirstHalf, status.Phase)
	require.True(t, status.Running)
	require.Zero(t, status.ElapsedInPhase)
	require.Zero(t, status.EventCount)
	require.Equal(t, ScoreBoard{}, status.Board)
	_, ok := h.match.Report()
	require.False(t, ok)
	require.Len(t, h.publisher.published(), 1)

	_, err = h.match.RecordGoal(TeamAway, 10, GoalNormal)
	require.NoError(t, err)
}

func TestNotificationsDoNotBlockOnSlowObserver(t *testing.T) {
	h := newHarness(t)
	updates := h.match.Subscribe(1)

	for i := range 20 {
		_, err := h.match.RecordGoal(TeamHome, i, GoalNormal)
		require.NoError(t, err)
	}
	require.Equal(t, 20, h.match.ScoreBoard().HomeScore)
	require.Len(t, updates, 1)
}

func TestConcurrentWritersKeepScoreConsistent(t *testing.T) {
	h := newHarness(t)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(player int) {
			defer wg.Done()
			for range 25 {
				_, _ = h.match.RecordGoal(TeamHome, player, GoalNormal)
				h.match.Tick()
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 200, h.match.ScoreBoard().HomeScore)
	require.Len(t, h.match.Events(), 200)
}

func drainFeedback(updates <-chan Notification) []Feedback {
	var feedback []Feedback
	for {
		select {
		case n := <-updates:
			if n.Type == NotifyFeedback {
				feedback = append(feedback, n.Feedback)
			}
		default:
			return feedback
		}
	}
}
