package match

import (
	"fmt"
	"sync"
	"time"

	"refwatch/internal/core/clock"
	"refwatch/internal/core/model"

	"github.com/google/uuid"
)

// Publisher hands a finished report to the transport. Publish must not
// block; delivery and retries are the publisher's concern.
type Publisher interface {
	Publish(report Report)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(report Report)

func (fn PublisherFunc) Publish(report Report) { fn(report) }

// Options carries the collaborators a match depends on.
type Options struct {
	Clock     clock.Source
	Publisher Publisher
	NewID     func() uuid.UUID
	Now       func() time.Time
}

// Status is a read-only snapshot used to drive a display.
type Status struct {
	Phase   Phase
	Running bool
	// ClockActive is false while paused, in a break, or during a stoppage.
	ClockActive bool
	Interrupted bool

	ElapsedInPhase       time.Duration
	MatchTime            time.Duration
	StoppageTime         time.Duration
	RecommendedAddedTime time.Duration

	Board      ScoreBoard
	EventCount int

	CanStartExtraTime bool
	CanStartShootout  bool
	CanFinalize       bool

	Shootout       *ShootoutState
	ShootoutStatus string
}

// Match is the state machine for one refereed game. It owns the phase,
// the clock readings, the event log and the shootout, and is the only
// writer of the event log.
type Match struct {
	mu      sync.Mutex
	config  model.MatchConfig
	options Options

	phase   Phase
	visited []Phase
	running bool
	// started is false only for extra time awaiting its kick-off.
	started bool
	// ended marks a playing phase whose whistle has gone but which still
	// awaits the referee's next choice.
	ended   bool
	banked  time.Duration
	alerted bool

	stoppage  Stoppage
	log       *EventLog
	durations map[Phase]time.Duration
	shootout  *Shootout
	note      string
	report    *Report
	publish   *Report

	observers []chan Notification
}

// New creates a match that kicks off immediately: the phase is the first
// half and the clock is running from zero.
func New(config model.MatchConfig, options Options) *Match {
	if options.Clock == nil {
		options.Clock = clock.NewStopwatch(nil)
	}
	if options.Publisher == nil {
		options.Publisher = PublisherFunc(func(Report) {})
	}
	if options.NewID == nil {
		options.NewID = uuid.New
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	match := &Match{
		config:  config.WithDefaults(),
		options: options,
	}
	match.mu.Lock()
	match.resetLocked()
	match.mu.Unlock()
	return match
}

// Config returns the effective configuration.
func (match *Match) Config() model.MatchConfig {
	return match.config
}

// Subscribe registers a new observer channel. Observers that fall behind
// miss notifications; the match never waits for them.
func (match *Match) Subscribe(buffer int) <-chan Notification {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Notification, buffer)
	match.mu.Lock()
	match.observers = append(match.observers, ch)
	match.mu.Unlock()
	return ch
}

// Close closes every observer channel.
func (match *Match) Close() {
	match.mu.Lock()
	observers := match.observers
	match.observers = nil
	match.mu.Unlock()

	for _, ch := range observers {
		close(ch)
	}
}

// RecordGoal records a goal for team. Own goals are recorded for the team
// that benefits.
func (match *Match) RecordGoal(team Team, player int, kind GoalKind) (Event, error) {
	var stored Event
	err := match.apply("record goal", func() error {
		event, err := match.recordLocked(Event{
			Kind:         KindGoal,
			Team:         team,
			PlayerNumber: intPtr(player),
			GoalKind:     kind,
		})
		stored = event
		return err
	})
	return stored, err
}

// RecordCard records a card. A second yellow for the same player in the
// match adds a red card; both events are returned in log order.
func (match *Match) RecordCard(team Team, player int, kind CardKind) ([]Event, error) {
	var stored []Event
	err := match.apply("record card", func() error {
		card, err := match.recordLocked(Event{
			Kind:         KindCard,
			Team:         team,
			PlayerNumber: intPtr(player),
			CardKind:     kind,
		})
		if err != nil {
			return err
		}
		stored = append(stored, card)

		if kind != CardYellow || match.log.YellowCards(team, player) != 2 {
			return nil
		}
		red := match.log.Append(Event{
			Kind:             KindCard,
			Team:             team,
			Phase:            card.Phase,
			TimestampSeconds: card.TimestampSeconds,
			PlayerNumber:     intPtr(player),
			CardKind:         CardRed,
			Automatic:        true,
		})
		stored = append(stored, red)
		notified := red.Clone()
		match.emitLocked(Notification{Type: NotifyEventRecorded, Event: &notified})
		match.feedbackLocked(FeedbackSecondYellow)
		return nil
	})
	return stored, err
}

// RecordSubstitution records playerIn replacing playerOut.
func (match *Match) RecordSubstitution(team Team, playerOut, playerIn int) (Event, error) {
	var stored Event
	err := match.apply("record substitution", func() error {
		event, err := match.recordLocked(Event{
			Kind:      KindSubstitution,
			Team:      team,
			PlayerOut: intPtr(playerOut),
			PlayerIn:  intPtr(playerIn),
		})
		stored = event
		return err
	})
	return stored, err
}

// BeginInterruption starts measuring a stoppage. Play may still be
// recorded while it is open. Calling it twice has no further effect.
func (match *Match) BeginInterruption() error {
	return match.apply("begin interruption", func() error {
		if !match.phase.Playing() || !match.running {
			return fmt.Errorf("begin interruption in %s: %w", match.phase, ErrNotRunning)
		}
		if match.stoppage.Open() {
			return nil
		}
		match.stoppage.Begin(match.elapsedLocked())
		match.emitLocked(Notification{Type: NotifyInterruption})
		return nil
	})
}

// EndInterruption closes the open stoppage, if any.
func (match *Match) EndInterruption() error {
	return match.apply("end interruption", func() error {
		if !match.phase.Playing() || !match.running {
			return fmt.Errorf("end interruption in %s: %w", match.phase, ErrNotRunning)
		}
		if !match.stoppage.Open() {
			return nil
		}
		match.stoppage.End(match.elapsedLocked())
		match.emitLocked(Notification{Type: NotifyInterruption})
		return nil
	})
}

// PauseClock stops the active clock inside a playing phase.
func (match *Match) PauseClock() error {
	return match.apply("pause clock", func() error {
		if !match.phase.Playing() || !match.running {
			return fmt.Errorf("pause clock in %s: %w", match.phase, ErrInvalidTransition)
		}
		match.stopClockLocked()
		match.emitLocked(Notification{Type: NotifyClock})
		return nil
	})
}

// EndPhase blows the whistle for the current half.
func (match *Match) EndPhase() error {
	return match.apply("end phase", func() error {
		if !match.phase.Playing() || !match.running {
			return fmt.Errorf("end phase in %s while not running: %w", match.phase, ErrInvalidTransition)
		}
		elapsed := match.stopClockLocked()
		match.durations[match.phase] = elapsed
		match.stoppage.Reset()
		match.alerted = false

		switch match.phase {
		case PhaseFirstHalf:
			match.enterLocked(PhaseHalftimeBreak)
			match.feedbackLocked(FeedbackHalfTime)
		case PhaseExtraTimeFirstHalf:
			match.enterLocked(PhaseExtraTimeBreak)
			match.feedbackLocked(FeedbackHalfTime)
		default:
			match.ended = true
			match.emitLocked(Notification{Type: NotifyClock})
			match.feedbackLocked(FeedbackFullTime)
		}
		return nil
	})
}

// ResumePhase starts the half that follows a break, kicks off extra time,
// or restarts a paused clock.
func (match *Match) ResumePhase() error {
	return match.apply("resume phase", func() error {
		switch {
		case match.phase == PhaseHalftimeBreak:
			match.kickOffLocked(PhaseSecondHalf)
		case match.phase == PhaseExtraTimeBreak:
			match.kickOffLocked(PhaseExtraTimeSecondHalf)
		case match.phase == PhaseExtraTimeFirstHalf && !match.started:
			match.kickOffLocked(PhaseExtraTimeFirstHalf)
		case match.phase.Playing() && !match.running && !match.ended:
			match.options.Clock.Start()
			match.running = true
			match.emitLocked(Notification{Type: NotifyClock})
		default:
			return fmt.Errorf("resume phase in %s: %w", match.phase, ErrInvalidTransition)
		}
		return nil
	})
}

// StartExtraTime moves to extra time after regulation. The clock stays
// stopped until ResumePhase.
func (match *Match) StartExtraTime() error {
	return match.apply("start extra time", func() error {
		if match.phase != PhaseSecondHalf || !match.ended {
			return fmt.Errorf("start extra time in %s: %w", match.phase, ErrInvalidTransition)
		}
		match.enterLocked(PhaseExtraTimeFirstHalf)
		return nil
	})
}

// StartPenaltyShootout begins a shootout after regulation or extra time
// when the scores are level.
func (match *Match) StartPenaltyShootout() error {
	return match.apply("start penalty shootout", func() error {
		if !match.awaitingDecisionLocked() {
			return fmt.Errorf("start penalty shootout in %s: %w", match.phase, ErrInvalidTransition)
		}
		if board := match.log.ScoreBoard(); !board.Level() {
			return fmt.Errorf("start penalty shootout at %d-%d: %w", board.HomeScore, board.AwayScore, ErrInvalidTransition)
		}
		match.shootout = NewShootout()
		match.enterLocked(PhasePenaltyShootout)
		return nil
	})
}

// RecordKick records a penalty for the side currently kicking. Once the
// shootout is decided the match is finalized and its report published.
func (match *Match) RecordKick(scored bool) (ShootoutState, error) {
	var state ShootoutState
	err := match.apply("record kick", func() error {
		if match.phase != PhasePenaltyShootout || match.shootout == nil {
			return fmt.Errorf("record kick in %s: %w", match.phase, ErrInvalidTransition)
		}
		next, err := match.shootout.RecordKick(scored)
		if err != nil {
			return err
		}
		state = next
		match.feedbackLocked(FeedbackShootoutKick)
		if match.shootout.Decided() {
			match.feedbackLocked(FeedbackShootoutDecided)
			match.finalizeLocked()
		}
		return nil
	})
	return state, err
}

// SetRefereeNote stores a free-text note carried into the report.
func (match *Match) SetRefereeNote(note string) error {
	return match.apply("set referee note", func() error {
		match.note = note
		return nil
	})
}

// Finalize ends the match, builds the report and hands it to the publisher.
func (match *Match) Finalize() (Report, error) {
	var report Report
	err := match.apply("finalize", func() error {
		if !match.awaitingDecisionLocked() {
			return fmt.Errorf("finalize in %s: %w", match.phase, ErrInvalidTransition)
		}
		report = match.finalizeLocked()
		return nil
	})
	return report, err
}

// Reset discards the current match and kicks off a fresh one. A report
// already handed to the publisher is unaffected.
func (match *Match) Reset() {
	match.mu.Lock()
	defer match.mu.Unlock()
	match.options.Clock.Stop()
	match.resetLocked()
}

// Tick samples the clock for the host's scheduler. It emits a progress
// notification and, once per half, the added time alert.
func (match *Match) Tick() Status {
	match.mu.Lock()
	defer match.mu.Unlock()

	status := match.statusLocked()
	if match.phase.Playing() && match.running && !match.alerted &&
		status.ElapsedInPhase >= match.phaseDurationLocked()-match.config.AlertThreshold {
		match.alerted = true
		match.feedbackLocked(FeedbackAddedTimeAlert)
	}
	match.emitLocked(Notification{Type: NotifyProgress, Status: status})
	return status
}

// Status returns the current display snapshot.
func (match *Match) Status() Status {
	match.mu.Lock()
	defer match.mu.Unlock()
	return match.statusLocked()
}

// Phase returns the current phase.
func (match *Match) Phase() Phase {
	match.mu.Lock()
	defer match.mu.Unlock()
	return match.phase
}

// Running reports whether the clock is counting in a playing phase.
func (match *Match) Running() bool {
	match.mu.Lock()
	defer match.mu.Unlock()
	return match.running
}

// ScoreBoard returns scores and card tallies derived from the log.
func (match *Match) ScoreBoard() ScoreBoard {
	match.mu.Lock()
	defer match.mu.Unlock()
	return match.log.ScoreBoard()
}

// Events returns a copy of the event log in insertion order.
func (match *Match) Events() []Event {
	match.mu.Lock()
	defer match.mu.Unlock()
	return match.log.Events()
}

// Visited returns the phases entered so far, in order.
func (match *Match) Visited() []Phase {
	match.mu.Lock()
	defer match.mu.Unlock()
	return append([]Phase(nil), match.visited...)
}

// Report returns the report once the match is finalized.
func (match *Match) Report() (Report, bool) {
	match.mu.Lock()
	defer match.mu.Unlock()
	if match.report == nil {
		return Report{}, false
	}
	return match.report.Clone(), true
}

func (match *Match) apply(operation string, change func() error) error {
	match.mu.Lock()
	var err error
	if match.phase == PhaseFinished {
		err = fmt.Errorf("%s: %w", operation, ErrAlreadyFinalized)
	} else {
		err = change()
	}
	if err != nil {
		match.emitLocked(Notification{Type: NotifyRejected, Err: err})
	}
	publish := match.publish
	match.publish = nil
	match.mu.Unlock()

	if publish != nil {
		match.options.Publisher.Publish(*publish)
	}
	return err
}

func (match *Match) recordLocked(event Event) (Event, error) {
	if !match.phase.Playing() || !match.running {
		return Event{}, fmt.Errorf("record %s in %s: %w", event.Kind, match.phase, ErrNotRunning)
	}
	event.Phase = match.phase
	event.TimestampSeconds = match.matchTimeLocked().Seconds()
	if err := event.validate(); err != nil {
		return Event{}, err
	}
	stored := match.log.Append(event)
	notified := stored.Clone()
	match.emitLocked(Notification{Type: NotifyEventRecorded, Event: &notified})
	return stored, nil
}

func (match *Match) resetLocked() {
	match.log = NewEventLog(match.options.NewID)
	match.durations = make(map[Phase]time.Duration)
	match.shootout = nil
	match.note = ""
	match.report = nil
	match.publish = nil
	match.visited = nil
	match.kickOffLocked(PhaseFirstHalf)
}

// enterLocked switches to phase with the clock stopped.
func (match *Match) enterLocked(phase Phase) {
	match.phase = phase
	match.visited = append(match.visited, phase)
	match.running = false
	match.started = false
	match.ended = false
	match.banked = 0
	match.alerted = false
	match.stoppage.Reset()
	match.emitLocked(Notification{Type: NotifyPhaseChange})
}

func (match *Match) kickOffLocked(phase Phase) {
	if match.phase != phase || len(match.visited) == 0 {
		match.enterLocked(phase)
	}
	match.started = true
	match.running = true
	match.options.Clock.Start()
	match.emitLocked(Notification{Type: NotifyClock})
	match.feedbackLocked(FeedbackKickOff)
}

// stopClockLocked banks the phase-local reading, closes any open
// interruption and stops the clock. It returns the banked reading.
func (match *Match) stopClockLocked() time.Duration {
	elapsed := match.elapsedLocked()
	match.stoppage.End(elapsed)
	match.options.Clock.Stop()
	match.banked = elapsed
	match.running = false
	return elapsed
}

func (match *Match) finalizeLocked() Report {
	snapshot := Snapshot{
		HomeTeam:  match.config.HomeTeam,
		AwayTeam:  match.config.AwayTeam,
		Board:     match.log.ScoreBoard(),
		Events:    match.log.Events(),
		Durations: match.durations,
		Note:      match.note,
	}
	if match.shootout != nil {
		state := match.shootout.State()
		snapshot.Shootout = &state
	}
	report := BuildReport(snapshot, match.options.NewID(), match.options.Now())
	match.report = &report
	published := report.Clone()
	match.publish = &published
	match.enterLocked(PhaseFinished)
	notified := report.Clone()
	match.emitLocked(Notification{Type: NotifyReport, Report: &notified})
	return report.Clone()
}

func (match *Match) awaitingDecisionLocked() bool {
	return match.ended && (match.phase == PhaseSecondHalf || match.phase == PhaseExtraTimeSecondHalf)
}

func (match *Match) elapsedLocked() time.Duration {
	if !match.running {
		return match.banked
	}
	return match.banked + match.options.Clock.Elapsed()
}

func (match *Match) phaseDurationLocked() time.Duration {
	switch match.phase {
	case PhaseExtraTimeFirstHalf, PhaseExtraTimeSecondHalf:
		return match.config.ExtraTimeHalfDuration
	default:
		return match.config.HalfDuration
	}
}

// baseOffsetLocked is the match time at which the current phase starts on
// the display; breaks show the start of the upcoming half.
func (match *Match) baseOffsetLocked() time.Duration {
	half := match.config.HalfDuration
	extra := match.config.ExtraTimeHalfDuration
	switch match.phase {
	case PhaseFirstHalf:
		return 0
	case PhaseHalftimeBreak, PhaseSecondHalf:
		return half
	case PhaseExtraTimeFirstHalf:
		return 2 * half
	case PhaseExtraTimeBreak, PhaseExtraTimeSecondHalf:
		return 2*half + extra
	default:
		if _, played := match.durations[PhaseExtraTimeSecondHalf]; played {
			return 2*half + 2*extra
		}
		return 2 * half
	}
}

func (match *Match) matchTimeLocked() time.Duration {
	if !match.phase.Playing() {
		return match.baseOffsetLocked()
	}
	return match.baseOffsetLocked() + match.elapsedLocked()
}

func (match *Match) statusLocked() Status {
	elapsed := match.elapsedLocked()
	status := Status{
		Phase:          match.phase,
		Running:        match.running,
		ClockActive:    match.running && !match.stoppage.Open(),
		Interrupted:    match.stoppage.Open(),
		ElapsedInPhase: elapsed,
		MatchTime:      match.matchTimeLocked(),
		Board:          match.log.ScoreBoard(),
		EventCount:     match.log.Len(),
	}
	if match.phase.Playing() {
		status.StoppageTime = match.stoppage.Live(elapsed)
		status.RecommendedAddedTime = match.stoppage.RecommendedAddedTime(elapsed, match.phaseDurationLocked(), match.config.AlertThreshold)
	}
	if match.awaitingDecisionLocked() {
		status.CanStartExtraTime = match.phase == PhaseSecondHalf
		status.CanStartShootout = status.Board.Level()
		status.CanFinalize = true
	}
	if match.shootout != nil {
		state := match.shootout.State()
		status.Shootout = &state
		status.ShootoutStatus = match.shootout.Status(match.config.HomeTeam, match.config.AwayTeam)
	}
	return status
}

func (match *Match) feedbackLocked(feedback Feedback) {
	match.emitLocked(Notification{Type: NotifyFeedback, Feedback: feedback})
}

func (match *Match) emitLocked(notification Notification) {
	notification.Phase = match.phase
	notification.Running = match.running
	notification.At = match.options.Now()
	observers := append([]chan Notification(nil), match.observers...)
	for _, ch := range observers {
		select {
		case ch <- notification:
		default:
		}
	}
}
