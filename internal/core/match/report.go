package match

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Report is the final, immutable record of a match sent to the companion.
type Report struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	HomeScore int       `json:"homeScore"`
	AwayScore int       `json:"awayScore"`

	FirstHalfDuration           float64 `json:"firstHalfDuration"`
	SecondHalfDuration          float64 `json:"secondHalfDuration"`
	ExtraTimeFirstHalfDuration  float64 `json:"extraTimeFirstHalfDuration,omitempty"`
	ExtraTimeSecondHalfDuration float64 `json:"extraTimeSecondHalfDuration,omitempty"`

	Events []Event `json:"events"`

	HomePenaltyScore *int `json:"homePenaltyScore,omitempty"`
	AwayPenaltyScore *int `json:"awayPenaltyScore,omitempty"`

	RefereeNote string `json:"refereeNote,omitempty"`
}

// Counts summarises a report's events.
func (report Report) Counts() (goals, yellows, reds int) {
	for _, event := range report.Events {
		switch {
		case event.Kind == KindGoal:
			goals++
		case event.Kind == KindCard && event.CardKind == CardYellow:
			yellows++
		case event.Kind == KindCard && event.CardKind == CardRed:
			reds++
		}
	}
	return goals, yellows, reds
}

// Clone returns a deep copy of report.
func (report Report) Clone() Report {
	report.Events = cloneEvents(report.Events)
	report.HomePenaltyScore = clonePlayer(report.HomePenaltyScore)
	report.AwayPenaltyScore = clonePlayer(report.AwayPenaltyScore)
	return report
}

// Validate checks a report received from outside the match: the id is set,
// counts are non-negative and every event carries known enum values.
func (report Report) Validate() error {
	if report.ID == uuid.Nil {
		return fmt.Errorf("missing id: %w", ErrInvalidReport)
	}
	if report.HomeScore < 0 || report.AwayScore < 0 {
		return fmt.Errorf("score %d-%d: %w", report.HomeScore, report.AwayScore, ErrInvalidReport)
	}
	durations := []float64{
		report.FirstHalfDuration,
		report.SecondHalfDuration,
		report.ExtraTimeFirstHalfDuration,
		report.ExtraTimeSecondHalfDuration,
	}
	for _, seconds := range durations {
		if seconds < 0 {
			return fmt.Errorf("negative duration %.3f: %w", seconds, ErrInvalidReport)
		}
	}
	if (report.HomePenaltyScore == nil) != (report.AwayPenaltyScore == nil) {
		return fmt.Errorf("penalty score for one side only: %w", ErrInvalidReport)
	}
	if report.WentToPenalties() && (*report.HomePenaltyScore < 0 || *report.AwayPenaltyScore < 0) {
		return fmt.Errorf("penalty score %d-%d: %w", *report.HomePenaltyScore, *report.AwayPenaltyScore, ErrInvalidReport)
	}
	for i, event := range report.Events {
		if !event.Phase.Valid() || !event.Phase.Playing() {
			return fmt.Errorf("%w: event %d: phase %q", ErrInvalidReport, i+1, event.Phase)
		}
		if err := event.validate(); err != nil {
			return fmt.Errorf("%w: event %d: %w", ErrInvalidReport, i+1, err)
		}
	}
	return nil
}

// WentToPenalties reports whether the match was settled by a shootout.
func (report Report) WentToPenalties() bool {
	return report.HomePenaltyScore != nil && report.AwayPenaltyScore != nil
}

// Snapshot is the state captured at finalization that a report is built from.
type Snapshot struct {
	HomeTeam string
	AwayTeam string

	Board  ScoreBoard
	Events []Event

	// Phase durations as read from the clock source when each phase ended.
	Durations map[Phase]time.Duration

	Shootout *ShootoutState
	Note     string
}

// BuildReport turns a snapshot into a report. It does not modify snapshot.
func BuildReport(snapshot Snapshot, id uuid.UUID, createdAt time.Time) Report {
	report := Report{
		ID:                          id,
		CreatedAt:                   createdAt,
		HomeTeam:                    snapshot.HomeTeam,
		AwayTeam:                    snapshot.AwayTeam,
		HomeScore:                   snapshot.Board.HomeScore,
		AwayScore:                   snapshot.Board.AwayScore,
		FirstHalfDuration:           snapshot.Durations[PhaseFirstHalf].Seconds(),
		SecondHalfDuration:          snapshot.Durations[PhaseSecondHalf].Seconds(),
		ExtraTimeFirstHalfDuration:  snapshot.Durations[PhaseExtraTimeFirstHalf].Seconds(),
		ExtraTimeSecondHalfDuration: snapshot.Durations[PhaseExtraTimeSecondHalf].Seconds(),
		Events:                      cloneEvents(snapshot.Events),
		RefereeNote:                 snapshot.Note,
	}
	if snapshot.Shootout != nil {
		report.HomePenaltyScore = intPtr(snapshot.Shootout.HomeScore)
		report.AwayPenaltyScore = intPtr(snapshot.Shootout.AwayScore)
	}
	return report
}
