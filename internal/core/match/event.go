package match

import (
	"fmt"

	"github.com/google/uuid"
)

// EventKind defines the type of a recorded match event.
type EventKind string

const (
	KindGoal         EventKind = "goal"
	KindCard         EventKind = "card"
	KindSubstitution EventKind = "substitution"
)

// GoalKind distinguishes how a goal was scored.
type GoalKind string

const (
	GoalNormal  GoalKind = "normal"
	GoalPenalty GoalKind = "penalty"
	GoalOwnGoal GoalKind = "ownGoal"
)

// Label is the display text used in reports.
func (kind GoalKind) Label() string {
	switch kind {
	case GoalPenalty:
		return "Goal (Penalty)"
	case GoalOwnGoal:
		return "Own Goal"
	default:
		return "Goal"
	}
}

// CardKind is the colour of a card.
type CardKind string

const (
	CardYellow CardKind = "yellow"
	CardRed    CardKind = "red"
)

// Event is an immutable record of something that happened during play.
// Own goals are recorded against the team that benefits.
type Event struct {
	ID               uuid.UUID `json:"id"`
	Sequence         int       `json:"sequence"`
	Kind             EventKind `json:"kind"`
	Team             Team      `json:"team"`
	Phase            Phase     `json:"phase"`
	TimestampSeconds float64   `json:"timestampSeconds"`

	PlayerNumber *int     `json:"playerNumber,omitempty"`
	GoalKind     GoalKind `json:"goalKind,omitempty"`
	CardKind     CardKind `json:"cardKind,omitempty"`
	PlayerOut    *int     `json:"playerOut,omitempty"`
	PlayerIn     *int     `json:"playerIn,omitempty"`

	// Automatic marks the red card issued for a second yellow.
	Automatic bool `json:"automatic,omitempty"`
}

// Clone returns a copy that shares no memory with event.
func (event Event) Clone() Event {
	event.PlayerNumber = clonePlayer(event.PlayerNumber)
	event.PlayerOut = clonePlayer(event.PlayerOut)
	event.PlayerIn = clonePlayer(event.PlayerIn)
	return event
}

func cloneEvents(events []Event) []Event {
	cloned := make([]Event, len(events))
	for i, event := range events {
		cloned[i] = event.Clone()
	}
	return cloned
}

// Player returns the player number of a goal or card, or -1.
func (event Event) Player() int {
	if event.PlayerNumber == nil {
		return -1
	}
	return *event.PlayerNumber
}

// IsGoal reports whether the event is a goal for team.
func (event Event) IsGoal(team Team) bool {
	return event.Kind == KindGoal && event.Team == team
}

// IsCard reports whether the event is a card of the given colour for team.
func (event Event) IsCard(team Team, kind CardKind) bool {
	return event.Kind == KindCard && event.Team == team && event.CardKind == kind
}

// Minute is the match minute shown in reports.
func (event Event) Minute() int {
	return int(event.TimestampSeconds / 60)
}

// String renders the event as a single report line, for example
// "23' Home - Goal (Penalty) Player 9".
func (event Event) String() string {
	side := "Home"
	if event.Team == TeamAway {
		side = "Away"
	}
	switch event.Kind {
	case KindGoal:
		return fmt.Sprintf("%d' %s - %s Player %d", event.Minute(), side, event.GoalKind.Label(), event.Player())
	case KindCard:
		label := "Yellow"
		if event.CardKind == CardRed {
			label = "Red"
		}
		return fmt.Sprintf("%d' %s - %s Player %d", event.Minute(), side, label, event.Player())
	case KindSubstitution:
		return fmt.Sprintf("%d' %s - Substitution: Player %d → Player %d", event.Minute(), side, intValue(event.PlayerOut), intValue(event.PlayerIn))
	default:
		return fmt.Sprintf("%d' %s - %s", event.Minute(), side, event.Kind)
	}
}

func (event Event) validate() error {
	if !event.Team.Valid() {
		return fmt.Errorf("team %q: %w", event.Team, ErrInvalidEvent)
	}
	if event.TimestampSeconds < 0 {
		return fmt.Errorf("negative timestamp %.3f: %w", event.TimestampSeconds, ErrInvalidEvent)
	}
	switch event.Kind {
	case KindGoal:
		if event.GoalKind != GoalNormal && event.GoalKind != GoalPenalty && event.GoalKind != GoalOwnGoal {
			return fmt.Errorf("goal kind %q: %w", event.GoalKind, ErrInvalidEvent)
		}
		return validPlayer("player", event.PlayerNumber)
	case KindCard:
		if event.CardKind != CardYellow && event.CardKind != CardRed {
			return fmt.Errorf("card kind %q: %w", event.CardKind, ErrInvalidEvent)
		}
		return validPlayer("player", event.PlayerNumber)
	case KindSubstitution:
		if err := validPlayer("player out", event.PlayerOut); err != nil {
			return err
		}
		return validPlayer("player in", event.PlayerIn)
	default:
		return fmt.Errorf("event kind %q: %w", event.Kind, ErrInvalidEvent)
	}
}

func validPlayer(field string, number *int) error {
	if number == nil {
		return fmt.Errorf("%s missing: %w", field, ErrInvalidEvent)
	}
	if *number < 0 {
		return fmt.Errorf("%s %d: %w", field, *number, ErrInvalidEvent)
	}
	return nil
}

func intPtr(value int) *int {
	return &value
}

func clonePlayer(value *int) *int {
	if value == nil {
		return nil
	}
	return intPtr(*value)
}

func intValue(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}
