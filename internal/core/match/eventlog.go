package match

import "github.com/google/uuid"

// ScoreBoard is the projection of the event log that the match displays.
type ScoreBoard struct {
	HomeScore       int `json:"homeScore"`
	AwayScore       int `json:"awayScore"`
	HomeYellowCards int `json:"homeYellowCards"`
	AwayYellowCards int `json:"awayYellowCards"`
	HomeRedCards    int `json:"homeRedCards"`
	AwayRedCards    int `json:"awayRedCards"`
}

// Score returns the goal count for team.
func (board ScoreBoard) Score(team Team) int {
	if team == TeamAway {
		return board.AwayScore
	}
	return board.HomeScore
}

// Level reports whether both teams have scored the same number of goals.
func (board ScoreBoard) Level() bool {
	return board.HomeScore == board.AwayScore
}

func (board *ScoreBoard) apply(event Event) {
	switch event.Kind {
	case KindGoal:
		if event.Team == TeamHome {
			board.HomeScore++
		} else {
			board.AwayScore++
		}
	case KindCard:
		switch {
		case event.CardKind == CardYellow && event.Team == TeamHome:
			board.HomeYellowCards++
		case event.CardKind == CardYellow:
			board.AwayYellowCards++
		case event.Team == TeamHome:
			board.HomeRedCards++
		default:
			board.AwayRedCards++
		}
	}
}

// EventLog is an append-only, insertion-ordered record of match events.
type EventLog struct {
	events []Event
	board  ScoreBoard
	newID  func() uuid.UUID
}

// NewEventLog returns an empty log. A nil newID uses uuid.New.
func NewEventLog(newID func() uuid.UUID) *EventLog {
	if newID == nil {
		newID = uuid.New
	}
	return &EventLog{newID: newID}
}

// Append stores the event, assigning its sequence position and, when
// missing, an id. It returns the stored copy.
func (log *EventLog) Append(event Event) Event {
	if event.ID == uuid.Nil {
		event.ID = log.newID()
	}
	event.Sequence = len(log.events) + 1
	log.events = append(log.events, event.Clone())
	log.board.apply(event)
	return event.Clone()
}

// Len is the number of stored events.
func (log *EventLog) Len() int {
	return len(log.events)
}

// Events returns a copy of all events in insertion order.
func (log *EventLog) Events() []Event {
	return cloneEvents(log.events)
}

// Count returns how many events satisfy predicate.
func (log *EventLog) Count(predicate func(Event) bool) int {
	count := 0
	for _, event := range log.events {
		if predicate(event) {
			count++
		}
	}
	return count
}

// Filter returns the events that satisfy predicate, in insertion order.
func (log *EventLog) Filter(predicate func(Event) bool) []Event {
	var matched []Event
	for _, event := range log.events {
		if predicate(event) {
			matched = append(matched, event.Clone())
		}
	}
	return matched
}

// ScoreBoard returns the current projection.
func (log *EventLog) ScoreBoard() ScoreBoard {
	return log.board
}

// Recount derives the scoreboard from scratch. It always equals ScoreBoard.
func (log *EventLog) Recount() ScoreBoard {
	var board ScoreBoard
	for _, event := range log.events {
		board.apply(event)
	}
	return board
}

// YellowCards counts the yellow cards shown to one player over the whole match.
func (log *EventLog) YellowCards(team Team, player int) int {
	return log.Count(func(event Event) bool {
		return event.IsCard(team, CardYellow) && event.Player() == player
	})
}
