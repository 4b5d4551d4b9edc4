package companion

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"refwatch/internal/core/match"

	"github.com/google/uuid"
)

// ErrEventNotFound is returned for an event id a report does not hold.
var ErrEventNotFound = errors.New("event not found")

// ReportPatch corrects a stored report. Nil fields are left unchanged.
// Scores are set directly; editing events never recomputes them.
type ReportPatch struct {
	HomeTeam    *string `json:"homeTeam,omitempty"`
	AwayTeam    *string `json:"awayTeam,omitempty"`
	HomeScore   *int    `json:"homeScore,omitempty"`
	AwayScore   *int    `json:"awayScore,omitempty"`
	RefereeNote *string `json:"refereeNote,omitempty"`
}

func (patch ReportPatch) apply(report *match.Report) error {
	if patch.HomeTeam != nil {
		name, err := teamName("home", *patch.HomeTeam)
		if err != nil {
			return err
		}
		report.HomeTeam = name
	}
	if patch.AwayTeam != nil {
		name, err := teamName("away", *patch.AwayTeam)
		if err != nil {
			return err
		}
		report.AwayTeam = name
	}
	if patch.HomeScore != nil {
		report.HomeScore = *patch.HomeScore
	}
	if patch.AwayScore != nil {
		report.AwayScore = *patch.AwayScore
	}
	if patch.RefereeNote != nil {
		report.RefereeNote = strings.TrimSpace(*patch.RefereeNote)
	}
	return nil
}

func teamName(side, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s team name is empty", ErrInvalidReport, side)
	}
	return name, nil
}

// appendEvent adds event after every existing one with a fresh id and the
// next sequence number.
func appendEvent(report *match.Report, event match.Event) match.Event {
	event.ID = uuid.New()
	event.Sequence = 1
	for _, existing := range report.Events {
		event.Sequence = max(event.Sequence, existing.Sequence+1)
	}
	report.Events = append(report.Events, event)
	return event.Clone()
}

func removeEvent(report *match.Report, eventID uuid.UUID) error {
	i := slices.IndexFunc(report.Events, func(event match.Event) bool { return event.ID == eventID })
	if i < 0 {
		return fmt.Errorf("%s: %w", eventID, ErrEventNotFound)
	}
	report.Events = slices.Delete(report.Events, i, i+1)
	return nil
}

// manualReport turns a report typed in on the companion into one the
// history can hold: it gets an id, a creation time and numbered events.
func manualReport(draft match.Report, now time.Time) (match.Report, error) {
	report := draft.Clone()
	report.ID = uuid.New()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now.UTC()
	}

	var err error
	if report.HomeTeam, err = teamName("home", report.HomeTeam); err != nil {
		return match.Report{}, err
	}
	if report.AwayTeam, err = teamName("away", report.AwayTeam); err != nil {
		return match.Report{}, err
	}
	for i := range report.Events {
		if report.Events[i].ID == uuid.Nil {
			report.Events[i].ID = uuid.New()
		}
		report.Events[i].Sequence = i + 1
	}
	if report.Events == nil {
		report.Events = []match.Event{}
	}

	if err := report.Validate(); err != nil {
		return match.Report{}, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	return report, nil
}
