package console

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"refwatch/internal/core/match"
)

// Execute applies command to game and returns the line to show the referee.
// A rejected command leaves the match unchanged and returns its error.
func Execute(game *match.Match, command Command) (string, error) {
	config := game.Config()
	switch command.Action {
	case ActionGoal:
		event, err := game.RecordGoal(command.Team, command.Player, command.GoalKind)
		if err != nil {
			return "", err
		}
		return event.String(), nil
	case ActionCard:
		events, err := game.RecordCard(command.Team, command.Player, command.CardKind)
		if err != nil {
			return "", err
		}
		lines := make([]string, 0, len(events))
		for _, event := range events {
			lines = append(lines, event.String())
		}
		return strings.Join(lines, "\n"), nil
	case ActionSub:
		event, err := game.RecordSubstitution(command.Team, command.Player, command.PlayerIn)
		if err != nil {
			return "", err
		}
		return event.String(), nil
	case ActionStop:
		return after(game, game.BeginInterruption())
	case ActionPlay:
		return after(game, game.EndInterruption())
	case ActionPause:
		return after(game, game.PauseClock())
	case ActionEnd:
		return after(game, game.EndPhase())
	case ActionResume:
		return after(game, game.ResumePhase())
	case ActionExtraTime:
		return after(game, game.StartExtraTime())
	case ActionPenalties:
		return after(game, game.StartPenaltyShootout())
	case ActionKick:
		if _, err := game.RecordKick(command.Scored); err != nil {
			return "", err
		}
		status := game.Status()
		if status.Phase == match.PhaseFinished {
			if report, ok := game.Report(); ok {
				return status.ShootoutStatus + "\n" + FormatReport(report), nil
			}
		}
		return FormatStatus(status, config.HomeTeam, config.AwayTeam), nil
	case ActionNote:
		if err := game.SetRefereeNote(command.Note); err != nil {
			return "", err
		}
		return "note saved", nil
	case ActionFinish:
		report, err := game.Finalize()
		if err != nil {
			return "", err
		}
		return FormatReport(report), nil
	case ActionReset:
		game.Reset()
		return after(game, nil)
	case ActionStatus:
		return after(game, nil)
	case ActionHelp:
		return Help(), nil
	default:
		return "", fmt.Errorf("%q: %w", command.Action, ErrUnknownCommand)
	}
}

func after(game *match.Match, err error) (string, error) {
	if err != nil {
		return "", err
	}
	config := game.Config()
	return FormatStatus(game.Status(), config.HomeTeam, config.AwayTeam), nil
}

// Help lists every command.
func Help() string {
	lines := make([]string, 0, len(usage))
	for _, line := range usage {
		lines = append(lines, "  "+line)
	}
	slices.Sort(lines)
	return "commands:\n" + strings.Join(lines, "\n")
}

// FormatStatus renders a one-line display of status.
func FormatStatus(status match.Status, homeTeam, awayTeam string) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s %s", status.Phase.Label(), FormatClock(status.MatchTime))

	switch {
	case status.Interrupted:
		fmt.Fprintf(&builder, " (stoppage %s)", FormatClock(status.StoppageTime))
	case status.Phase.Playing() && !status.Running && !status.CanFinalize:
		builder.WriteString(" (paused)")
	}
	if status.RecommendedAddedTime > 0 {
		fmt.Fprintf(&builder, " +%d'", int(status.RecommendedAddedTime/time.Minute))
	}

	board := status.Board
	fmt.Fprintf(&builder, " | %s %d - %d %s", homeTeam, board.HomeScore, board.AwayScore, awayTeam)
	if board.HomeYellowCards+board.AwayYellowCards+board.HomeRedCards+board.AwayRedCards > 0 {
		fmt.Fprintf(&builder, " | Y %d-%d R %d-%d", board.HomeYellowCards, board.AwayYellowCards, board.HomeRedCards, board.AwayRedCards)
	}
	if status.Shootout != nil {
		fmt.Fprintf(&builder, " | pens %d-%d | %s", status.Shootout.HomeScore, status.Shootout.AwayScore, status.ShootoutStatus)
	}

	var choices []string
	if status.CanStartExtraTime {
		choices = append(choices, "et")
	}
	if status.CanStartShootout {
		choices = append(choices, "pens")
	}
	if status.CanFinalize {
		choices = append(choices, "finish")
	}
	if len(choices) > 0 {
		fmt.Fprintf(&builder, " | next: %s", strings.Join(choices, "/"))
	}
	return builder.String()
}

// FormatReport renders a finalized report as the referee's summary.
func FormatReport(report match.Report) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Full time: %s %d - %d %s", report.HomeTeam, report.HomeScore, report.AwayScore, report.AwayTeam)
	if report.WentToPenalties() {
		fmt.Fprintf(&builder, " (%d-%d on penalties)", *report.HomePenaltyScore, *report.AwayPenaltyScore)
	}
	for _, event := range report.Events {
		builder.WriteString("\n  ")
		builder.WriteString(event.String())
	}
	if report.RefereeNote != "" {
		fmt.Fprintf(&builder, "\nNote: %s", report.RefereeNote)
	}
	return builder.String()
}

var feedbackLabels = map[match.Feedback]string{
	match.FeedbackKickOff:         "kick-off",
	match.FeedbackHalfTime:        "half time",
	match.FeedbackFullTime:        "full time",
	match.FeedbackSecondYellow:    "second yellow: sent off",
	match.FeedbackAddedTimeAlert:  "added time due",
	match.FeedbackShootoutDecided: "shootout decided",
}

// FormatFeedback renders a feedback cue, or "" for cues not worth a line.
func FormatFeedback(feedback match.Feedback) string {
	label, ok := feedbackLabels[feedback]
	if !ok {
		return ""
	}
	if feedback.Critical() {
		return "!! " + label
	}
	return "* " + label
}

// FormatClock renders d as MM:SS.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int(d.Seconds())
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
