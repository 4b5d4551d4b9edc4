// Package console turns referee input lines into match operations.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"refwatch/internal/core/match"
)

var (
	// ErrUnknownCommand is returned for an unrecognised command word.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned when a command's arguments are malformed.
	ErrUsage = errors.New("bad arguments")
)

// Action names a console command.
type Action string

const (
	ActionGoal      Action = "goal"
	ActionCard      Action = "card"
	ActionSub       Action = "sub"
	ActionStop      Action = "stop"
	ActionPlay      Action = "play"
	ActionPause     Action = "pause"
	ActionEnd       Action = "end"
	ActionResume    Action = "resume"
	ActionExtraTime Action = "et"
	ActionPenalties Action = "pens"
	ActionKick      Action = "kick"
	ActionNote      Action = "note"
	ActionFinish    Action = "finish"
	ActionReset     Action = "reset"
	ActionStatus    Action = "status"
	ActionHelp      Action = "help"
)

// Command is a parsed input line.
type Command struct {
	Action   Action
	Team     match.Team
	Player   int
	PlayerIn int
	GoalKind match.GoalKind
	CardKind match.CardKind
	Scored   bool
	Note     string
}

var usage = map[Action]string{
	ActionGoal:      "goal <home|away> <number> [normal|penalty|own]",
	ActionCard:      "card <home|away> <number> <yellow|red>",
	ActionSub:       "sub <home|away> <out> <in>",
	ActionStop:      "stop",
	ActionPlay:      "play",
	ActionPause:     "pause",
	ActionEnd:       "end",
	ActionResume:    "resume",
	ActionExtraTime: "et",
	ActionPenalties: "pens",
	ActionKick:      "kick <goal|miss>",
	ActionNote:      "note <text>",
	ActionFinish:    "finish",
	ActionReset:     "reset",
	ActionStatus:    "status",
	ActionHelp:      "help",
}

// Parse reads one input line.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty line: %w", ErrUnknownCommand)
	}
	command := Command{Action: Action(strings.ToLower(fields[0]))}
	args := fields[1:]

	if _, known := usage[command.Action]; !known {
		return Command{}, fmt.Errorf("%q: %w", fields[0], ErrUnknownCommand)
	}

	var err error
	switch command.Action {
	case ActionGoal:
		if len(args) < 2 || len(args) > 3 {
			return Command{}, usageError(command.Action)
		}
		command.GoalKind = match.GoalNormal
		if len(args) == 3 {
			if command.GoalKind, err = parseGoalKind(args[2]); err != nil {
				return Command{}, err
			}
		}
		command.Team, command.Player, err = parseTeamPlayer(args[0], args[1])
	case ActionCard:
		if len(args) != 3 {
			return Command{}, usageError(command.Action)
		}
		if command.CardKind, err = parseCardKind(args[2]); err != nil {
			return Command{}, err
		}
		command.Team, command.Player, err = parseTeamPlayer(args[0], args[1])
	case ActionSub:
		if len(args) != 3 {
			return Command{}, usageError(command.Action)
		}
		if command.Team, command.Player, err = parseTeamPlayer(args[0], args[1]); err != nil {
			return Command{}, err
		}
		command.PlayerIn, err = parsePlayer(args[2])
	case ActionKick:
		if len(args) != 1 {
			return Command{}, usageError(command.Action)
		}
		switch strings.ToLower(args[0]) {
		case "goal", "scored", "in":
			command.Scored = true
		case "miss", "missed", "saved":
		default:
			return Command{}, usageError(command.Action)
		}
	case ActionNote:
		command.Note = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	default:
		if len(args) != 0 {
			return Command{}, usageError(command.Action)
		}
	}
	if err != nil {
		return Command{}, err
	}
	return command, nil
}

func usageError(action Action) error {
	return fmt.Errorf("usage: %s: %w", usage[action], ErrUsage)
}

func parseTeamPlayer(team, player string) (match.Team, int, error) {
	parsedTeam, err := parseTeam(team)
	if err != nil {
		return "", 0, err
	}
	number, err := parsePlayer(player)
	if err != nil {
		return "", 0, err
	}
	return parsedTeam, number, nil
}

func parseTeam(value string) (match.Team, error) {
	switch strings.ToLower(value) {
	case "home", "h":
		return match.TeamHome, nil
	case "away", "a":
		return match.TeamAway, nil
	default:
		return "", fmt.Errorf("team %q: %w", value, ErrUsage)
	}
}

func parsePlayer(value string) (int, error) {
	number, err := strconv.Atoi(strings.TrimPrefix(value, "#"))
	if err != nil || number < 0 {
		return 0, fmt.Errorf("player %q: %w", value, ErrUsage)
	}
	return number, nil
}

func parseGoalKind(value string) (match.GoalKind, error) {
	switch strings.ToLower(value) {
	case "normal":
		return match.GoalNormal, nil
	case "penalty", "pen":
		return match.GoalPenalty, nil
	case "own", "owngoal":
		return match.GoalOwnGoal, nil
	default:
		return "", fmt.Errorf("goal kind %q: %w", value, ErrUsage)
	}
}

func parseCardKind(value string) (match.CardKind, error) {
	switch strings.ToLower(value) {
	case "yellow", "y":
		return match.CardYellow, nil
	case "red", "r":
		return match.CardRed, nil
	default:
		return "", fmt.Errorf("card %q: %w", value, ErrUsage)
	}
}
