package match

import "fmt"

// regulationKicks is the number of kicks each side takes before sudden death.
const regulationKicks = 5

// ShootoutState is a snapshot of a penalty shootout.
type ShootoutState struct {
	HomeScore     int  `json:"homeScore"`
	AwayScore     int  `json:"awayScore"`
	HomeKicks     int  `json:"homeKicks"`
	AwayKicks     int  `json:"awayKicks"`
	CurrentKicker Team `json:"currentKicker"`
	Winner        Team `json:"winner,omitempty"`
}

// Shootout resolves a tied match with alternating kicks, stopping early
// once the result is certain and continuing to sudden death after five
// kicks each.
type Shootout struct {
	state ShootoutState
}

// NewShootout returns a shootout with Home kicking first.
func NewShootout() *Shootout {
	return &Shootout{state: ShootoutState{CurrentKicker: TeamHome}}
}

// State returns a copy of the current state.
func (shootout *Shootout) State() ShootoutState {
	return shootout.state
}

// Decided reports whether a winner has been determined.
func (shootout *Shootout) Decided() bool {
	return shootout.state.Winner != ""
}

// Winner returns the winning team once decided.
func (shootout *Shootout) Winner() (Team, bool) {
	return shootout.state.Winner, shootout.Decided()
}

// RecordKick records the current kicker's attempt, evaluates the result and
// hands the kick to the other side if still undecided.
func (shootout *Shootout) RecordKick(scored bool) (ShootoutState, error) {
	if shootout.Decided() {
		return shootout.state, fmt.Errorf("kick after shootout decided: %w", ErrInvalidTransition)
	}

	state := &shootout.state
	if state.CurrentKicker == TeamHome {
		state.HomeKicks++
		if scored {
			state.HomeScore++
		}
	} else {
		state.AwayKicks++
		if scored {
			state.AwayScore++
		}
	}

	state.Winner = shootout.evaluate()
	if state.Winner == "" {
		state.CurrentKicker = state.CurrentKicker.Opponent()
	}
	return *state, nil
}

func (shootout *Shootout) evaluate() Team {
	state := shootout.state

	if state.HomeKicks <= regulationKicks && state.AwayKicks <= regulationKicks {
		if state.HomeScore > state.AwayScore+(regulationKicks-state.AwayKicks) {
			return TeamHome
		}
		if state.AwayScore > state.HomeScore+(regulationKicks-state.HomeKicks) {
			return TeamAway
		}
	}

	if state.HomeKicks >= regulationKicks && state.HomeKicks == state.AwayKicks {
		switch {
		case state.HomeScore > state.AwayScore:
			return TeamHome
		case state.AwayScore > state.HomeScore:
			return TeamAway
		}
	}
	return ""
}

// Round is the round currently being taken.
func (shootout *Shootout) Round() int {
	state := shootout.state
	if state.HomeKicks == state.AwayKicks {
		return state.HomeKicks + 1
	}
	return max(state.HomeKicks, state.AwayKicks)
}

// SuddenDeath reports whether the current round is past the first five.
func (shootout *Shootout) SuddenDeath() bool {
	return shootout.Round() > regulationKicks
}

// Status renders the display line for the shootout.
func (shootout *Shootout) Status(homeName, awayName string) string {
	name := func(team Team) string {
		if team == TeamAway {
			return awayName
		}
		return homeName
	}
	if winner, ok := shootout.Winner(); ok {
		return name(winner) + " wins!"
	}
	round := shootout.Round()
	kicker := name(shootout.state.CurrentKicker)
	if round <= regulationKicks {
		return fmt.Sprintf("Round %d/%d: %s kicking", round, regulationKicks, kicker)
	}
	return fmt.Sprintf("Sudden Death (%d): %s kicking", round, kicker)
}
