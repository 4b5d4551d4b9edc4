package match

// Phase is a named segment of a match.
type Phase string

const (
	PhaseFirstHalf           Phase = "firstHalf"
	PhaseHalftimeBreak       Phase = "halftimeBreak"
	PhaseSecondHalf          Phase = "secondHalf"
	PhaseExtraTimeFirstHalf  Phase = "extraTimeFirstHalf"
	PhaseExtraTimeBreak      Phase = "extraTimeBreak"
	PhaseExtraTimeSecondHalf Phase = "extraTimeSecondHalf"
	PhasePenaltyShootout     Phase = "penaltyShootout"
	PhaseFinished            Phase = "finished"
)

// phaseOrder is the canonical order; a match only ever moves forward in it.
var phaseOrder = []Phase{
	PhaseFirstHalf,
	PhaseHalftimeBreak,
	PhaseSecondHalf,
	PhaseExtraTimeFirstHalf,
	PhaseExtraTimeBreak,
	PhaseExtraTimeSecondHalf,
	PhasePenaltyShootout,
	PhaseFinished,
}

// Playing reports whether events may be recorded in the phase.
func (phase Phase) Playing() bool {
	switch phase {
	case PhaseFirstHalf, PhaseSecondHalf, PhaseExtraTimeFirstHalf, PhaseExtraTimeSecondHalf:
		return true
	default:
		return false
	}
}

// Valid reports whether phase is one of the known phases.
func (phase Phase) Valid() bool {
	return phase.index() >= 0
}

func (phase Phase) index() int {
	for i, candidate := range phaseOrder {
		if candidate == phase {
			return i
		}
	}
	return -1
}

// Label is the short display text for the phase.
func (phase Phase) Label() string {
	switch phase {
	case PhaseFirstHalf:
		return "Half 1"
	case PhaseHalftimeBreak:
		return "Halftime"
	case PhaseSecondHalf:
		return "Half 2"
	case PhaseExtraTimeFirstHalf:
		return "Extra Time 1"
	case PhaseExtraTimeBreak:
		return "ET Halftime"
	case PhaseExtraTimeSecondHalf:
		return "Extra Time 2"
	case PhasePenaltyShootout:
		return "Penalties"
	case PhaseFinished:
		return "Full Time"
	default:
		return "Match"
	}
}

// Team identifies a side.
type Team string

const (
	TeamHome Team = "home"
	TeamAway Team = "away"
)

// Valid reports whether team is home or away.
func (team Team) Valid() bool {
	return team == TeamHome || team == TeamAway
}

// Opponent returns the other side.
func (team Team) Opponent() Team {
	if team == TeamHome {
		return TeamAway
	}
	return TeamHome
}
