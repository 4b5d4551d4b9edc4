package match

import "errors"

var (
	// ErrInvalidTransition indicates the operation is not allowed in the current phase.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNotRunning indicates an event was recorded while the clock was stopped or in a break.
	ErrNotRunning = errors.New("match clock not running")
	// ErrAlreadyFinalized indicates a mutation after the report was produced.
	ErrAlreadyFinalized = errors.New("match already finalized")
	// ErrInvalidEvent indicates malformed event input such as an unknown team.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrInvalidReport indicates a report holding values no match can produce.
	ErrInvalidReport = errors.New("invalid report")
)
