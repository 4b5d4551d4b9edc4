package model

import "time"

const (
	DefaultHalfDuration          = 45 * time.Minute
	DefaultExtraTimeHalfDuration = 15 * time.Minute
	DefaultAlertThreshold        = 30 * time.Second

	DefaultHomeTeam = "HOME"
	DefaultAwayTeam = "AWAY"
)

// MatchConfig contains constructor-time settings for the match state machine.
type MatchConfig struct {
	HomeTeam string
	AwayTeam string

	HalfDuration          time.Duration
	ExtraTimeHalfDuration time.Duration

	// AlertThreshold is how long before the end of a half the recommended
	// added time starts being reported.
	AlertThreshold time.Duration
}

// WithDefaults returns a copy with every unset field replaced by its default.
func (config MatchConfig) WithDefaults() MatchConfig {
	if config.HomeTeam == "" {
		config.HomeTeam = DefaultHomeTeam
	}
	if config.AwayTeam == "" {
		config.AwayTeam = DefaultAwayTeam
	}
	if config.HalfDuration <= 0 {
		config.HalfDuration = DefaultHalfDuration
	}
	if config.ExtraTimeHalfDuration <= 0 {
		config.ExtraTimeHalfDuration = DefaultExtraTimeHalfDuration
	}
	if config.AlertThreshold <= 0 {
		config.AlertThreshold = DefaultAlertThreshold
	}
	return config
}
