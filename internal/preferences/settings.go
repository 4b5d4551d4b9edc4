package preferences

import (
	"time"

	"refwatch/internal/core/model"
)

// Link names a live delivery link.
type Link string

const (
	LinkWebSocket Link = "websocket"
	LinkMQTT      Link = "mqtt"
	LinkNone      Link = "none"
)

// Settings defines editable referee preferences.
type Settings struct {
	HomeTeam              string
	AwayTeam              string
	HalfDuration          time.Duration
	ExtraTimeHalfDuration time.Duration
	AlertThreshold        time.Duration

	// Delivery
	Link         Link
	CompanionURL string
	MQTTBroker   string
	MQTTTopic    string
	OutboxPath   string
	RetryEvery   time.Duration

	// Companion
	ListenAddr  string
	HistoryPath string

	LogLevel string
}

// DefaultSettings returns default settings for refwatch.
func DefaultSettings() Settings {
	return Settings{
		HomeTeam:              model.DefaultHomeTeam,
		AwayTeam:              model.DefaultAwayTeam,
		HalfDuration:          model.DefaultHalfDuration,
		ExtraTimeHalfDuration: model.DefaultExtraTimeHalfDuration,
		AlertThreshold:        model.DefaultAlertThreshold,

		Link:         LinkWebSocket,
		CompanionURL: "ws://127.0.0.1:8470/ws",
		MQTTBroker:   "tcp://127.0.0.1:1883",
		MQTTTopic:    "refwatch/reports",
		OutboxPath:   "outbox.db",
		RetryEvery:   5 * time.Second,

		ListenAddr:  "127.0.0.1:8470",
		HistoryPath: "MatchReports.json",

		LogLevel: "info",
	}
}

// MatchConfig converts settings to the match configuration.
func (settings Settings) MatchConfig() model.MatchConfig {
	return model.MatchConfig{
		HomeTeam:              settings.HomeTeam,
		AwayTeam:              settings.AwayTeam,
		HalfDuration:          settings.HalfDuration,
		ExtraTimeHalfDuration: settings.ExtraTimeHalfDuration,
		AlertThreshold:        settings.AlertThreshold,
	}.WithDefaults()
}
