package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"refwatch/internal/preferences"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const settingsFileName = "settings.yaml"

// ErrInvalidSettings is returned when a settings file holds values that
// cannot be applied.
var ErrInvalidSettings = errors.New("invalid settings")

type yamlSettings struct {
	HomeTeam              string `yaml:"home_team"`
	AwayTeam              string `yaml:"away_team"`
	HalfMinutes           int    `yaml:"half_minutes"`
	ExtraTimeHalfMinutes  int    `yaml:"extra_time_half_minutes"`
	AlertThresholdSeconds int    `yaml:"alert_threshold_seconds"`
	Link                  string `yaml:"link"`
	CompanionURL          string `yaml:"companion_url"`
	MQTTBroker            string `yaml:"mqtt_broker"`
	MQTTTopic             string `yaml:"mqtt_topic"`
	OutboxPath            string `yaml:"outbox_path"`
	RetrySeconds          int    `yaml:"retry_seconds"`
	ListenAddr            string `yaml:"listen_addr"`
	HistoryPath           string `yaml:"history_path"`
	LogLevel              string `yaml:"log_level"`
}

// LoadSettings reads preferences from the user config directory.
// If the config file does not exist, default settings are returned.
func LoadSettings(appName string) (preferences.Settings, error) {
	configPath, err := ResolveConfigPath(appName)
	if err != nil {
		return preferences.DefaultSettings(), err
	}
	return LoadSettingsFile(configPath)
}

// LoadSettingsFile reads preferences from path. Fields missing from the
// file keep their defaults.
func LoadSettingsFile(path string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	if err := applyYamlSettings(&settings, fileData); err != nil {
		return preferences.DefaultSettings(), err
	}
	return settings, nil
}

// SaveSettings writes preferences to the user config directory.
func SaveSettings(appName string, settings preferences.Settings) error {
	configPath, err := ResolveConfigPath(appName)
	if err != nil {
		return err
	}
	return SaveSettingsFile(configPath, settings)
}

// SaveSettingsFile atomically replaces path with settings as YAML.
func SaveSettingsFile(path string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		HomeTeam:              settings.HomeTeam,
		AwayTeam:              settings.AwayTeam,
		HalfMinutes:           int(settings.HalfDuration / time.Minute),
		ExtraTimeHalfMinutes:  int(settings.ExtraTimeHalfDuration / time.Minute),
		AlertThresholdSeconds: int(settings.AlertThreshold / time.Second),
		Link:                  string(settings.Link),
		CompanionURL:          settings.CompanionURL,
		MQTTBroker:            settings.MQTTBroker,
		MQTTTopic:             settings.MQTTTopic,
		OutboxPath:            settings.OutboxPath,
		RetrySeconds:          int(settings.RetryEvery / time.Second),
		ListenAddr:            settings.ListenAddr,
		HistoryPath:           settings.HistoryPath,
		LogLevel:              settings.LogLevel,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := renameio.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// ResolveConfigPath returns the settings file location for appName.
func ResolveConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) error {
	if fileData.HomeTeam != "" {
		settings.HomeTeam = fileData.HomeTeam
	}
	if fileData.AwayTeam != "" {
		settings.AwayTeam = fileData.AwayTeam
	}
	if fileData.HalfMinutes > 0 {
		settings.HalfDuration = time.Duration(fileData.HalfMinutes) * time.Minute
	}
	if fileData.ExtraTimeHalfMinutes > 0 {
		settings.ExtraTimeHalfDuration = time.Duration(fileData.ExtraTimeHalfMinutes) * time.Minute
	}
	if fileData.AlertThresholdSeconds > 0 {
		settings.AlertThreshold = time.Duration(fileData.AlertThresholdSeconds) * time.Second
	}
	if settings.AlertThreshold >= settings.HalfDuration {
		return fmt.Errorf("alert threshold %s not shorter than half %s: %w", settings.AlertThreshold, settings.HalfDuration, ErrInvalidSettings)
	}

	switch link := preferences.Link(fileData.Link); link {
	case "":
	case preferences.LinkWebSocket, preferences.LinkMQTT, preferences.LinkNone:
		settings.Link = link
	default:
		return fmt.Errorf("link %q: %w", fileData.Link, ErrInvalidSettings)
	}

	if fileData.CompanionURL != "" {
		settings.CompanionURL = fileData.CompanionURL
	}
	if fileData.MQTTBroker != "" {
		settings.MQTTBroker = fileData.MQTTBroker
	}
	if fileData.MQTTTopic != "" {
		settings.MQTTTopic = fileData.MQTTTopic
	}
	if fileData.OutboxPath != "" {
		settings.OutboxPath = fileData.OutboxPath
	}
	if fileData.RetrySeconds > 0 {
		settings.RetryEvery = time.Duration(fileData.RetrySeconds) * time.Second
	}
	if fileData.ListenAddr != "" {
		settings.ListenAddr = fileData.ListenAddr
	}
	if fileData.HistoryPath != "" {
		settings.HistoryPath = fileData.HistoryPath
	}
	if fileData.LogLevel != "" {
		settings.LogLevel = fileData.LogLevel
	}
	return nil
}
