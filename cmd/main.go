package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"refwatch/internal/log"
	"refwatch/internal/preferences"
	"refwatch/internal/storage"
)

const appName = "refwatch"

func main() {
	mode := flag.String("mode", "referee", "host to run: referee or companion")
	configPath := flag.String("config", "", "settings file (default: user config directory)")
	flag.Parse()

	path, settings, err := loadSettings(*configPath)
	log.Configure(log.Config{Level: settings.LogLevel, Service: appName + "-" + *mode})
	logger := log.WithComponent("main")
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldPath, path).Msg("using default settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "referee":
		err = runReferee(ctx, path, settings, os.Stdin, os.Stdout)
	case "companion":
		err = runCompanion(ctx, settings)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("refwatch stopped")
		stop()
		os.Exit(1)
	}
}

// loadSettings resolves and reads the settings file, writing the defaults
// on first run so there is a file to edit and watch.
func loadSettings(path string) (string, preferences.Settings, error) {
	if path == "" {
		resolved, err := storage.ResolveConfigPath(appName)
		if err != nil {
			return "", preferences.DefaultSettings(), err
		}
		path = resolved
	}

	settings, err := storage.LoadSettingsFile(path)
	if err != nil {
		return path, preferences.DefaultSettings(), err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if err := storage.SaveSettingsFile(path, settings); err != nil {
			return path, settings, err
		}
	}
	return path, settings, nil
}
