package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"refwatch/internal/log"
	"refwatch/internal/preferences"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// WatchSettings reloads path whenever it changes on disk and hands valid
// settings to apply. It blocks until ctx is done. The directory is watched
// rather than the file so atomic replacements are seen.
func WatchSettings(ctx context.Context, path string, apply func(preferences.Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch settings directory: %w", err)
	}

	logger := log.WithComponent("settings")
	logger.Info().Str(log.FieldPath, path).Msg("watching settings file")

	name := filepath.Clean(path)
	debounce := time.NewTimer(reloadDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce.Reset(reloadDebounce)
			}

		case <-debounce.C:
			settings, err := LoadSettingsFile(path)
			if err != nil {
				logger.Error().Err(err).Str(log.FieldPath, path).Msg("settings reload failed; keeping previous settings")
				continue
			}
			logger.Info().Str(log.FieldPath, path).Msg("settings reloaded")
			apply(settings)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("settings watcher error")
		}
	}
}
