package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"refwatch/internal/companion"
	"refwatch/internal/log"
	"refwatch/internal/preferences"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// runCompanion serves the report history over HTTP and WebSocket, and
// over MQTT when a broker is configured, until ctx is done.
func runCompanion(ctx context.Context, settings preferences.Settings) error {
	logger := log.WithComponent("companion")

	history, err := companion.OpenHistory(settings.HistoryPath)
	if err != nil {
		return err
	}
	receiver := companion.NewReceiver(history)

	server := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           companion.NewRouter(receiver, nil),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if settings.Link == preferences.LinkMQTT {
		disconnect, err := companion.ListenMQTT(settings.MQTTBroker, settings.MQTTTopic, appName+"-companion", receiver)
		if err != nil {
			logger.Warn().Err(err).Str(log.FieldAddr, settings.MQTTBroker).Msg("mqtt ingest disabled")
		} else {
			defer disconnect()
			logger.Info().Str(log.FieldTopic, settings.MQTTTopic).Msg("mqtt ingest started")
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().Str(log.FieldAddr, settings.ListenAddr).Int("reports", history.Len()).Msg("companion listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
