package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"refwatch/internal/console"
	"refwatch/internal/core/clock"
	"refwatch/internal/core/match"
	"refwatch/internal/log"
	"refwatch/internal/platform"
	"refwatch/internal/preferences"
	"refwatch/internal/storage"
	"refwatch/internal/transport"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const tickInterval = time.Second

// runReferee runs one refereeing session on this device: commands are read
// from in, the display is written to out and finished reports are handed to
// the companion through the outbox.
func runReferee(ctx context.Context, configPath string, settings preferences.Settings, in io.Reader, out io.Writer) error {
	lock, err := platform.AcquireInstance(appName, "referee")
	if err != nil {
		return err
	}
	defer lock.Release()

	logger := log.WithComponent("referee")

	outbox, err := transport.OpenSQLiteOutbox(settings.OutboxPath)
	if err != nil {
		return err
	}
	dispatcher := transport.NewDispatcher(transport.Options{
		Outbox:     outbox,
		Link:       dialLink(settings, logger),
		RetryEvery: settings.RetryEvery,
	})
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn().Err(err).Msg("close dispatcher")
		}
	}()

	if pending, err := dispatcher.Pending(ctx); err == nil && pending > 0 {
		logger.Info().Int(log.FieldPending, pending).Msg("resuming undelivered reports")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopwatch := func() clock.Source { return clock.NewStopwatch(nil) }
	session := newSession(settings, dispatcher, stopwatch, out, logger)
	defer session.close()

	lines := make(chan string)
	go readLines(in, lines)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return dispatcher.Run(ctx) })
	group.Go(func() error { return storage.WatchSettings(ctx, configPath, session.reload) })
	group.Go(func() error {
		// End of input ends the session.
		defer cancel()
		return session.run(ctx, lines)
	})
	return group.Wait()
}

func dialLink(settings preferences.Settings, logger zerolog.Logger) transport.Link {
	switch settings.Link {
	case preferences.LinkWebSocket:
		return transport.NewWebSocketLink(settings.CompanionURL)
	case preferences.LinkMQTT:
		logger.Info().Str(log.FieldAddr, settings.MQTTBroker).Msg("reports go to the mqtt broker")
		return transport.NewMQTTLink(settings.MQTTBroker, settings.MQTTTopic, appName+"-referee")
	default:
		return nil
	}
}

// readLines forwards input lines until EOF, then closes lines. A blocked
// read on a terminal cannot be interrupted, so this is not part of the
// session's group.
func readLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

// session owns the current match. Only run's goroutine touches game;
// reload may be called from any goroutine.
type session struct {
	out       io.Writer
	logger    zerolog.Logger
	publisher match.Publisher
	newClock  func() clock.Source

	game          *match.Match
	notifications <-chan match.Notification

	mu      sync.Mutex
	pending *preferences.Settings
}

func newSession(settings preferences.Settings, publisher match.Publisher, newClock func() clock.Source, out io.Writer, logger zerolog.Logger) *session {
	session := &session{
		out:       out,
		logger:    logger,
		publisher: publisher,
		newClock:  newClock,
	}
	session.start(settings)
	return session
}

func (session *session) start(settings preferences.Settings) {
	if session.game != nil {
		session.game.Close()
	}
	session.game = match.New(settings.MatchConfig(), match.Options{
		Clock:     session.newClock(),
		Publisher: session.publisher,
	})
	session.notifications = session.game.Subscribe(16)
	session.logger.Info().Str(log.FieldPhase, string(session.game.Phase())).Msg("match started")
}

func (session *session) close() {
	session.game.Close()
}

// reload records new settings. Match settings apply from the next reset;
// a match in progress keeps the durations it kicked off with.
func (session *session) reload(settings preferences.Settings) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.pending = &settings
}

func (session *session) takePending() (preferences.Settings, bool) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.pending == nil {
		return preferences.Settings{}, false
	}
	settings := *session.pending
	session.pending = nil
	return settings, true
}

func (session *session) run(ctx context.Context, lines <-chan string) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	fmt.Fprintln(session.out, console.Help())
	session.handle("status")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			session.handle(line)
		case <-ticker.C:
			session.game.Tick()
		case notification := <-session.notifications:
			session.notify(notification)
		}
	}
}

func (session *session) handle(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	command, err := console.Parse(line)
	if err != nil {
		fmt.Fprintln(session.out, err)
		return
	}
	if command.Action == console.ActionReset {
		if settings, ok := session.takePending(); ok {
			session.start(settings)
		}
	}

	result, err := console.Execute(session.game, command)
	if err != nil {
		session.logger.Debug().Err(err).Str(log.FieldCommand, string(command.Action)).Msg("command rejected")
		fmt.Fprintln(session.out, "rejected:", err)
		return
	}
	fmt.Fprintln(session.out, result)
}

func (session *session) notify(notification match.Notification) {
	switch notification.Type {
	case match.NotifyFeedback:
		if line := console.FormatFeedback(notification.Feedback); line != "" {
			fmt.Fprintln(session.out, line)
		}
		session.logger.Debug().Str(log.FieldFeedback, string(notification.Feedback)).Str(log.FieldPhase, string(notification.Phase)).Msg("feedback")
	case match.NotifyReport:
		if notification.Report != nil {
			session.logger.Info().Str(log.FieldReportID, notification.Report.ID.String()).Msg("report queued for the companion")
		}
	}
}
