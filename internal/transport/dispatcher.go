package transport

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"refwatch/internal/core/match"
	"refwatch/internal/log"
	"refwatch/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultRetryEvery is how often undelivered reports are retried.
const DefaultRetryEvery = 5 * time.Second

// Options configures a Dispatcher. Zero values select the defaults.
type Options struct {
	Outbox Outbox
	// Link may be nil, in which case reports are only stored.
	Link       Link
	Encode     Encoder
	RetryEvery time.Duration
	Now        func() time.Time
	Logger     *zerolog.Logger
}

// Dispatcher implements match.Publisher. Publish only queues; encoding,
// storage and delivery happen in Flush, which Run calls on every wake-up
// and retry tick.
type Dispatcher struct {
	outbox Outbox
	link   Link
	encode Encoder
	retry  time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu sync.Mutex
	// queued holds reports not yet stored in the outbox.
	queued []match.Report
	wake   chan struct{}

	flushMu sync.Mutex
}

// NewDispatcher builds a dispatcher from options.
func NewDispatcher(options Options) *Dispatcher {
	dispatcher := &Dispatcher{
		outbox: options.Outbox,
		link:   options.Link,
		encode: options.Encode,
		retry:  options.RetryEvery,
		now:    options.Now,
		wake:   make(chan struct{}, 1),
	}
	if dispatcher.outbox == nil {
		dispatcher.outbox = NewMemoryOutbox()
	}
	if dispatcher.encode == nil {
		dispatcher.encode = EncodeJSON
	}
	if dispatcher.retry <= 0 {
		dispatcher.retry = DefaultRetryEvery
	}
	if dispatcher.now == nil {
		dispatcher.now = time.Now
	}
	if options.Logger != nil {
		dispatcher.logger = *options.Logger
	} else {
		dispatcher.logger = log.WithComponent("transport")
	}
	return dispatcher
}

// Publish queues report for delivery. It never blocks.
func (dispatcher *Dispatcher) Publish(report match.Report) {
	dispatcher.mu.Lock()
	dispatcher.queued = append(dispatcher.queued, report)
	dispatcher.mu.Unlock()

	metrics.ReportsPublishedTotal.Inc()
	dispatcher.logger.Info().
		Str(log.FieldReportID, report.ID.String()).
		Msg("report queued for delivery")

	select {
	case dispatcher.wake <- struct{}{}:
	default:
	}
}

// Run flushes on start, whenever a report is published and on every retry
// tick, until ctx is done.
func (dispatcher *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(dispatcher.retry)
	defer ticker.Stop()

	for {
		if err := dispatcher.Flush(ctx); err != nil && ctx.Err() == nil {
			dispatcher.logger.Debug().Err(err).Msg("flush incomplete; will retry")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-dispatcher.wake:
		case <-ticker.C:
		}
	}
}

// Flush encodes and stores queued reports, then offers every stored report
// to the link. Reports that fail are kept for the next flush.
func (dispatcher *Dispatcher) Flush(ctx context.Context) error {
	dispatcher.flushMu.Lock()
	defer dispatcher.flushMu.Unlock()

	encodeErr := dispatcher.storeQueued(ctx)
	deliverErr := dispatcher.deliverStored(ctx)
	dispatcher.updatePending(ctx)
	return errors.Join(encodeErr, deliverErr)
}

// Pending returns the number of reports not yet acknowledged.
func (dispatcher *Dispatcher) Pending(ctx context.Context) (int, error) {
	stored, err := dispatcher.outbox.Pending(ctx)
	if err != nil {
		return 0, err
	}
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	return len(stored) + len(dispatcher.queued), nil
}

// Close releases the link and the outbox.
func (dispatcher *Dispatcher) Close() error {
	var linkErr error
	if dispatcher.link != nil {
		linkErr = dispatcher.link.Close()
	}
	return errors.Join(linkErr, dispatcher.outbox.Close())
}

func (dispatcher *Dispatcher) storeQueued(ctx context.Context) error {
	dispatcher.mu.Lock()
	queued := slices.Clone(dispatcher.queued)
	dispatcher.mu.Unlock()

	var (
		stored []uuid.UUID
		errs   []error
	)
	for _, report := range queued {
		payload, err := dispatcher.encode(report)
		if err != nil {
			metrics.EncodingFailuresTotal.Inc()
			dispatcher.logger.Warn().Err(err).
				Str(log.FieldReportID, report.ID.String()).
				Msg("report encoding failed; keeping it queued")
			errs = append(errs, fmt.Errorf("encode report %s: %w: %w", report.ID, ErrEncodingFailure, err))
			continue
		}
		entry := Entry{ID: report.ID, Payload: payload, CreatedAt: dispatcher.now()}
		if err := dispatcher.outbox.Put(ctx, entry); err != nil {
			dispatcher.logger.Error().Err(err).
				Str(log.FieldReportID, report.ID.String()).
				Msg("storing report in outbox failed")
			errs = append(errs, err)
			continue
		}
		stored = append(stored, report.ID)
	}

	if len(stored) > 0 {
		dispatcher.mu.Lock()
		dispatcher.queued = slices.DeleteFunc(dispatcher.queued, func(report match.Report) bool {
			return slices.Contains(stored, report.ID)
		})
		dispatcher.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (dispatcher *Dispatcher) deliverStored(ctx context.Context) error {
	if dispatcher.link == nil {
		return nil
	}
	entries, err := dispatcher.outbox.Pending(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := dispatcher.outbox.MarkAttempt(ctx, entry.ID); err != nil {
			return err
		}

		logger := dispatcher.logger.With().
			Str(log.FieldReportID, entry.ID.String()).
			Str(log.FieldLink, dispatcher.link.Name()).
			Int(log.FieldAttempt, entry.Attempts+1).
			Logger()

		if err := dispatcher.link.Deliver(ctx, entry.ID, entry.Payload); err != nil {
			metrics.RecordDelivery(dispatcher.link.Name(), false)
			logger.Warn().Err(err).Msg("report delivery failed")
			// The link is most likely down; the rest waits for the next retry.
			return err
		}
		metrics.RecordDelivery(dispatcher.link.Name(), true)

		if err := dispatcher.outbox.Delete(ctx, entry.ID); err != nil {
			return err
		}
		logger.Info().Msg("report acknowledged")
	}
	return nil
}

func (dispatcher *Dispatcher) updatePending(ctx context.Context) {
	pending, err := dispatcher.Pending(ctx)
	if err != nil {
		return
	}
	metrics.PendingReports.Set(float64(pending))
}

var _ match.Publisher = (*Dispatcher)(nil)
