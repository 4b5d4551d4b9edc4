package companion

import (
	"errors"
	"fmt"
	"time"

	"refwatch/internal/core/match"
	"refwatch/internal/log"
	"refwatch/internal/metrics"
	"refwatch/internal/transport"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidReport is returned for payloads that do not decode to a report.
var ErrInvalidReport = errors.New("invalid report")

// Receiver is the single entry point for reports arriving over any source.
type Receiver struct {
	history *History
	logger  zerolog.Logger
	now     func() time.Time
}

// NewReceiver returns a receiver storing into history.
func NewReceiver(history *History) *Receiver {
	return &Receiver{history: history, logger: log.WithComponent("companion"), now: time.Now}
}

// History returns the underlying history.
func (receiver *Receiver) History() *History {
	return receiver.history
}

// Accept decodes payload and stores the report. It reports whether the
// report was new; a duplicate is still a success.
func (receiver *Receiver) Accept(source string, payload []byte) (match.Report, bool, error) {
	report, err := transport.DecodeReport(payload)
	if err != nil {
		metrics.RecordReceived(source, metrics.OutcomeInvalid)
		receiver.logger.Warn().Err(err).Str(log.FieldLink, source).Msg("rejected report payload")
		return match.Report{}, false, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	added, err := receiver.history.Add(report)
	if err != nil {
		receiver.logger.Error().Err(err).Str(log.FieldReportID, report.ID.String()).Msg("storing report failed")
		return report, false, err
	}

	logger := receiver.logger.With().
		Str(log.FieldReportID, report.ID.String()).
		Str(log.FieldLink, source).
		Logger()
	if !added {
		metrics.RecordReceived(source, metrics.OutcomeDuplicate)
		logger.Debug().Msg("duplicate report ignored")
		return report, false, nil
	}
	metrics.RecordReceived(source, metrics.OutcomeStored)
	logger.Info().
		Str("home_team", report.HomeTeam).
		Str("away_team", report.AwayTeam).
		Int("home_score", report.HomeScore).
		Int("away_score", report.AwayScore).
		Msg("report received")
	return report, true, nil
}

// Create stores a report entered on the companion rather than received
// from a referee.
func (receiver *Receiver) Create(draft match.Report) (match.Report, error) {
	report, err := manualReport(draft, receiver.now())
	if err != nil {
		receiver.logger.Warn().Err(err).Msg("rejected manual report")
		return match.Report{}, err
	}
	if _, err := receiver.history.Add(report); err != nil {
		receiver.logger.Error().Err(err).Str(log.FieldReportID, report.ID.String()).Msg("storing manual report failed")
		return match.Report{}, err
	}
	receiver.edited(metrics.EditCreate, report.ID)
	return report, nil
}

// Update applies patch to the report with id.
func (receiver *Receiver) Update(id uuid.UUID, patch ReportPatch) (match.Report, error) {
	report, err := receiver.history.Update(id, patch.apply)
	if err != nil {
		return match.Report{}, receiver.failed(metrics.EditUpdate, id, err)
	}
	receiver.edited(metrics.EditUpdate, id)
	return report, nil
}

// AddEvent appends event to the report with id and returns the stored event.
func (receiver *Receiver) AddEvent(id uuid.UUID, event match.Event) (match.Event, error) {
	var added match.Event
	_, err := receiver.history.Update(id, func(report *match.Report) error {
		added = appendEvent(report, event)
		return nil
	})
	if err != nil {
		return match.Event{}, receiver.failed(metrics.EditAddEvent, id, err)
	}
	receiver.edited(metrics.EditAddEvent, id)
	return added, nil
}

// RemoveEvent deletes the event with eventID from the report with id.
func (receiver *Receiver) RemoveEvent(id, eventID uuid.UUID) (match.Report, error) {
	report, err := receiver.history.Update(id, func(report *match.Report) error {
		return removeEvent(report, eventID)
	})
	if err != nil {
		return match.Report{}, receiver.failed(metrics.EditRemoveEvent, id, err)
	}
	receiver.edited(metrics.EditRemoveEvent, id)
	return report, nil
}

// Delete removes the report with id. A referee still holding the report
// in its outbox may deliver it again.
func (receiver *Receiver) Delete(id uuid.UUID) error {
	if err := receiver.history.Delete(id); err != nil {
		return receiver.failed(metrics.EditDelete, id, err)
	}
	receiver.edited(metrics.EditDelete, id)
	return nil
}

func (receiver *Receiver) edited(action string, id uuid.UUID) {
	metrics.ReportEditsTotal.WithLabelValues(action).Inc()
	receiver.logger.Info().Str(log.FieldReportID, id.String()).Str("action", action).Msg("history edited")
}

func (receiver *Receiver) failed(action string, id uuid.UUID, err error) error {
	event := receiver.logger.Warn()
	if !errors.Is(err, ErrInvalidReport) && !errors.Is(err, ErrReportNotFound) && !errors.Is(err, ErrEventNotFound) {
		event = receiver.logger.Error()
	}
	event.Err(err).Str(log.FieldReportID, id.String()).Str("action", action).Msg("history edit failed")
	return err
}
