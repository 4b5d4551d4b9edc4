// Package transport delivers finalized match reports to the companion.
//
// Reports are encoded once, stored in a durable outbox and then offered
// to a live link until the companion acknowledges them. A report is only
// removed from the outbox after its acknowledgment.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"refwatch/internal/core/match"

	"github.com/google/uuid"
)

var (
	// ErrEncodingFailure is returned when a report cannot be serialized.
	// The report stays queued and encoding is retried.
	ErrEncodingFailure = errors.New("report encoding failed")
	// ErrNotAcknowledged is returned by a link whose peer did not confirm
	// the report.
	ErrNotAcknowledged = errors.New("report not acknowledged")
)

// Envelope types.
const (
	TypeReport = "report"
	TypeAck    = "ack"
)

// Envelope frames reports and acknowledgments on message links.
type Envelope struct {
	Type     string          `json:"type"`
	ReportID uuid.UUID       `json:"reportId"`
	Report   json.RawMessage `json:"report,omitempty"`
}

// Encoder serializes a report for the wire.
type Encoder func(report match.Report) ([]byte, error)

// EncodeJSON is the default Encoder.
func EncodeJSON(report match.Report) ([]byte, error) {
	return json.Marshal(report)
}

// ReportEnvelope wraps an encoded report.
func ReportEnvelope(id uuid.UUID, payload []byte) ([]byte, error) {
	return json.Marshal(Envelope{Type: TypeReport, ReportID: id, Report: payload})
}

// AckEnvelope acknowledges the report with id.
func AckEnvelope(id uuid.UUID) ([]byte, error) {
	return json.Marshal(Envelope{Type: TypeAck, ReportID: id})
}

// DecodeEnvelope parses a framed message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch envelope.Type {
	case TypeReport, TypeAck:
	default:
		return Envelope{}, fmt.Errorf("decode envelope: unknown type %q", envelope.Type)
	}
	return envelope, nil
}

// DecodeReport parses an encoded report and rejects enum values this
// version does not know.
func DecodeReport(payload []byte) (match.Report, error) {
	var report match.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return match.Report{}, fmt.Errorf("decode report: %w", err)
	}
	if err := report.Validate(); err != nil {
		return match.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}
