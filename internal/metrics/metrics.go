// Package metrics defines the Prometheus collectors for report delivery
// and ingestion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refwatch_reports_published_total",
		Help: "Total number of finalized reports handed to the dispatcher",
	})

	DeliveryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refwatch_delivery_attempts_total",
		Help: "Total number of report delivery attempts by link and result",
	}, []string{"link", "result"})

	EncodingFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refwatch_encoding_failures_total",
		Help: "Total number of reports that could not be serialized",
	})

	PendingReports = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refwatch_pending_reports",
		Help: "Reports awaiting acknowledgment, including those not yet encoded",
	})

	ReportsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refwatch_reports_received_total",
		Help: "Total number of reports received by the companion by source and outcome",
	}, []string{"source", "outcome"})

	StoredReports = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refwatch_stored_reports",
		Help: "Reports held in the companion history",
	})

	ReportEditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refwatch_report_edits_total",
		Help: "Total number of changes made to the companion history by action",
	}, []string{"action"})
)

// Delivery results.
const (
	ResultAcked  = "acked"
	ResultFailed = "failed"
)

// Ingestion outcomes.
const (
	OutcomeStored    = "stored"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
)

// History edit actions.
const (
	EditCreate      = "create"
	EditUpdate      = "update"
	EditAddEvent    = "add_event"
	EditRemoveEvent = "remove_event"
	EditDelete      = "delete"
)

// RecordDelivery counts one delivery attempt over link.
func RecordDelivery(link string, acked bool) {
	if link == "" {
		link = "unknown"
	}
	result := ResultFailed
	if acked {
		result = ResultAcked
	}
	DeliveryAttemptsTotal.WithLabelValues(link, result).Inc()
}

// RecordReceived counts one report arriving at the companion.
func RecordReceived(source, outcome string) {
	if source == "" {
		source = "unknown"
	}
	ReportsReceivedTotal.WithLabelValues(source, outcome).Inc()
}
