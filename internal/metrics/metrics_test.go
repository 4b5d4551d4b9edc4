package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"refwatch/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, counter interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, counter.Write(&metric))
	return metric.GetCounter().GetValue()
}

func TestRecordDelivery(t *testing.T) {
	acked := metrics.DeliveryAttemptsTotal.WithLabelValues("websocket", metrics.ResultAcked)
	failed := metrics.DeliveryAttemptsTotal.WithLabelValues("unknown", metrics.ResultFailed)
	beforeAcked := counterValue(t, acked)
	beforeFailed := counterValue(t, failed)

	metrics.RecordDelivery("websocket", true)
	metrics.RecordDelivery("", false)

	require.Equal(t, beforeAcked+1, counterValue(t, acked))
	require.Equal(t, beforeFailed+1, counterValue(t, failed))
}

func TestRecordReceived(t *testing.T) {
	duplicate := metrics.ReportsReceivedTotal.WithLabelValues("http", metrics.OutcomeDuplicate)
	before := counterValue(t, duplicate)

	metrics.RecordReceived("http", metrics.OutcomeDuplicate)

	require.Equal(t, before+1, counterValue(t, duplicate))
}

func TestExposition(t *testing.T) {
	metrics.ReportsPublishedTotal.Inc()
	metrics.RecordDelivery("mqtt", false)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "refwatch_reports_published_total"))
	require.True(t, strings.Contains(string(body), `refwatch_delivery_attempts_total{link="mqtt",result="failed"}`))
}

func TestReportEdits(t *testing.T) {
	deleted := metrics.ReportEditsTotal.WithLabelValues(metrics.EditDelete)
	before := counterValue(t, deleted)

	metrics.ReportEditsTotal.WithLabelValues(metrics.EditDelete).Inc()

	require.Equal(t, before+1, counterValue(t, deleted))
}
