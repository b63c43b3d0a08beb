package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesDetectorMetrics(t *testing.T) {
	Initialize()
	Initialize()

	SignalsTotal.WithLabelValues("SQL_INJECTION", "CRITICAL").Inc()
	BlocksTotal.WithLabelValues("ip", "temporary").Inc()
	AuditEventsTotal.WithLabelValues(AuditQueued).Inc()
	AnalyzeLatency.Observe(0.3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "threatguard_signals_total")
	assert.Contains(t, string(body), "threatguard_blocks_total")
	assert.Contains(t, string(body), "threatguard_audit_events_total")
	assert.Contains(t, string(body), "threatguard_analyze_latency_ms")
	assert.GreaterOrEqual(t, testutil.ToFloat64(SignalsTotal.WithLabelValues("SQL_INJECTION", "CRITICAL")), 1.0)
}
