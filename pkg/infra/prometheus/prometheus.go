package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

const (
	AuditQueued    = "queued"
	AuditDropped   = "dropped"
	AuditDelivered = "delivered"
	AuditFailed    = "failed"
)

var (
	// Analysis latency buckets in milliseconds; pattern matching is expected
	// to stay well under a millisecond.
	latencyBuckets = []float64{
		0.05, 0.1, 0.25, 0.5,
		1, 2.5, 5, 10,
		25, 50,
	}

	SignalsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatguard_signals_total",
			Help: "Threat signals emitted by the detector",
		},
		[]string{"kind", "severity"},
	)

	BlocksTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatguard_blocks_total",
			Help: "Block state transitions by subject (ip, user) and type (temporary, permanent)",
		},
		[]string{"subject", "type"},
	)

	AuditEventsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatguard_audit_events_total",
			Help: "Audit events by delivery status",
		},
		[]string{"status"},
	)

	AnalyzeLatency = promauto.With(registerer).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threatguard_analyze_latency_ms",
			Help:    "Time spent analysing a request in milliseconds",
			Buckets: latencyBuckets,
		},
	)
)

var initOnce sync.Once

// Initialize registers the process collector. Safe to call more than once.
func Initialize() {
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	})
}

// Handler exposes the private registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
