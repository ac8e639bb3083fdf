package metrics

import (
	"net/http"

	"github.com/foxseedlab/attendance/internal/attendance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attendance"

// Metrics holds the Prometheus collectors exposed on /metrics.
type Metrics struct {
	registry        *prometheus.Registry
	WebhookRequests *prometheus.CounterVec
	Outcomes        *prometheus.CounterVec
	SegmentDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		WebhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Webhook deliveries by event type and handling result.",
		}, []string{"event_type", "result"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_outcomes_total",
			Help:      "Tracker outcomes by event kind and action.",
		}, []string{"kind", "action"}),
		SegmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_duration_seconds",
			Help:      "Duration of closed attendance segments.",
			Buckets:   []float64{60, 300, 900, 1800, 3600, 7200, 14400},
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.WebhookRequests,
		m.Outcomes,
		m.SegmentDuration,
	)
	return m
}

func (m *Metrics) RecordOutcome(kind attendance.Kind, outcome attendance.Outcome) {
	m.Outcomes.WithLabelValues(string(kind), string(outcome.Action)).Inc()
	if outcome.Action == attendance.ActionSegmentClosed && outcome.DurationSec >= 0 {
		m.SegmentDuration.Observe(float64(outcome.DurationSec))
	}
}

func (m *Metrics) RecordWebhook(eventType, result string) {
	if eventType == "" {
		eventType = "unknown"
	}
	m.WebhookRequests.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
