package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters for the intake pipeline.
type Metrics struct {
	WebhookResults  *prometheus.CounterVec
	EventsProcessed *prometheus.CounterVec
	Duplicates      prometheus.Counter
	AuthFailures    prometheus.Counter
	SweepDeleted    prometheus.Counter
	SweepSkipped    prometheus.Counter
}

// NewMetrics registers pipeline collectors on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound webhook deliveries by outcome.",
		}, []string{"outcome"}),
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_events_processed_total",
			Help: "Canonical events merged into aggregates, by event type.",
		}, []string{"event_type"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhook_duplicate_notifications_total",
			Help: "Deliveries short-circuited by the dedup ledger.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhook_auth_failures_total",
			Help: "Deliveries rejected for a bad signature.",
		}),
		SweepDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retention_sweep_deleted_total",
			Help: "Aggregates removed by retention sweeps.",
		}),
		SweepSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retention_sweep_skipped_total",
			Help: "Aggregates skipped by retention sweeps (fresh or unparseable).",
		}),
	}
	reg.MustRegister(
		m.WebhookResults,
		m.EventsProcessed,
		m.Duplicates,
		m.AuthFailures,
		m.SweepDeleted,
		m.SweepSkipped,
	)
	return m
}
