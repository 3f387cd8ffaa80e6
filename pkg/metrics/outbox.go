package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts relay outcomes of the outbox publisher.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "published_total",
		Help:      "Outbox events relayed to subscribers.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "failed_total",
		Help:      "Outbox relay attempts that failed.",
	}, []string{"event_type"})
	reg.MustRegister(published, failed)
	return &OutboxMetrics{published: published, failed: failed}
}

func (o *OutboxMetrics) IncPublished(eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (o *OutboxMetrics) IncFailed(eventType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}
