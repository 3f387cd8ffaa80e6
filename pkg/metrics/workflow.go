package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
)

// WorkflowMetrics tracks latency and outcomes of transactional operations.
type WorkflowMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	movements *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "workflow_operation_duration_seconds",
		Help:      "Duration of workflow operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_operation_success_total",
		Help:      "Workflow operations that committed.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_operation_failure_total",
		Help:      "Workflow operations that rolled back, by error code.",
	}, []string{"operation", "code"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_movements_total",
		Help:      "Stock ledger entries written, by movement type.",
	}, []string{"type"})
	reg.MustRegister(duration, success, failure, movements)
	return &WorkflowMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		movements: movements,
	}
}

// Observe records one finished operation. An empty code means success.
func (w *WorkflowMetrics) Observe(operation string, elapsed time.Duration, code string) {
	if w == nil || w.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	w.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	if code == "" {
		w.success.WithLabelValues(op).Inc()
		return
	}
	w.failure.WithLabelValues(op, code).Inc()
}

// Track is meant to be deferred by workflow operations with a pointer to their
// named error result.
func (w *WorkflowMetrics) Track(operation string, start time.Time, errp *error) {
	code := ""
	if errp != nil && *errp != nil {
		code = string(pkgerrors.CodeOf(*errp))
	}
	w.Observe(operation, time.Since(start), code)
}

// IncMovement counts a ledger entry of the given type.
func (w *WorkflowMetrics) IncMovement(movementType string) {
	if w == nil || w.movements == nil {
		return
	}
	w.movements.WithLabelValues(normalizeLabel(movementType)).Inc()
}
