// Package metrics records store operations as prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aretw0/datastore/pkg/core"
)

const (
	namespace = "datastore"

	// Outcome labels.
	OutcomeOK           = "ok"
	OutcomeIllegalArg   = "illegal_argument"
	OutcomeRuntime      = "runtime"
	OutcomeValidation   = "validation"
	OutcomeUnhandled    = "unhandled"
	OutcomeBackendError = "backend_error"
)

// Recorder implements core.MetricsRecorder.
type Recorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ core.MetricsRecorder = (*Recorder)(nil)

// New registers the store metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of adapter-backed operations by resource, operation and outcome",
			},
			[]string{"resource", "operation", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Time taken by an operation, from pipeline start to commit",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource", "operation"},
		),
	}
}

// Observe implements core.MetricsRecorder.
func (r *Recorder) Observe(resource, operation string, elapsed time.Duration, err error) {
	r.operations.WithLabelValues(resource, operation, Outcome(err)).Inc()
	r.duration.WithLabelValues(resource, operation).Observe(elapsed.Seconds())
}

// Outcome classifies err into a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case core.IsIllegalArgument(err):
		return OutcomeIllegalArg
	case core.IsRuntime(err):
		return OutcomeRuntime
	case core.IsValidation(err):
		return OutcomeValidation
	case core.IsUnhandled(err):
		return OutcomeUnhandled
	default:
		return OutcomeBackendError
	}
}
