package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the submission workflow.
type Metrics struct {
	// Operation outcomes by category, operation and outcome code
	Operations *prometheus.CounterVec

	// Operation latency by category and operation
	Duration *prometheus.HistogramVec

	// Rows returned by List
	ListRows prometheus.Histogram
}

// New creates the submission metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the submission metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rekam_submission_operations_total",
			Help: "Total submission operations by category, operation and outcome",
		}, []string{"category", "operation", "outcome"}),

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rekam_submission_operation_duration_seconds",
			Help:    "Duration of submission operations including store round trips",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"category", "operation"}),

		ListRows: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rekam_submission_list_rows",
			Help:    "Number of rows returned per list page",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(category, operation, outcome string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(category, operation, outcome).Inc()
		m.Duration.WithLabelValues(category, operation).Observe(d.Seconds())
	}
}

// ObserveListRows records the size of a returned page.
func (m *Metrics) ObserveListRows(n int) {
	if m != nil {
		m.ListRows.Observe(float64(n))
	}
}
