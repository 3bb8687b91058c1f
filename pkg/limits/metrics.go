package limits

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the limits engine.
//
// Labels stay low-cardinality on purpose: rate class and unit, never tenant
// identifiers or bucket keys.
type Metrics struct {
	checks        *prometheus.CounterVec
	denials       *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
	checkDuration prometheus.Histogram
}

// NewMetrics creates the engine metrics registered against reg. Passing nil
// registers against the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_limits_checks_total",
				Help: "Total number of limit checks performed",
			},
			[]string{"result"},
		),

		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_limits_denials_total",
				Help: "Total number of per-definition quota denials",
			},
			[]string{"rate_class", "unit"},
		),

		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tollgate_limits_store_errors_total",
				Help: "Total number of shared-store failures, by operation",
			},
			[]string{"operation"},
		),

		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tollgate_limits_check_duration_seconds",
				Help:    "Duration of complete limit checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
		),
	}
}

// observeCheck records one completed check. Nil-safe so the engine can run
// without metrics in tests.
func (m *Metrics) observeCheck(allowed bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.checks.WithLabelValues(result).Inc()
	m.checkDuration.Observe(d.Seconds())
}

func (m *Metrics) observeDenial(rateClass, unit string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(rateClass, unit).Inc()
}

func (m *Metrics) observeError(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}
