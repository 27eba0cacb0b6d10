// Package metrics exposes Prometheus collectors for exchange operations.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "settlement"

// Metrics holds the exchange collectors
type Metrics struct {
	fills        *prometheus.CounterVec
	cancels      *prometheus.CounterVec
	transactions *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// New registers the exchange collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		fills: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fills_total",
				Help:      "Order fills by result",
			},
			[]string{"result"},
		),
		cancels: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cancels_total",
				Help:      "Cancellations by kind and result",
			},
			[]string{"kind", "result"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Executed meta-transactions by result",
			},
			[]string{"result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Latency of exchange operations",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"operation"},
		),
	}
}

// Result labels an operation outcome
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) ObserveFill(err error) {
	if m == nil {
		return
	}
	m.fills.WithLabelValues(Result(err)).Inc()
}

func (m *Metrics) ObserveCancel(kind string, err error) {
	if m == nil {
		return
	}
	m.cancels.WithLabelValues(kind, Result(err)).Inc()
}

func (m *Metrics) ObserveTransaction(err error) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(Result(err)).Inc()
}

// ObserveDuration records the time since start for operation
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
