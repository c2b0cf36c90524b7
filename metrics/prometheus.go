// Package metrics provides Prometheus metrics for the record storage engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "filecabinet"

// Metrics holds all Prometheus metrics.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	records           *prometheus.GaugeVec
	purgedTotal       prometheus.Counter
	rejectedTotal     prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "result"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),
		records: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "records",
				Help:      "Number of stored records by state",
			},
			[]string{"state"},
		),
		purgedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purged_records_total",
				Help:      "Total number of tombstoned records reclaimed by purge",
			},
		),
		rejectedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_records_total",
				Help:      "Total number of records rejected on restore",
			},
		),
	}
}

// RecordOperation records one finished operation.
func (m *Metrics) RecordOperation(operation, result string, duration time.Duration) {
	m.operationsTotal.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetRecords sets the live and deleted record gauges.
func (m *Metrics) SetRecords(live, deleted int) {
	m.records.WithLabelValues("live").Set(float64(live))
	m.records.WithLabelValues("deleted").Set(float64(deleted))
}

func (m *Metrics) AddPurged(n int) {
	m.purgedTotal.Add(float64(n))
}

func (m *Metrics) AddRejected(n int) {
	m.rejectedTotal.Add(float64(n))
}
