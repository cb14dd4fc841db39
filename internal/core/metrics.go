package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	importRowsTotal   *prometheus.CounterVec
	importsTotal      *prometheus.CounterVec
	importDuration    prometheus.Histogram
	observationsGauge prometheus.Gauge
	saveErrorsTotal   prometheus.Counter
	analysisTotal     *prometheus.CounterVec
}

// NewMetrics creates the service metrics and registers them with registry.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		importRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exotransit_import_rows_total",
				Help: "Total number of imported CSV rows by outcome",
			},
			[]string{"outcome"}, // outcome: accepted, failed
		),
		importsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exotransit_imports_total",
				Help: "Total number of import operations by status",
			},
			[]string{"status"}, // status: success, error, rejected
		),
		importDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "exotransit_import_duration_seconds",
				Help:    "Time taken to parse and merge an import",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
		observationsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "exotransit_observations",
				Help: "Number of observations in the collection",
			},
		),
		saveErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "exotransit_save_errors_total",
				Help: "Total number of failed collection saves",
			},
		),
		analysisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exotransit_analysis_requests_total",
				Help: "Total number of analysis requests by source and status",
			},
			[]string{"source", "status"}, // source: local, remote
		),
	}

	for _, c := range []prometheus.Collector{
		m.importRowsTotal,
		m.importsTotal,
		m.importDuration,
		m.observationsGauge,
		m.saveErrorsTotal,
		m.analysisTotal,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordImport records the outcome of one completed import.
func (m *Metrics) RecordImport(res ImportResult, d time.Duration) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues("success").Inc()
	m.importRowsTotal.WithLabelValues("accepted").Add(float64(len(res.Successful)))
	m.importRowsTotal.WithLabelValues("failed").Add(float64(len(res.Failed)))
	m.importDuration.Observe(d.Seconds())
}

// RecordImportError records an import that never reached parsing.
func (m *Metrics) RecordImportError(rejected bool) {
	if m == nil {
		return
	}
	status := "error"
	if rejected {
		status = "rejected"
	}
	m.importsTotal.WithLabelValues(status).Inc()
}

// SetObservations updates the collection size gauge.
func (m *Metrics) SetObservations(n int) {
	if m == nil {
		return
	}
	m.observationsGauge.Set(float64(n))
}

// RecordSaveError counts a failed best-effort save.
func (m *Metrics) RecordSaveError() {
	if m == nil {
		return
	}
	m.saveErrorsTotal.Inc()
}

// RecordAnalysis counts an analysis request.
func (m *Metrics) RecordAnalysis(source string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.analysisTotal.WithLabelValues(source, status).Inc()
}
