// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. Batch ingests are short-lived processes, so pushing at
// the end of the run fits better than exposing a scrape endpoint. All
// Prometheus-specific dependencies stay contained here.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/Rohit-Borah/NHP-API/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // ingest_step_total
	stepDuration *prometheus.SummaryVec // ingest_step_duration_seconds
	rowCounter   *prometheus.CounterVec // ingest_records_total
	fileCounter  *prometheus.CounterVec // ingest_files_total
}

// NewBackend constructs a Pushgateway backend. jobName is the Pushgateway
// "job" grouping key; gatewayURL the base URL of the gateway.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "rtdas_ingest"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_step_total",
			Help: "Pipeline stage executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "ingest_step_duration_seconds",
			Help:       "Duration of pipeline stages in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_total",
			Help: "Record-level counts per kind (accepted, rejected, tokenize_errors, inserted).",
		},
		[]string{"kind"},
	)
	fileCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_files_total",
			Help: "Finished files per outcome (completed, failed, skipped).",
		},
		[]string{"outcome"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, rowCounter, fileCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register: %w", err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
		fileCounter:  fileCounter,
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "ingest_step_total":
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case "ingest_records_total":
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case "ingest_files_total":
		b.fileCounter.WithLabelValues(labels["outcome"]).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name == "ingest_step_duration_seconds" {
		b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
	}
}

// Flush pushes all collected metrics to the gateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push()
}
