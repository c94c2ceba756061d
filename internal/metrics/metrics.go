// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the ingest pipeline.
//
// A global, pluggable backend defaults to a no-op implementation so metric
// calls are always safe even when nothing is configured. Concrete systems
// (Prometheus Pushgateway) live in subpackages, mirroring the storage
// factory pattern: the rest of the codebase depends only on this interface.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes collected metrics if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStep measures one pipeline stage execution: latency plus a
// success/failure counter. Typical steps: decode, reconcile, validate,
// persist.
func RecordStep(step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"step": step, "status": status}
	backend.IncCounter("ingest_step_total", 1, lbls)
	backend.ObserveHistogram("ingest_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a record-level counter for the given kind. Kinds
// mirror the run summary: "accepted", "rejected", "tokenize_errors",
// "inserted".
func RecordRows(kind string, n int64) {
	if n == 0 {
		return
	}
	backend.IncCounter("ingest_records_total", float64(n), Labels{"kind": kind})
}

// RecordFile counts one finished file by outcome ("completed", "failed",
// "skipped").
func RecordFile(outcome string) {
	backend.IncCounter("ingest_files_total", 1, Labels{"outcome": outcome})
}
