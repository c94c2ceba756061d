package metrics

import (
	"errors"
	"testing"
	"time"
)

type captureBackend struct {
	counters   map[string]float64
	histograms map[string][]float64
	flushed    int
}

func newCapture() *captureBackend {
	return &captureBackend{
		counters:   map[string]float64{},
		histograms: map[string][]float64{},
	}
}

func (c *captureBackend) key(name string, labels Labels) string {
	k := name
	for _, lk := range []string{"step", "status", "kind", "outcome"} {
		if v, ok := labels[lk]; ok {
			k += "|" + v
		}
	}
	return k
}

func (c *captureBackend) IncCounter(name string, delta float64, labels Labels) {
	c.counters[c.key(name, labels)] += delta
}

func (c *captureBackend) ObserveHistogram(name string, value float64, labels Labels) {
	k := c.key(name, labels)
	c.histograms[k] = append(c.histograms[k], value)
}

func (c *captureBackend) Flush() error {
	c.flushed++
	return nil
}

func withBackend(t *testing.T, b Backend) {
	t.Helper()
	prev := backend
	SetBackend(b)
	t.Cleanup(func() { backend = prev })
}

func TestRecordStep(t *testing.T) {
	c := newCapture()
	withBackend(t, c)

	RecordStep("decode", nil, 10*time.Millisecond)
	RecordStep("decode", errors.New("boom"), time.Millisecond)

	if got := c.counters["ingest_step_total|decode|success"]; got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := c.counters["ingest_step_total|decode|failure"]; got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
	if got := len(c.histograms["ingest_step_duration_seconds|decode|success"]); got != 1 {
		t.Errorf("duration observations = %d, want 1", got)
	}
}

func TestRecordRows(t *testing.T) {
	c := newCapture()
	withBackend(t, c)

	RecordRows("accepted", 5)
	RecordRows("accepted", 3)
	RecordRows("rejected", 0) // zero deltas are dropped

	if got := c.counters["ingest_records_total|accepted"]; got != 8 {
		t.Errorf("accepted = %v, want 8", got)
	}
	if _, ok := c.counters["ingest_records_total|rejected"]; ok {
		t.Error("zero delta must not touch the backend")
	}
}

func TestRecordFile(t *testing.T) {
	c := newCapture()
	withBackend(t, c)

	RecordFile("completed")
	RecordFile("completed")
	RecordFile("failed")

	if got := c.counters["ingest_files_total|completed"]; got != 2 {
		t.Errorf("completed = %v, want 2", got)
	}
}

func TestSetBackendNil(t *testing.T) {
	c := newCapture()
	withBackend(t, c)

	SetBackend(nil) // must keep the current backend
	RecordFile("completed")
	if got := c.counters["ingest_files_total|completed"]; got != 1 {
		t.Errorf("nil SetBackend replaced the backend")
	}
}

func TestNopBackendSafeByDefault(t *testing.T) {
	var nop nopBackend
	nop.IncCounter("x", 1, nil)
	nop.ObserveHistogram("x", 1, nil)
	if err := nop.Flush(); err != nil {
		t.Errorf("nop Flush = %v", err)
	}
}
