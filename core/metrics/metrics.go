package metrics

import (
	"context"
	"errors"
	"time"
)

// RunEvent summarises one pipeline run.
type RunEvent struct {
	RunID          string
	Status         string // solver status, or "ERROR" when a stage failed first
	ErrKind        string // model.Kind of the failure, empty on success
	Objective      float64
	Duration       time.Duration // wall time of the whole run
	SolveTime      time.Duration
	Nodes          int
	NumVars        int
	NumConstraints int
	Clusters       int
	Steps          int
	Time           time.Time
}

// StageEvent records how long one stage of a run took.
type StageEvent struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Err      error
	Time     time.Time
}

// MetricsSink records run summaries.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// StageRecorder records per-stage timings.
type StageRecorder interface {
	RecordStage(ev StageEvent) error
}

// Flusher is implemented by sinks that buffer or push metrics and must be
// flushed before the process exits.
type Flusher interface {
	Flush(ctx context.Context) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error     { return nil }
func (NopSink) RecordStage(StageEvent) error { return nil }
func (NopSink) Flush(context.Context) error  { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRun(ev))
	}
	return errors.Join(errs...)
}

// RecordStage forwards the event to sinks implementing StageRecorder.
func (m *MultiSink) RecordStage(ev StageEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(StageRecorder); ok {
			errs = append(errs, rec.RecordStage(ev))
		}
	}
	return errors.Join(errs...)
}

// Flush flushes sinks implementing Flusher.
func (m *MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			errs = append(errs, f.Flush(ctx))
		}
	}
	return errors.Join(errs...)
}
