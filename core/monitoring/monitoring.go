// Package monitoring defines the error-reporting facade of the pipeline.
// The monitor is passed explicitly; there is no process-wide instance.
package monitoring

import (
	"time"

	"github.com/kilianp07/rebalance/core/model"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

// Report captures a failed pipeline stage with stage, kind and run_id tags.
// A nil monitor or error is ignored.
func Report(m Monitor, runID, stage string, err error) {
	if m == nil || err == nil {
		return
	}
	m.CaptureException(err, map[string]string{
		"stage":  stage,
		"kind":   model.Kind(err),
		"run_id": runID,
	})
}
