// Package records defines the flat (variable, value) audit trail written for
// every solved run.
package records

import (
	"context"
	"time"
)

// Record is one decision variable of one run.
type Record struct {
	RunID     string    `json:"run_id"`
	Variable  string    `json:"variable"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Query filters stored records. Zero fields match everything.
type Query struct {
	RunID  string
	Prefix string // variable name prefix, e.g. "x["
	Start  time.Time
	End    time.Time
}

// Match reports whether r passes q.
func (q Query) Match(r Record) bool {
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Prefix != "" && (len(r.Variable) < len(q.Prefix) || r.Variable[:len(q.Prefix)] != q.Prefix) {
		return false
	}
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return true
}

// Store persists records and supports querying them back.
type Store interface {
	Append(ctx context.Context, recs ...Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// MemoryStore keeps records in memory. It is used by tests and by
// dry runs.
type MemoryStore struct {
	recs []Record
}

func (m *MemoryStore) Append(_ context.Context, recs ...Record) error {
	m.recs = append(m.recs, recs...)
	return nil
}

func (m *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	var out []Record
	for _, r := range m.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
