package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/rebalance/config"
	coremon "github.com/kilianp07/rebalance/core/monitoring"
)

func TestNewSentryMonitor_NoDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestNewSentryMonitor_BadDSN(t *testing.T) {
	if _, err := NewSentryMonitor(config.SentryConfig{DSN: "::not a dsn"}); err == nil {
		t.Fatal("expected DSN parse error")
	}
}

func TestSentryMonitor_CaptureTags(t *testing.T) {
	var mu sync.Mutex
	var events []*sentry.Event
	m, err := newSentryMonitor(config.SentryConfig{DSN: "https://public@example.com/1", Environment: "test"},
		func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
			return nil
		})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	coremon.Report(m, "run-9", "solve", errors.New("status INFEASIBLE"))
	m.Flush(time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Tags["stage"] != "solve" || events[0].Tags["run_id"] != "run-9" {
		t.Fatalf("unexpected tags %v", events[0].Tags)
	}
}
