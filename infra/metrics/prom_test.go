package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/rebalance/core/metrics"
)

func TestPromSink_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	ev := coremetrics.RunEvent{
		RunID: "r1", Status: "OPTIMAL", Objective: 8, SolveTime: 200 * time.Millisecond,
		NumVars: 7, NumConstraints: 11, Clusters: 1, Steps: 2, Nodes: 3,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(sink.runs.WithLabelValues("OPTIMAL", "")); got != 1 {
		t.Fatalf("runs = %v", got)
	}
	if got := testutil.ToFloat64(sink.objective); got != 8 {
		t.Fatalf("objective = %v", got)
	}
	if got := testutil.ToFloat64(sink.modelSize.WithLabelValues("constraints")); got != 11 {
		t.Fatalf("constraints = %v", got)
	}
	if got := testutil.ToFloat64(sink.steps); got != 2 {
		t.Fatalf("steps = %v", got)
	}

	failed := coremetrics.RunEvent{RunID: "r2", Status: "ERROR", ErrKind: "configuration"}
	_ = sink.RecordRun(failed)
	if got := testutil.ToFloat64(sink.runs.WithLabelValues("ERROR", "configuration")); got != 1 {
		t.Fatalf("failed runs = %v", got)
	}
	if got := testutil.ToFloat64(sink.objective); got != 8 {
		t.Fatal("failed run must not reset the objective gauge")
	}
}

func TestPromSink_RecordStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	_ = sink.RecordStage(coremetrics.StageEvent{Stage: "solve", Duration: time.Second})
	_ = sink.RecordStage(coremetrics.StageEvent{Stage: "derive", Err: errors.New("x")})
	if n := testutil.CollectAndCount(sink.stageTime); n != 2 {
		t.Fatalf("expected 2 stage series, got %d", n)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	_ = first.RecordRun(coremetrics.RunEvent{Status: "OPTIMAL"})
	_ = second.RecordRun(coremetrics.RunEvent{Status: "OPTIMAL"})
	if got := testutil.ToFloat64(first.runs.WithLabelValues("OPTIMAL", "")); got != 2 {
		t.Fatalf("expected shared counter, got %v", got)
	}
}

func TestPromSink_FlushPushes(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewPromSink(PromConfig{PushURL: srv.URL, Job: "nightly"})
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	_ = sink.RecordRun(coremetrics.RunEvent{RunID: "abc", Status: "OPTIMAL"})
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got, _ := path.Load().(string)
	if !strings.Contains(got, "/job/nightly") || !strings.Contains(got, "/run_id/abc") {
		t.Fatalf("unexpected push path %q", got)
	}
}

func TestPromSink_FlushWithoutGateway(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
}
