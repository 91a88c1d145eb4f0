package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/rebalance/core/metrics"
)

// PromSink exposes run metrics as Prometheus collectors. Batch runs usually
// exit before a scrape, so the sink can push to a Pushgateway on Flush.
type PromSink struct {
	runs      *prometheus.CounterVec
	objective prometheus.Gauge
	solveTime prometheus.Histogram
	stageTime *prometheus.HistogramVec
	modelSize *prometheus.GaugeVec
	steps     prometheus.Gauge
	clusters  prometheus.Gauge
	nodes     prometheus.Gauge
	pusher    *push.Pusher
	lastRunID string
}

// PromConfig configures the optional Pushgateway.
type PromConfig struct {
	PushURL string `json:"push_url"`
	Job     string `json:"job"`
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rebalance_runs_total",
		Help: "Rebalancing runs by solver status and error kind",
	}, []string{"status", "error_kind"})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rebalance_objective",
		Help: "Marginal utility collected by the last solved run",
	})); err != nil {
		return nil, err
	}
	if s.solveTime, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rebalance_solve_duration_seconds",
		Help:    "Wall time spent in the MILP engine",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})); err != nil {
		return nil, err
	}
	if s.stageTime, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rebalance_stage_duration_seconds",
		Help:    "Wall time of each pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage", "failed"})); err != nil {
		return nil, err
	}
	if s.modelSize, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rebalance_model_size",
		Help: "Number of variables and constraints of the last model",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.steps, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rebalance_executed_steps",
		Help: "Transfer steps executed by the last plan",
	})); err != nil {
		return nil, err
	}
	if s.clusters, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rebalance_active_clusters",
		Help: "Clusters with at least one station in the last plan",
	})); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rebalance_search_nodes",
		Help: "Branch and bound nodes explored by the last solve",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPromSink builds a sink from cfg. With a push URL the collectors live in
// a private registry pushed on Flush; otherwise they join the default
// registry for scraping.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	if cfg.PushURL == "" {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	}
	if cfg.Job == "" {
		cfg.Job = "rebalance"
	}
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		return nil, err
	}
	s.pusher = push.New(cfg.PushURL, cfg.Job).Gatherer(reg)
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the run counters and last-run gauges.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Status, ev.ErrKind).Inc()
	s.lastRunID = ev.RunID
	if ev.ErrKind != "" {
		return nil
	}
	s.objective.Set(ev.Objective)
	s.solveTime.Observe(ev.SolveTime.Seconds())
	s.modelSize.WithLabelValues("variables").Set(float64(ev.NumVars))
	s.modelSize.WithLabelValues("constraints").Set(float64(ev.NumConstraints))
	s.steps.Set(float64(ev.Steps))
	s.clusters.Set(float64(ev.Clusters))
	s.nodes.Set(float64(ev.Nodes))
	return nil
}

// RecordStage observes the stage duration.
func (s *PromSink) RecordStage(ev coremetrics.StageEvent) error {
	failed := "false"
	if ev.Err != nil {
		failed = "true"
	}
	s.stageTime.WithLabelValues(ev.Stage, failed).Observe(ev.Duration.Seconds())
	return nil
}

// Flush pushes the registry to the Pushgateway when one is configured.
func (s *PromSink) Flush(ctx context.Context) error {
	if s.pusher == nil {
		return nil
	}
	p := s.pusher
	if s.lastRunID != "" {
		p = p.Grouping("run_id", s.lastRunID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
