package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rebalance/config"
	"github.com/kilianp07/rebalance/core/factory"
	coremetrics "github.com/kilianp07/rebalance/core/metrics"
	"github.com/kilianp07/rebalance/core/milp"
	"github.com/kilianp07/rebalance/core/model"
	coremqtt "github.com/kilianp07/rebalance/core/mqtt"
	"github.com/kilianp07/rebalance/core/records"
	"github.com/kilianp07/rebalance/infra/ingest"
	"github.com/kilianp07/rebalance/infra/logger"
	"github.com/kilianp07/rebalance/infra/lpsolve"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Network: model.NetworkConfig{NetworkSize: 4, NumClusters: 1, TLoad: 1, TimeBudget: 100},
		Data:    config.DataConfig{StationDataPath: "unused", TravelTimesPath: "unused", DeltaMarginalPath: "unused"},
		Output: config.OutputConfig{
			Records:    factory.ModuleConfig{Type: "memory"},
			PlanPath:   filepath.Join(t.TempDir(), "plan.json"),
			PlanFormat: "json",
		},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func testTables(t *testing.T) *ingest.Tables {
	t.Helper()
	tt, err := model.NewTravelTimes(4, []float64{
		0, 1, 1, 1,
		1, 0, 1, 1,
		1, 1, 0, 1,
		1, 1, 1, 0,
	})
	require.NoError(t, err)
	return &ingest.Tables{
		Stations: []model.Station{
			{SourceID: 1, Current: 10, Target: 4},
			{SourceID: 2, Current: 2, Target: 8},
			{SourceID: 3, Current: 5, Target: 5},
			{SourceID: 4, Current: 5, Target: 5},
		},
		Travel: tt,
		Utility: []model.UtilityRow{
			{Origin: 1, Dest: 2, Step: 1, Delta: 5},
			{Origin: 1, Dest: 2, Step: 2, Delta: 3},
		},
	}
}

type recordingSink struct {
	mu     sync.Mutex
	runs   []coremetrics.RunEvent
	stages []coremetrics.StageEvent
}

func (s *recordingSink) RecordRun(ev coremetrics.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, ev)
	return nil
}

func (s *recordingSink) RecordStage(ev coremetrics.StageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, ev)
	return nil
}

func (s *recordingSink) stageNames() []string {
	out := make([]string, len(s.stages))
	for i, ev := range s.stages {
		out[i] = ev.Stage
	}
	return out
}

type recordingPublisher struct {
	plans []coremqtt.ClusterPlan
	err   error
}

func (p *recordingPublisher) PublishPlan(_ context.Context, plan coremqtt.ClusterPlan) error {
	p.plans = append(p.plans, plan)
	return p.err
}

type captureMonitor struct {
	tags []map[string]string
}

func (m *captureMonitor) CaptureException(_ error, tags map[string]string) {
	m.tags = append(m.tags, tags)
}
func (m *captureMonitor) Recover()            {}
func (m *captureMonitor) Flush(time.Duration) {}

type harness struct {
	pipe  *Pipeline
	store *records.MemoryStore
	sink  *recordingSink
	pub   *recordingPublisher
	mon   *captureMonitor
}

func newHarness(t *testing.T, cfg *config.Config, opts ...Option) harness {
	t.Helper()
	h := harness{
		store: &records.MemoryStore{},
		sink:  &recordingSink{},
		pub:   &recordingPublisher{},
		mon:   &captureMonitor{},
	}
	base := []Option{
		WithTables(testTables(t)),
		WithStore(h.store),
		WithSink(h.sink),
		WithPublisher(h.pub),
		WithLogger(logger.NopLogger{}),
		WithMonitor(h.mon),
	}
	p, err := New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	h.pipe = p
	return h
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, cfg)

	res, err := h.pipe.RunWithID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.InDelta(t, 8, res.Total, 1e-9)
	assert.Equal(t, 2, res.Steps())

	recs, err := h.store.Query(context.Background(), records.Query{RunID: "run-1"})
	require.NoError(t, err)
	assert.Len(t, recs, len(res.Records))

	assert.Equal(t, []string{StageLoad, StageDerive, StageBuild, StageSolve, StageDecode,
		StageVerify, StagePersist, StageExport, StagePublish}, h.sink.stageNames())
	require.Len(t, h.sink.runs, 1)
	run := h.sink.runs[0]
	assert.Equal(t, "OPTIMAL", run.Status)
	assert.Empty(t, run.ErrKind)
	assert.InDelta(t, 8, run.Objective, 1e-9)
	assert.Equal(t, 1, run.Clusters)
	assert.Positive(t, run.NumVars)

	require.Len(t, h.pub.plans, 1)
	assert.Equal(t, "run-1", h.pub.plans[0].RunID)
	assert.Len(t, h.pub.plans[0].Moves, 1)

	data, err := os.ReadFile(cfg.Output.PlanPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"destination": 2`)
	assert.Empty(t, h.mon.tags)
}

func TestPipelineRunGeneratesRunID(t *testing.T) {
	h := newHarness(t, testConfig(t))
	_, err := h.pipe.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, h.sink.runs, 1)
	assert.Len(t, h.sink.runs[0].RunID, 36)
}

func TestPipelineDeriveFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network.NetworkSize = 10
	h := newHarness(t, cfg)

	_, err := h.pipe.RunWithID(context.Background(), "run-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	require.Len(t, h.mon.tags, 1)
	assert.Equal(t, StageDerive, h.mon.tags[0]["stage"])
	assert.Equal(t, "configuration", h.mon.tags[0]["kind"])
	require.Len(t, h.sink.runs, 1)
	assert.Equal(t, "ERROR", h.sink.runs[0].Status)
	assert.Equal(t, "configuration", h.sink.runs[0].ErrKind)
	assert.Empty(t, h.pub.plans)
}

type infeasibleEngine struct{ *lpsolve.Engine }

func (infeasibleEngine) Solve(context.Context, time.Duration) (milp.Solution, error) {
	return milp.Solution{Status: milp.StatusInfeasible}, nil
}

func TestPipelineSolveFailure(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, cfg, WithEngineFactory(func(config.SolverConfig, logger.Logger) (milp.Engine, error) {
		return infeasibleEngine{lpsolve.New(lpsolve.Options{})}, nil
	}))

	_, err := h.pipe.RunWithID(context.Background(), "run-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSolveFailure)
	assert.Equal(t, "INFEASIBLE", h.sink.runs[0].Status)
	assert.Equal(t, "solve_failure", h.sink.runs[0].ErrKind)
	assert.Equal(t, StageSolve, h.mon.tags[0]["stage"])
	recs, _ := h.store.Query(context.Background(), records.Query{})
	assert.Empty(t, recs)
}

func TestPipelineEngineFactoryError(t *testing.T) {
	h := newHarness(t, testConfig(t), WithEngineFactory(func(config.SolverConfig, logger.Logger) (milp.Engine, error) {
		return nil, errors.New("license expired")
	}))
	_, err := h.pipe.RunWithID(context.Background(), "run-4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build: license expired")
	assert.Equal(t, "internal", h.mon.tags[0]["kind"])
}

func TestPipelinePublishFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, testConfig(t))
	h.pub.err = coremqtt.ErrPublish

	res, err := h.pipe.RunWithID(context.Background(), "run-5")
	require.NoError(t, err)
	assert.NotNil(t, res)
	require.Len(t, h.mon.tags, 1)
	assert.Equal(t, StagePublish, h.mon.tags[0]["stage"])
	assert.Empty(t, h.sink.runs[0].ErrKind)
}

func TestPipelineCancelled(t *testing.T) {
	h := newHarness(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.pipe.RunWithID(ctx, "run-6")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelinePrepare(t *testing.T) {
	h := newHarness(t, testConfig(t))
	inst, err := h.pipe.Prepare(context.Background(), "dry")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, inst.VPlus)
	assert.Equal(t, []int{2}, inst.VMinus)
	assert.Equal(t, []string{StageLoad, StageDerive}, h.sink.stageNames())
}

func TestNewFromConfig(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, WithTables(testTables(t)), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	assert.IsType(t, coremqtt.NopPublisher{}, p.publisher)
	assert.IsType(t, coremetrics.NopSink{}, p.sink)

	_, err = p.RunWithID(context.Background(), "cfg")
	require.NoError(t, err)
	assert.NoError(t, p.Close(context.Background()))
}

func TestNewUnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Records = factory.ModuleConfig{Type: "parquet"}
	_, err := New(cfg, WithLogger(logger.NopLogger{}))
	assert.ErrorIs(t, err, factory.ErrUnknownType)
}

func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
