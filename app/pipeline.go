// Package app wires ingestion, derivation, the model builder, the solver
// and the decoder into one rebalancing run.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rebalance/app/plugins"
	"github.com/kilianp07/rebalance/config"
	"github.com/kilianp07/rebalance/core/decode"
	"github.com/kilianp07/rebalance/core/formulation"
	coremetrics "github.com/kilianp07/rebalance/core/metrics"
	"github.com/kilianp07/rebalance/core/milp"
	"github.com/kilianp07/rebalance/core/model"
	coremon "github.com/kilianp07/rebalance/core/monitoring"
	coremqtt "github.com/kilianp07/rebalance/core/mqtt"
	"github.com/kilianp07/rebalance/core/params"
	"github.com/kilianp07/rebalance/core/records"
	"github.com/kilianp07/rebalance/core/solver"
	"github.com/kilianp07/rebalance/infra/ingest"
	"github.com/kilianp07/rebalance/infra/logger"
	"github.com/kilianp07/rebalance/infra/mqtt"
	"github.com/kilianp07/rebalance/pkg/export"
)

// Stage names used in logs, metrics and error reports.
const (
	StageLoad    = "load"
	StageDerive  = "derive"
	StageBuild   = "build"
	StageSolve   = "solve"
	StageDecode  = "decode"
	StageVerify  = "verify"
	StagePersist = "persist"
	StageExport  = "export"
	StagePublish = "publish"
)

// Pipeline runs the rebalancing model end to end. A Pipeline may run
// several times; each run gets its own engine.
type Pipeline struct {
	cfg       *config.Config
	newEngine plugins.EngineFactory
	tables    *ingest.Tables
	store     records.Store
	sink      coremetrics.MetricsSink
	publisher coremqtt.PlanPublisher
	log       logger.Logger
	monitor   coremon.Monitor
}

// Option customises a Pipeline.
type Option func(*Pipeline)

func WithEngineFactory(f plugins.EngineFactory) Option { return func(p *Pipeline) { p.newEngine = f } }

// WithTables skips file ingestion and uses t for every run.
func WithTables(t *ingest.Tables) Option { return func(p *Pipeline) { p.tables = t } }
func WithStore(s records.Store) Option { return func(p *Pipeline) { p.store = s } }
func WithSink(s coremetrics.MetricsSink) Option { return func(p *Pipeline) { p.sink = s } }
func WithPublisher(pub coremqtt.PlanPublisher) Option { return func(p *Pipeline) { p.publisher = pub } }
func WithLogger(l logger.Logger) Option { return func(p *Pipeline) { p.log = l } }
func WithMonitor(m coremon.Monitor) Option { return func(p *Pipeline) { p.monitor = m } }

// New builds a Pipeline from cfg. Collaborators not supplied through
// options are created from the configuration.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", model.ErrConfiguration)
	}
	p := &Pipeline{cfg: cfg}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = logger.New("pipeline")
	}
	if p.monitor == nil {
		p.monitor = coremon.NopMonitor{}
	}
	if p.newEngine == nil {
		p.newEngine = plugins.NewEngine
	}
	if p.store == nil {
		s, err := records.NewStore(cfg.Output.Records)
		if err != nil {
			return nil, fmt.Errorf("record store: %w", err)
		}
		p.store = s
	}
	if p.sink == nil {
		s, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		p.sink = s
	}
	if p.publisher == nil {
		pub, err := mqtt.NewPublisher(cfg.MQTT, logger.New("mqtt_publisher"), p.monitor)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		p.publisher = pub
	}
	return p, nil
}

// Run executes one run with a fresh run id.
func (p *Pipeline) Run(ctx context.Context) (*decode.Result, error) {
	return p.RunWithID(ctx, uuid.NewString())
}

// Prepare loads the inputs and derives the instance without building or
// solving a model.
func (p *Pipeline) Prepare(ctx context.Context, runID string) (*params.Instance, error) {
	var tables *ingest.Tables
	if err := p.stage(ctx, runID, StageLoad, func() (err error) {
		tables, err = p.load()
		return err
	}); err != nil {
		return nil, err
	}
	var inst *params.Instance
	err := p.stage(ctx, runID, StageDerive, func() (err error) {
		inst, err = params.Derive(p.cfg.Network, tables.Stations, tables.Travel, tables.Utility,
			params.Options{StrictUtility: p.cfg.Solver.StrictUtility})
		if err != nil {
			return err
		}
		if !p.cfg.Solver.StrictUtility {
			if uerr := params.ValidateUtility(inst); uerr != nil {
				p.log.Warnf("marginal utility is not diminishing: %v", uerr)
			}
		}
		p.log.Infof("derived instance: %d stations (%d surplus, %d deficit), %d clusters, %d pairs, %d ignored utility rows",
			len(inst.V), len(inst.VPlus), len(inst.VMinus), len(inst.C), len(inst.Pairs()), inst.IgnoredRows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// RunWithID executes load, derive, build, solve, decode, verify, persist,
// export and publish. Publication failures are logged and reported but do
// not fail the run.
func (p *Pipeline) RunWithID(ctx context.Context, runID string) (res *decode.Result, err error) {
	start := time.Now()
	ev := coremetrics.RunEvent{RunID: runID, Status: "ERROR"}
	defer func() {
		ev.Duration = time.Since(start)
		ev.Time = time.Now()
		ev.ErrKind = model.Kind(err)
		if rerr := p.sink.RecordRun(ev); rerr != nil {
			p.log.Warnf("record run metrics: %v", rerr)
		}
	}()
	p.log.Infof("run %s started", runID)

	inst, err := p.Prepare(ctx, runID)
	if err != nil {
		return nil, err
	}

	var (
		engine milp.Engine
		f      *formulation.Formulation
	)
	if err = p.stage(ctx, runID, StageBuild, func() (err error) {
		if engine, err = p.newEngine(p.cfg.Solver, p.log); err != nil {
			return err
		}
		f, err = formulation.Build(engine, inst)
		return err
	}); err != nil {
		return nil, err
	}
	ev.NumVars = engine.NumVars()
	ev.NumConstraints = engine.NumConstraints()
	p.log.Debugw("model built", map[string]any{
		"run_id":      runID,
		"binary":      f.Stats.Binary,
		"continuous":  f.Stats.Continuous,
		"constraints": f.Stats.Constraints,
		"pairs":       f.Stats.Pairs,
	})

	var asg solver.Assignment
	err = p.stage(ctx, runID, StageSolve, func() (err error) {
		asg, err = solver.Adapter{Logger: p.log}.Solve(ctx, engine, p.cfg.Solver.Limit())
		return err
	})
	ev.Status = asg.Status.String()
	ev.SolveTime = asg.Elapsed
	ev.Nodes = asg.Nodes
	if err != nil {
		return nil, err
	}
	if asg.Status != milp.StatusOptimal {
		p.log.Warnf("run %s: solution not proven optimal (%s), returning best incumbent", runID, asg.Status)
	}

	if err = p.stage(ctx, runID, StageDecode, func() (err error) {
		res, err = decode.Decode(f, asg.Values)
		return err
	}); err != nil {
		return nil, err
	}
	ev.Objective = res.Total
	ev.Clusters = len(res.Clusters)
	ev.Steps = res.Steps()

	if err = p.stage(ctx, runID, StageVerify, func() error {
		return decode.Verify(inst, res)
	}); err != nil {
		return nil, err
	}
	if err = p.stage(ctx, runID, StagePersist, func() error {
		return decode.Persist(ctx, p.store, runID, res)
	}); err != nil {
		return nil, err
	}
	if path := p.cfg.Output.PlanPath; path != "" {
		if err = p.stage(ctx, runID, StageExport, func() error {
			return export.WriteFile(path, p.cfg.Output.PlanFormat, res.Moves)
		}); err != nil {
			return nil, err
		}
	}
	if perr := p.stage(ctx, runID, StagePublish, func() error {
		return p.publish(ctx, runID, res)
	}); perr != nil {
		p.log.Warnf("run %s: %v", runID, perr)
	}

	p.log.Infof("run %s finished: status=%s total=%.4g clusters=%d steps=%d in %s",
		runID, asg.Status, res.Total, len(res.Clusters), res.Steps(), time.Since(start))
	return res, nil
}

func (p *Pipeline) load() (*ingest.Tables, error) {
	if p.tables != nil {
		return p.tables, nil
	}
	return ingest.LoadFiles(p.cfg.Data.Paths(), p.cfg.Data.Columns.WithDefaults())
}

func (p *Pipeline) publish(ctx context.Context, runID string, res *decode.Result) error {
	var errs []error
	for _, plan := range coremqtt.Plans(runID, res, time.Now()) {
		if err := p.publisher.PublishPlan(ctx, plan); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// stage runs fn, records its duration and reports a failure to the monitor.
// The returned error is prefixed with the stage name.
func (p *Pipeline) stage(ctx context.Context, runID, name string, fn func() error) error {
	if err := ctx.Err(); err != nil && name != StageSolve {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := time.Now()
	err := fn()
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	if rec, ok := p.sink.(coremetrics.StageRecorder); ok {
		if rerr := rec.RecordStage(coremetrics.StageEvent{
			RunID: runID, Stage: name, Duration: time.Since(start), Err: err, Time: time.Now(),
		}); rerr != nil {
			p.log.Warnf("record stage metrics: %v", rerr)
		}
	}
	if err != nil {
		p.log.Errorf("run %s: %v", runID, err)
		coremon.Report(p.monitor, runID, name, err)
	}
	return err
}

// Close flushes the metric sink and releases the store and publisher.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	if fl, ok := p.sink.(coremetrics.Flusher); ok {
		errs = append(errs, fl.Flush(ctx))
	}
	if p.store != nil {
		errs = append(errs, p.store.Close())
	}
	if d, ok := p.publisher.(interface{ Disconnect() }); ok {
		d.Disconnect()
	}
	p.monitor.Flush(2 * time.Second)
	return errors.Join(errs...)
}
