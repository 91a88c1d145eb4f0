package scenarios

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/rebalance/app"
	"github.com/kilianp07/rebalance/config"
	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
	coremqtt "github.com/kilianp07/rebalance/core/mqtt"
	"github.com/kilianp07/rebalance/core/records"
	"github.com/kilianp07/rebalance/infra/logger"
	"github.com/kilianp07/rebalance/infra/metrics"
)

const tolerance = 1e-6

// RunScenario runs sc through the full pipeline with in-memory outputs and
// checks the expectations. It returns the registry the run metrics went to.
func RunScenario(t *testing.T, sc *Scenario) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	tables, err := sc.Tables()
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	cfg := &config.Config{
		Network: sc.NetworkConfig(),
		Output:  config.OutputConfig{Records: factory.ModuleConfig{Type: "memory"}},
	}
	cfg.SetDefaults()

	store := &records.MemoryStore{}
	pipe, err := app.New(cfg,
		app.WithTables(tables),
		app.WithStore(store),
		app.WithSink(sink),
		app.WithPublisher(coremqtt.NopPublisher{}),
		app.WithLogger(logger.NopLogger{}),
	)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	res, err := pipe.RunWithID(context.Background(), sc.Name)
	if sc.Expected.Error != "" {
		if got := model.Kind(err); got != sc.Expected.Error {
			t.Fatalf("scenario %s expected %s error, got %v", sc.Name, sc.Expected.Error, err)
		}
		return reg
	}
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}

	if d := res.Total - sc.Expected.Objective; d > tolerance || d < -tolerance {
		t.Errorf("scenario %s expected objective %v, got %v", sc.Name, sc.Expected.Objective, res.Total)
	}
	steps := make(map[[2]int]int)
	for _, mv := range res.Moves {
		steps[[2]int{mv.Origin, mv.Dest}] += mv.Steps
	}
	for _, want := range sc.Expected.Transfers {
		if got := steps[[2]int{want.Origin, want.Dest}]; got != want.Steps {
			t.Errorf("scenario %s pair (%d,%d): expected %d steps, got %d", sc.Name, want.Origin, want.Dest, want.Steps, got)
		}
	}
	recs, err := store.Query(context.Background(), records.Query{RunID: sc.Name, Prefix: "x["})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, pair := range sc.Expected.Absent {
		prefix := fmt.Sprintf("x[%d,%d,", pair[0], pair[1])
		for _, r := range recs {
			if strings.HasPrefix(r.Variable, prefix) {
				t.Errorf("scenario %s: unexpected variable %s", sc.Name, r.Variable)
			}
		}
	}
	return reg
}
