// Package plugins holds the MILP engine registry and pulls in the built-in
// record stores and metric sinks.
package plugins

import (
	"fmt"
	"sort"

	"github.com/kilianp07/rebalance/config"
	"github.com/kilianp07/rebalance/core/milp"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/infra/logger"
)

// EngineFactory builds an empty engine for one run.
type EngineFactory func(cfg config.SolverConfig, log logger.Logger) (milp.Engine, error)

var Engines = map[string]EngineFactory{}

func RegisterEngine(name string, f EngineFactory) { Engines[name] = f }

// EngineNames returns the registered engine names, sorted.
func EngineNames() []string {
	out := make([]string, 0, len(Engines))
	for n := range Engines {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NewEngine builds the engine named by cfg.Engine.
func NewEngine(cfg config.SolverConfig, log logger.Logger) (milp.Engine, error) {
	f, ok := Engines[cfg.Engine]
	if !ok {
		return nil, fmt.Errorf("%w: unknown solver engine %q (known: %v)", model.ErrConfiguration, cfg.Engine, EngineNames())
	}
	return f(cfg, log)
}
