package plugins

import (
	"github.com/kilianp07/rebalance/config"
	"github.com/kilianp07/rebalance/core/milp"
	"github.com/kilianp07/rebalance/infra/logger"
	"github.com/kilianp07/rebalance/infra/lpsolve"

	// record stores and metric sinks register themselves on import
	_ "github.com/kilianp07/rebalance/infra/metrics"
	_ "github.com/kilianp07/rebalance/infra/records"
)

func init() {
	RegisterEngine("lpsolve", func(cfg config.SolverConfig, log logger.Logger) (milp.Engine, error) {
		return lpsolve.New(lpsolve.Options{
			IntegralityTol: cfg.IntegralityTol,
			MaxNodes:       cfg.MaxNodes,
			Logger:         log,
		}), nil
	})
}
