package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/rebalance/core/model"
)

// SolverConfig tunes the MILP engine.
type SolverConfig struct {
	// Engine names a registered MILP engine.
	Engine string `json:"engine"`
	// TimeLimit is the wall-clock budget in seconds.
	TimeLimit      float64 `json:"time_limit"`
	IntegralityTol float64 `json:"integrality_tol"`
	// MaxNodes caps branch and bound; zero means unlimited.
	MaxNodes int `json:"max_nodes"`
	// StrictUtility turns an increasing marginal-utility curve into an
	// error instead of a warning.
	StrictUtility bool `json:"strict_utility"`
}

func (c *SolverConfig) SetDefaults() {
	if c.Engine == "" {
		c.Engine = "lpsolve"
	}
	if c.TimeLimit == 0 {
		c.TimeLimit = 60
	}
	if c.IntegralityTol == 0 {
		c.IntegralityTol = 1e-6
	}
}

func (c SolverConfig) Validate() error {
	if c.TimeLimit <= 0 {
		return fmt.Errorf("%w: solver.time_limit must be positive", model.ErrConfiguration)
	}
	if c.IntegralityTol < 0 || c.IntegralityTol >= 0.5 {
		return fmt.Errorf("%w: solver.integrality_tol must be in [0,0.5)", model.ErrConfiguration)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("%w: solver.max_nodes must be non-negative", model.ErrConfiguration)
	}
	return nil
}

// Limit returns TimeLimit as a duration.
func (c SolverConfig) Limit() time.Duration {
	return time.Duration(c.TimeLimit * float64(time.Second))
}
