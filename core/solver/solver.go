// Package solver runs a built model on a milp.Engine and turns the engine's
// termination status into either a flat assignment or a SOLVE_FAILURE.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/rebalance/core/logger"
	"github.com/kilianp07/rebalance/core/milp"
	"github.com/kilianp07/rebalance/core/model"
)

// SolveError reports a non-successful termination. The engine status code is
// part of the message.
type SolveError struct {
	Status milp.Status
	Err    error
}

func (e *SolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solve failure: status %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("solve failure: status %s", e.Status)
}

// Unwrap lets errors.Is match model.ErrSolveFailure and the engine error.
func (e *SolveError) Unwrap() []error {
	if e.Err != nil {
		return []error{model.ErrSolveFailure, e.Err}
	}
	return []error{model.ErrSolveFailure}
}

// Assignment is the flat variable-value mapping, indexed by milp.Var.
type Assignment struct {
	Values    []float64
	Status    milp.Status
	Objective float64
	Nodes     int
	Elapsed   time.Duration
}

// Adapter wraps an engine with logging.
type Adapter struct {
	Logger logger.Logger
}

// Solve optimises the model held by engine. It never looks at variable
// meanings.
func (a Adapter) Solve(ctx context.Context, engine milp.Engine, timeLimit time.Duration) (Assignment, error) {
	if engine == nil {
		return Assignment{}, fmt.Errorf("solver: nil engine: %w", model.ErrConfiguration)
	}
	if timeLimit <= 0 {
		return Assignment{}, fmt.Errorf("solver: time limit must be positive, got %s: %w", timeLimit, model.ErrConfiguration)
	}
	start := time.Now()
	sol, err := engine.Solve(ctx, timeLimit)
	elapsed := time.Since(start)
	if err != nil {
		if a.Logger != nil {
			a.Logger.Errorf("engine error after %s: %v", elapsed, err)
		}
		return Assignment{Status: sol.Status, Elapsed: elapsed}, &SolveError{Status: sol.Status, Err: err}
	}
	if a.Logger != nil {
		a.Logger.Infof("solve finished: status=%s objective=%.6g nodes=%d elapsed=%s",
			sol.Status, sol.Objective, sol.Nodes, elapsed)
	}
	out := Assignment{Status: sol.Status, Objective: sol.Objective, Nodes: sol.Nodes, Elapsed: elapsed}
	if !sol.Status.HasSolution() {
		return out, &SolveError{Status: sol.Status}
	}
	if len(sol.Values) != engine.NumVars() {
		return out, &SolveError{Status: milp.StatusNumerical,
			Err: fmt.Errorf("engine returned %d values for %d variables", len(sol.Values), engine.NumVars())}
	}
	out.Values = sol.Values
	return out, nil
}

// Solve runs Adapter{}.Solve without logging.
func Solve(ctx context.Context, engine milp.Engine, timeLimit time.Duration) (Assignment, error) {
	return Adapter{}.Solve(ctx, engine, timeLimit)
}
