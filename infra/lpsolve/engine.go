// Package lpsolve is an in-process MILP engine. LP relaxations are solved
// by a bounded-variable simplex on gonum dense matrices, keeping variable
// bounds implicit; integer variables are handled by depth-first branch and
// bound. It is meant for
// small and medium instances and implements milp.Engine so a binding to an
// external solver can replace it without touching the model builder.
package lpsolve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/rebalance/core/logger"
	"github.com/kilianp07/rebalance/core/milp"
)

// Options tunes the search.
type Options struct {
	// Tol is the reduced-cost tolerance handed to the simplex.
	Tol float64
	// IntegralityTol is how far from an integer a value may be and still
	// count as integral.
	IntegralityTol float64
	// MaxNodes bounds the number of explored nodes; zero means unbounded.
	MaxNodes int
	Logger   logger.Logger
}

func (o *Options) setDefaults() {
	if o.Tol <= 0 {
		o.Tol = 1e-7
	}
	if o.IntegralityTol <= 0 {
		o.IntegralityTol = 1e-6
	}
}

type variable struct {
	name    string
	lower   float64
	upper   float64
	integer bool
}

type constraint struct {
	name  string
	terms []milp.Term
	sense milp.Sense
	rhs   float64
}

// Engine implements milp.Engine.
type Engine struct {
	vars     []variable
	cons     []constraint
	obj      []milp.Term
	objSense milp.ObjectiveSense
	opts     Options
}

var _ milp.Engine = (*Engine)(nil)

// New returns an empty engine.
func New(opts Options) *Engine {
	opts.setDefaults()
	return &Engine{opts: opts}
}

// AddBinary declares a {0,1} variable.
func (e *Engine) AddBinary(name string) milp.Var {
	e.vars = append(e.vars, variable{name: name, lower: 0, upper: 1, integer: true})
	return milp.Var(len(e.vars) - 1)
}

// AddContinuous declares a continuous variable. The lower bound must be
// finite; upper may be +Inf.
func (e *Engine) AddContinuous(name string, lower, upper float64) (milp.Var, error) {
	if math.IsNaN(lower) || math.IsInf(lower, 0) {
		return -1, fmt.Errorf("lpsolve: variable %s needs a finite lower bound", name)
	}
	if math.IsNaN(upper) || upper < lower {
		return -1, fmt.Errorf("lpsolve: variable %s has invalid bounds [%v,%v]", name, lower, upper)
	}
	e.vars = append(e.vars, variable{name: name, lower: lower, upper: upper})
	return milp.Var(len(e.vars) - 1), nil
}

// AddConstraint adds sum(terms) <sense> rhs.
func (e *Engine) AddConstraint(name string, terms []milp.Term, sense milp.Sense, rhs float64) error {
	if err := e.checkTerms(terms); err != nil {
		return fmt.Errorf("lpsolve: constraint %s: %w", name, err)
	}
	if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
		return fmt.Errorf("lpsolve: constraint %s has non-finite rhs", name)
	}
	e.cons = append(e.cons, constraint{name: name, terms: append([]milp.Term(nil), terms...), sense: sense, rhs: rhs})
	return nil
}

// SetObjective replaces the objective.
func (e *Engine) SetObjective(sense milp.ObjectiveSense, terms []milp.Term) error {
	if err := e.checkTerms(terms); err != nil {
		return fmt.Errorf("lpsolve: objective: %w", err)
	}
	e.objSense = sense
	e.obj = append([]milp.Term(nil), terms...)
	return nil
}

func (e *Engine) checkTerms(terms []milp.Term) error {
	for _, t := range terms {
		if int(t.Var) < 0 || int(t.Var) >= len(e.vars) {
			return fmt.Errorf("unknown variable %d", t.Var)
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return fmt.Errorf("non-finite coefficient on %s", e.vars[t.Var].name)
		}
	}
	return nil
}

// NumVars returns the number of declared variables.
func (e *Engine) NumVars() int { return len(e.vars) }

// NumConstraints returns the number of declared constraints.
func (e *Engine) NumConstraints() int { return len(e.cons) }

// Solve runs branch and bound until the tree is exhausted, the node budget is
// spent or timeLimit expires. A relaxation still running at the deadline is
// abandoned, so Solve returns shortly after timeLimit.
func (e *Engine) Solve(ctx context.Context, timeLimit time.Duration) (milp.Solution, error) {
	start := time.Now()
	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}
	if len(e.vars) == 0 {
		return e.solveEmpty(start), nil
	}
	rel, ok := e.relaxation()
	if !ok {
		return milp.Solution{Status: milp.StatusInfeasible, Elapsed: time.Since(start)}, nil
	}
	sol := e.branchAndBound(ctx, rel)
	sol.Elapsed = time.Since(start)
	if e.opts.Logger != nil {
		e.opts.Logger.Debugw("branch and bound finished", map[string]any{
			"status":    sol.Status.String(),
			"nodes":     sol.Nodes,
			"objective": sol.Objective,
			"elapsed":   sol.Elapsed.String(),
		})
	}
	return sol, nil
}

// solveEmpty handles a model without variables: only constant constraints
// can be checked.
func (e *Engine) solveEmpty(start time.Time) milp.Solution {
	for _, c := range e.cons {
		if !constantHolds(c) {
			return milp.Solution{Status: milp.StatusInfeasible, Elapsed: time.Since(start)}
		}
	}
	return milp.Solution{Status: milp.StatusOptimal, Values: []float64{}, Elapsed: time.Since(start)}
}

func constantHolds(c constraint) bool {
	switch c.sense {
	case milp.LessEqual:
		return 0 <= c.rhs
	case milp.GreaterEqual:
		return 0 >= c.rhs
	default:
		return c.rhs == 0
	}
}

// ErrNoIncumbent is reported in logs when the search stops without any
// integer-feasible point.
var ErrNoIncumbent = errors.New("lpsolve: no incumbent")
