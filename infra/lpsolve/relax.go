package lpsolve

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/rebalance/core/milp"
)

type row struct {
	terms []milp.Term // one term per variable
	sense milp.Sense
	rhs   float64
}

// relaxation is the model with integrality dropped and a minimisation
// objective c. Variable bounds are not rows: each node hands its own bounds
// to the simplex, which keeps them implicit.
type relaxation struct {
	c    []float64
	rows []row
	// bounded is set when every variable has a finite upper bound, so no
	// relaxation can be unbounded.
	bounded bool
}

func (e *Engine) relaxation() (*relaxation, bool) {
	r := &relaxation{c: make([]float64, len(e.vars)), bounded: true}
	for _, c := range e.cons {
		if len(c.terms) == 0 {
			if !constantHolds(c) {
				return nil, false
			}
			continue
		}
		r.rows = append(r.rows, row{terms: mergeTerms(c.terms), sense: c.sense, rhs: c.rhs})
	}
	for _, v := range e.vars {
		if math.IsInf(v.upper, 1) {
			r.bounded = false
		}
	}
	sign := 1.0
	if e.objSense == milp.Maximize {
		sign = -1
	}
	for _, t := range e.obj {
		r.c[t.Var] += sign * t.Coef
	}
	return r, true
}

func mergeTerms(terms []milp.Term) []milp.Term {
	at := make(map[milp.Var]int, len(terms))
	out := make([]milp.Term, 0, len(terms))
	for _, t := range terms {
		if k, ok := at[t.Var]; ok {
			out[k].Coef += t.Coef
			continue
		}
		at[t.Var] = len(out)
		out = append(out, t)
	}
	return out
}

// lpSolve points to the function used to solve relaxations. It can be
// overridden in tests to simulate slow or failing relaxations.
var lpSolve = solveRelaxation

type relaxOutcome int

const (
	relaxOK relaxOutcome = iota
	relaxInfeasible
	relaxUnbounded
	relaxNumerical
)

func classify(err error) relaxOutcome {
	switch {
	case err == nil:
		return relaxOK
	case errors.Is(err, lp.ErrInfeasible):
		return relaxInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return relaxUnbounded
	default:
		return relaxNumerical
	}
}

type relaxResult struct {
	f   float64
	x   []float64
	err error
}

// relax solves the relaxation of nd under ctx. A relaxation that outlives the
// deadline is abandoned; it watches ctx too and stops at its next check.
func (e *Engine) relax(ctx context.Context, rel *relaxation, nd node) (float64, []float64, error) {
	solve := lpSolve
	done := make(chan relaxResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- relaxResult{err: fmt.Errorf("lpsolve: relaxation panicked: %v", p)}
			}
		}()
		f, x, err := solve(ctx, rel, nd.lower, nd.upper, e.opts.Tol)
		done <- relaxResult{f: f, x: x, err: err}
	}()
	select {
	case res := <-done:
		return res.f, res.x, res.err
	case <-ctx.Done():
		return math.NaN(), nil, ctx.Err()
	}
}
