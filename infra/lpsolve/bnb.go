package lpsolve

import (
	"context"
	"math"

	"github.com/kilianp07/rebalance/core/milp"
)

type node struct {
	lower []float64
	upper []float64
	bound float64 // parent relaxation value, a lower bound on this subtree
}

func (n node) child() node {
	return node{
		lower: append([]float64(nil), n.lower...),
		upper: append([]float64(nil), n.upper...),
		bound: n.bound,
	}
}

// branchAndBound explores the tree depth first, diving towards the side the
// relaxation leans to, and prunes nodes whose bound cannot beat the
// incumbent. Internally the objective is minimised.
func (e *Engine) branchAndBound(ctx context.Context, rel *relaxation) milp.Solution {
	root := node{
		lower: make([]float64, len(e.vars)),
		upper: make([]float64, len(e.vars)),
		bound: math.Inf(-1),
	}
	for j, v := range e.vars {
		root.lower[j], root.upper[j] = v.lower, v.upper
	}

	best := math.Inf(1)
	var incumbent []float64
	var nodes, numerical int
	interrupted := false
	stack := []node{root}

	for len(stack) > 0 {
		if ctx.Err() != nil || (e.opts.MaxNodes > 0 && nodes >= e.opts.MaxNodes) {
			interrupted = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nd.bound >= best-pruneTol(best) {
			continue
		}
		nodes++
		f, x, err := e.relax(ctx, rel, nd)
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		outcome := classify(err)
		if outcome == relaxUnbounded && rel.bounded {
			// A model with every variable boxed has no unbounded
			// relaxation; the simplex lost its way.
			outcome = relaxNumerical
		}
		switch outcome {
		case relaxInfeasible:
			continue
		case relaxNumerical:
			numerical++
			if e.opts.Logger != nil {
				e.opts.Logger.Debugf("relaxation failed at node %d: %v", nodes, err)
			}
			continue
		case relaxUnbounded:
			return milp.Solution{Status: milp.StatusUnbounded, Nodes: nodes}
		}
		if f >= best-pruneTol(best) {
			continue
		}
		j := e.mostFractional(x)
		if j < 0 {
			best = f
			incumbent = e.roundIntegers(x)
			continue
		}
		floor := math.Floor(x[j])
		down := nd.child()
		down.upper[j] = floor
		down.bound = f
		up := nd.child()
		up.lower[j] = floor + 1
		up.bound = f
		if x[j]-floor >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	sol := milp.Solution{Nodes: nodes}
	switch {
	case incumbent != nil && (interrupted || numerical > 0):
		// Skipped subtrees may hold a better point.
		sol.Status = milp.StatusFeasible
	case incumbent != nil:
		sol.Status = milp.StatusOptimal
	case interrupted:
		sol.Status = milp.StatusTimeLimit
	case numerical > 0:
		sol.Status = milp.StatusNumerical
	default:
		sol.Status = milp.StatusInfeasible
	}
	if incumbent != nil {
		sol.Values = incumbent
		sol.Objective = milp.Evaluate(e.obj, incumbent)
	} else if e.opts.Logger != nil {
		e.opts.Logger.Debugf("%v after %d nodes", ErrNoIncumbent, nodes)
	}
	return sol
}

func pruneTol(best float64) float64 {
	if math.IsInf(best, 1) {
		return 0
	}
	return 1e-9 * math.Max(1, math.Abs(best))
}

// mostFractional returns the integer variable whose value is furthest from an
// integer, or -1 when x is integral.
func (e *Engine) mostFractional(x []float64) int {
	idx, worst := -1, e.opts.IntegralityTol
	for j, v := range e.vars {
		if !v.integer {
			continue
		}
		frac := math.Abs(x[j] - math.Round(x[j]))
		if frac > worst {
			idx, worst = j, frac
		}
	}
	return idx
}

func (e *Engine) roundIntegers(x []float64) []float64 {
	out := append([]float64(nil), x...)
	for j, v := range e.vars {
		if v.integer {
			out[j] = math.Round(out[j])
		} else if math.Abs(out[j]) < 1e-12 {
			out[j] = 0
		}
	}
	return out
}
