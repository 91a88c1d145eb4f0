package formulation

import "github.com/kilianp07/rebalance/core/milp"

// linExpr accumulates terms, merging repeated variables and dropping zero
// coefficients while preserving first-insertion order.
type linExpr struct {
	pos   map[milp.Var]int
	terms []milp.Term
}

func newExpr() *linExpr { return &linExpr{pos: make(map[milp.Var]int)} }

func (e *linExpr) add(v milp.Var, coef float64) *linExpr {
	if i, ok := e.pos[v]; ok {
		e.terms[i].Coef += coef
		return e
	}
	e.pos[v] = len(e.terms)
	e.terms = append(e.terms, milp.Term{Var: v, Coef: coef})
	return e
}

func (e *linExpr) list() []milp.Term {
	out := make([]milp.Term, 0, len(e.terms))
	for _, t := range e.terms {
		if t.Coef != 0 {
			out = append(out, t)
		}
	}
	return out
}
