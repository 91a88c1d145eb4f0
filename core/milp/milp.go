// Package milp defines the minimal capability interface the model builder
// needs from a mixed-integer linear programming engine. Builders and decoders
// depend only on this package, so any engine (the in-process branch and bound
// in infra/lpsolve or a binding to an external solver) can be plugged in.
package milp

import (
	"context"
	"time"
)

// Var is an engine-assigned variable handle. Handles are dense: the n-th
// declared variable has handle n-1, so solution values can be stored in a
// slice indexed by Var.
type Var int

// Term is one coefficient-variable product of a linear expression.
type Term struct {
	Var  Var
	Coef float64
}

// Sense is the relation of a linear constraint.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// ObjectiveSense selects minimisation or maximisation.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// Engine declares variables and constraints and optimises the model.
// Implementations are not safe for concurrent use; one engine instance holds
// exactly one model.
type Engine interface {
	AddBinary(name string) Var
	AddContinuous(name string, lower, upper float64) (Var, error)
	AddConstraint(name string, terms []Term, sense Sense, rhs float64) error
	SetObjective(sense ObjectiveSense, terms []Term) error
	// Solve optimises the model. It returns no later than timeLimit plus the
	// duration of the relaxation in progress when the limit expires.
	Solve(ctx context.Context, timeLimit time.Duration) (Solution, error)
	NumVars() int
	NumConstraints() int
}

// Solution is the engine's answer. Values is indexed by Var and is only
// meaningful when Status.HasSolution() is true.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
	Elapsed   time.Duration
}

// Value returns the value of v, or 0 when v is out of range.
func (s Solution) Value(v Var) float64 {
	if int(v) < 0 || int(v) >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// Evaluate returns the value of a linear expression under values.
func Evaluate(terms []Term, values []float64) float64 {
	var sum float64
	for _, t := range terms {
		if int(t.Var) < len(values) {
			sum += t.Coef * values[t.Var]
		}
	}
	return sum
}
