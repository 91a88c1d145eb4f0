package milp

// Status is the termination status reported by an engine.
type Status int

const (
	StatusNotSolved Status = iota
	// StatusOptimal means the search finished and the incumbent is optimal.
	StatusOptimal
	// StatusFeasible means the time limit expired with an incumbent.
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	// StatusTimeLimit means the time limit expired without an incumbent.
	StatusTimeLimit
	// StatusNumerical means the relaxation failed for numerical reasons.
	StatusNumerical
)

func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "NOT_SOLVED"
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusUnbounded:
		return "UNBOUNDED"
	case StatusTimeLimit:
		return "TIME_LIMIT"
	case StatusNumerical:
		return "NUMERICAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// HasSolution reports whether the status carries variable values.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}
