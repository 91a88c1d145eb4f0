package model

import "errors"

// Error kinds shared by every pipeline stage. Stage errors wrap one of these
// so callers can classify them with errors.Is.
var (
	// ErrConfiguration covers station-count mismatches, empty surplus or
	// deficit partitions and invalid sampling ratios.
	ErrConfiguration = errors.New("configuration error")
	// ErrDataShape covers malformed travel-time or marginal-utility tables.
	ErrDataShape = errors.New("data shape error")
	// ErrSolveFailure is returned when the engine reports neither an optimal
	// nor a feasible status.
	ErrSolveFailure = errors.New("solve failure")
)

// Kind returns a short label for the error kind, used as a tag by metrics and
// error monitoring.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrDataShape):
		return "data_shape"
	case errors.Is(err, ErrSolveFailure):
		return "solve_failure"
	default:
		return "internal"
	}
}
