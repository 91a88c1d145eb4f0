package model

import "fmt"

// Station is one row of the station table. ID is the 1-based position of the
// row after sampling; SourceID keeps the row position in the input file so
// marginal-utility rows, which reference source ids, can be remapped.
type Station struct {
	ID       int
	SourceID int
	Current  int     // s0, bikes currently docked
	Target   int     // s*, optimal inventory
	Lat      float64 // optional, only carried for downstream plotting
	Lon      float64
}

// Kind reports whether the station holds a surplus, a deficit or neither.
func (s Station) Kind() StationKind {
	switch {
	case s.Current > s.Target:
		return Surplus
	case s.Current < s.Target:
		return Deficit
	default:
		return Balanced
	}
}

// Excess is the number of units a surplus station can give away.
func (s Station) Excess() int {
	if s.Current <= s.Target {
		return 0
	}
	return s.Current - s.Target
}

// Shortfall is the number of units a deficit station can receive.
func (s Station) Shortfall() int {
	if s.Current >= s.Target {
		return 0
	}
	return s.Target - s.Current
}

// Validate checks that inventories are non-negative.
func (s Station) Validate() error {
	if s.Current < 0 || s.Target < 0 {
		return fmt.Errorf("%w: station %d has negative inventory", ErrDataShape, s.SourceID)
	}
	return nil
}
