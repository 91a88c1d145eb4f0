package model

// StationKind classifies a station by comparing its current inventory with
// its target inventory.
type StationKind int

const (
	Balanced StationKind = iota
	Surplus
	Deficit
)

// String returns a human-readable representation of the station kind.
func (k StationKind) String() string {
	switch k {
	case Balanced:
		return "balanced"
	case Surplus:
		return "surplus"
	case Deficit:
		return "deficit"
	default:
		return "unknown"
	}
}
