package params

import (
	"sort"

	"github.com/kilianp07/rebalance/core/model"
)

// Pair identifies a surplus origin and a deficit destination.
type Pair struct {
	Origin int
	Dest   int
}

// StepKey identifies the m-th transfer step of a pair.
type StepKey struct {
	Origin int
	Dest   int
	Step   int
}

// Sets holds the index sets of the formulation.
type Sets struct {
	V      []int // stations 1..N
	VPlus  []int // surplus stations
	VMinus []int // deficit stations
	C      []int // clusters 1..K
	V0     []int // depot 0 followed by V
}

// Params holds the parameter maps of the formulation, keyed by station id.
type Params struct {
	S0     map[int]int
	SStar  map[int]int
	Travel model.TravelTimes
	U      map[Pair]int
	Delta  map[StepKey]float64
	// B[j] bounds any single-hub travel contribution to station j.
	B          map[int]float64
	TLoad      float64
	TimeBudget float64
}

// Instance is the immutable output of Derive.
type Instance struct {
	Sets
	Params
	Stations []model.Station
	// IgnoredRows counts utility rows dropped because a station was not
	// sampled or the pair is not surplus-to-deficit.
	IgnoredRows int
}

// Pairs returns the pairs with at least one modelled step, ordered by origin
// then destination.
func (in *Instance) Pairs() []Pair {
	out := make([]Pair, 0, len(in.U))
	for p, u := range in.U {
		if u > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Origin != out[b].Origin {
			return out[a].Origin < out[b].Origin
		}
		return out[a].Dest < out[b].Dest
	})
	return out
}

// Excess returns s0[i] - s*[i].
func (in *Instance) Excess(i int) int { return in.S0[i] - in.SStar[i] }

// Shortfall returns s*[j] - s0[j].
func (in *Instance) Shortfall(j int) int { return in.SStar[j] - in.S0[j] }
