// Package decode turns a flat solution vector back into cluster membership
// and per-pair transfer plans using the formulation's index-to-meaning table.
package decode

import (
	"fmt"
	"sort"

	"github.com/kilianp07/rebalance/core/formulation"
	"github.com/kilianp07/rebalance/core/params"
	"github.com/kilianp07/rebalance/core/records"
)

// threshold above which a binary value counts as 1.
const threshold = 0.5

// Transfer is the executed plan of one pair inside one cluster.
type Transfer struct {
	Cluster int     `json:"cluster"`
	Origin  int     `json:"origin"`
	Dest    int     `json:"destination"`
	Steps   int     `json:"steps"`
	Utility float64 `json:"utility"`
}

// Result is the structured view of a solution.
type Result struct {
	// Total is the sum of Delta over executed transfer steps.
	Total float64
	// RawSum is the sum of every variable value, assignments and the travel
	// surrogate included. It is kept for comparison with older reports.
	RawSum float64
	// Clusters maps a cluster to its sorted member stations. Clusters with
	// no member are absent.
	Clusters map[int][]int
	// Transfers maps a cluster to the highest executed step of each pair.
	Transfers map[int]map[params.Pair]int
	// Travel holds s[v] for every cluster.
	Travel map[int]float64
	// Moves lists Transfers ordered by cluster, origin and destination.
	Moves []Transfer
	// Executed lists every executed step in declaration order.
	Executed []formulation.XKey
	// Records holds every variable in declaration order, without run id
	// or timestamp.
	Records []records.Record
}

// Steps returns the number of executed steps.
func (r *Result) Steps() int { return len(r.Executed) }

// ClusterIDs returns the clusters with members, sorted.
func (r *Result) ClusterIDs() []int {
	out := make([]int, 0, len(r.Clusters))
	for v := range r.Clusters {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Decode reads values (indexed by milp.Var) through f's meaning table. It
// does not modify its inputs, so decoding the same vector twice yields equal
// results.
func Decode(f *formulation.Formulation, values []float64) (*Result, error) {
	if f == nil {
		return nil, fmt.Errorf("decode: nil formulation")
	}
	if len(values) != len(f.Index) {
		return nil, fmt.Errorf("decode: got %d values for %d variables", len(values), len(f.Index))
	}
	inst := f.Instance
	res := &Result{
		Clusters:  make(map[int][]int),
		Transfers: make(map[int]map[params.Pair]int),
		Travel:    make(map[int]float64, len(inst.C)),
		Records:   make([]records.Record, 0, len(values)),
	}
	for h, m := range f.Index {
		val := values[h]
		res.RawSum += val
		res.Records = append(res.Records, records.Record{Variable: m.Name(), Value: val})
		switch m.Kind {
		case formulation.KindAssign:
			if val > threshold {
				res.Clusters[m.Cluster] = append(res.Clusters[m.Cluster], m.Station)
			}
		case formulation.KindTravel:
			res.Travel[m.Cluster] = val
		case formulation.KindTransfer:
			if val <= threshold {
				continue
			}
			k := m.XKey()
			res.Executed = append(res.Executed, k)
			res.Total += inst.Delta[params.StepKey{Origin: k.Origin, Dest: k.Dest, Step: k.Step}]
			pairs := res.Transfers[k.Cluster]
			if pairs == nil {
				pairs = make(map[params.Pair]int)
				res.Transfers[k.Cluster] = pairs
			}
			p := params.Pair{Origin: k.Origin, Dest: k.Dest}
			if k.Step > pairs[p] {
				pairs[p] = k.Step
			}
		}
	}
	for v := range res.Clusters {
		sort.Ints(res.Clusters[v])
	}
	res.Moves = moves(inst, res.Transfers)
	return res, nil
}

func moves(inst *params.Instance, transfers map[int]map[params.Pair]int) []Transfer {
	var out []Transfer
	for v, pairs := range transfers {
		for p, steps := range pairs {
			var u float64
			for m := 1; m <= steps; m++ {
				u += inst.Delta[params.StepKey{Origin: p.Origin, Dest: p.Dest, Step: m}]
			}
			out = append(out, Transfer{Cluster: v, Origin: p.Origin, Dest: p.Dest, Steps: steps, Utility: u})
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Cluster != out[b].Cluster {
			return out[a].Cluster < out[b].Cluster
		}
		if out[a].Origin != out[b].Origin {
			return out[a].Origin < out[b].Origin
		}
		return out[a].Dest < out[b].Dest
	})
	return out
}
