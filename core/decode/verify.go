package decode

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/rebalance/core/formulation"
	"github.com/kilianp07/rebalance/core/params"
)

// Tolerance used when comparing continuous quantities.
const Tolerance = 1e-6

// Verify checks a decoded result against the instance it was solved for:
// the cluster partition, prefix-shaped steps, capacities and the per-cluster
// time budget. All violations are joined into one error.
func Verify(inst *params.Instance, res *Result) error {
	var errs []error
	member := make(map[int]int, len(inst.V))
	for _, v := range res.ClusterIDs() {
		for _, i := range res.Clusters[v] {
			if prev, ok := member[i]; ok {
				errs = append(errs, fmt.Errorf("station %d assigned to clusters %d and %d", i, prev, v))
				continue
			}
			member[i] = v
		}
	}
	for _, i := range inst.V {
		if _, ok := member[i]; !ok {
			errs = append(errs, fmt.Errorf("station %d has no cluster", i))
		}
	}

	type group struct {
		pair    params.Pair
		cluster int
	}
	steps := make(map[group][]int)
	out := make(map[int]int)
	in := make(map[int]int)
	count := make(map[int]int)
	for _, k := range res.Executed {
		g := group{params.Pair{Origin: k.Origin, Dest: k.Dest}, k.Cluster}
		steps[g] = append(steps[g], k.Step)
		out[k.Origin]++
		in[k.Dest]++
		count[k.Cluster]++
		if member[k.Origin] != k.Cluster || member[k.Dest] != k.Cluster {
			errs = append(errs, fmt.Errorf("transfer %s crosses clusters", name(k)))
		}
	}
	for g, ms := range steps {
		sort.Ints(ms)
		for idx, m := range ms {
			if m != idx+1 {
				errs = append(errs, fmt.Errorf("pair %d->%d in cluster %d executes steps %v, not a prefix",
					g.pair.Origin, g.pair.Dest, g.cluster, ms))
				break
			}
		}
		if len(ms) > inst.U[g.pair] {
			errs = append(errs, fmt.Errorf("pair %d->%d executes %d steps, U=%d",
				g.pair.Origin, g.pair.Dest, len(ms), inst.U[g.pair]))
		}
	}
	for i, n := range out {
		if n > inst.Excess(i) {
			errs = append(errs, fmt.Errorf("surplus station %d ships %d units, excess %d", i, n, inst.Excess(i)))
		}
	}
	for j, n := range in {
		if n > inst.Shortfall(j) {
			errs = append(errs, fmt.Errorf("deficit station %d receives %d units, shortfall %d", j, n, inst.Shortfall(j)))
		}
	}
	for _, v := range inst.C {
		s := res.Travel[v]
		if load := inst.TLoad*float64(count[v]) + s; load > inst.TimeBudget+Tolerance {
			errs = append(errs, fmt.Errorf("cluster %d uses %.6g time units, budget %.6g", v, load, inst.TimeBudget))
		}
		for _, k := range res.Clusters[v] {
			var hub float64
			for _, i := range res.Clusters[v] {
				hub += inst.Travel.At(i, k)
			}
			if s < hub-Tolerance {
				errs = append(errs, fmt.Errorf("cluster %d travel surrogate %.6g below hub %d cost %.6g", v, s, k, hub))
			}
		}
	}
	return errors.Join(errs...)
}

func name(k formulation.XKey) string {
	return formulation.Meaning{Kind: formulation.KindTransfer, Origin: k.Origin, Dest: k.Dest, Cluster: k.Cluster, Step: k.Step}.Name()
}
