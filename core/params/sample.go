package params

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/kilianp07/rebalance/core/model"
)

// Sample draws n stations out of rows: floor(n*surplusRatio) surplus
// stations, floor(n*deficitRatio) deficit stations and the remainder from the
// balanced group. Every group is drawn with a generator seeded by seed, so the
// same inputs always yield the same sub-network. The result lists surplus,
// then deficit, then balanced stations, each group in draw order, so the
// renumbered ids follow the order the generator picked them in.
func Sample(rows []model.Station, n int, surplusRatio, deficitRatio float64, seed int64) ([]model.Station, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: sample size must be >= 1", model.ErrConfiguration)
	}
	if surplusRatio < 0 || deficitRatio < 0 || surplusRatio+deficitRatio > 1 {
		return nil, fmt.Errorf("%w: invalid sampling ratios %v/%v", model.ErrConfiguration, surplusRatio, deficitRatio)
	}
	var groups [3][]model.Station
	for _, s := range rows {
		groups[s.Kind()] = append(groups[s.Kind()], s)
	}
	numSurplus := int(float64(n) * surplusRatio)
	numDeficit := int(float64(n) * deficitRatio)
	want := map[model.StationKind]int{
		model.Surplus:  numSurplus,
		model.Deficit:  numDeficit,
		model.Balanced: n - numSurplus - numDeficit,
	}

	out := make([]model.Station, 0, n)
	for _, kind := range []model.StationKind{model.Surplus, model.Deficit, model.Balanced} {
		picked, err := draw(groups[kind], want[kind], seed)
		if err != nil {
			return nil, fmt.Errorf("sample %s stations: %w", kind, err)
		}
		out = append(out, picked...)
	}
	return out, nil
}

func draw(group []model.Station, k int, seed int64) ([]model.Station, error) {
	if k > len(group) {
		return nil, fmt.Errorf("%w: requested %d stations, only %d available", model.ErrConfiguration, k, len(group))
	}
	if k == 0 {
		return nil, nil
	}
	idxs := make([]int, k)
	src := rand.NewPCG(uint64(seed), uint64(seed))
	sampleuv.WithoutReplacement(idxs, len(group), src)
	out := make([]model.Station, k)
	for i, idx := range idxs {
		out[i] = group[idx]
	}
	return out, nil
}
