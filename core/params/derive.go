package params

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/rebalance/core/model"
)

// Options tweaks derivation behaviour.
type Options struct {
	// StrictUtility turns a Delta sequence that increases with the step index
	// into a data shape error instead of leaving it to the caller.
	StrictUtility bool
}

// Derive validates the raw tables and builds the sets and parameters of the
// formulation. stations must be in source order with SourceID set; travel is
// indexed by source id and utility rows reference source ids.
func Derive(cfg model.NetworkConfig, stations []model.Station, travel model.TravelTimes, utility []model.UtilityRow, opts Options) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(stations) < cfg.NetworkSize {
		return nil, fmt.Errorf("%w: %d station rows for network_size %d", model.ErrConfiguration, len(stations), cfg.NetworkSize)
	}
	if err := travel.Validate(); err != nil {
		return nil, err
	}
	if travel.Size() != len(stations) {
		return nil, fmt.Errorf("%w: travel matrix covers %d stations, station table has %d", model.ErrDataShape, travel.Size(), len(stations))
	}
	for _, s := range stations {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	selected := stations
	if len(stations) > cfg.NetworkSize {
		var err error
		selected, err = Sample(stations, cfg.NetworkSize, cfg.SurplusRatio, cfg.DeficitRatio, cfg.RandomState)
		if err != nil {
			return nil, err
		}
	}

	inst := &Instance{
		Stations: make([]model.Station, len(selected)),
		Params: Params{
			S0:         make(map[int]int, len(selected)),
			SStar:      make(map[int]int, len(selected)),
			U:          make(map[Pair]int),
			Delta:      make(map[StepKey]float64),
			B:          make(map[int]float64, len(selected)),
			TLoad:      cfg.TLoad,
			TimeBudget: cfg.TimeBudget,
		},
	}
	srcIDs := make([]int, len(selected))
	bySource := make(map[int]int, len(selected))
	for i, s := range selected {
		s.ID = i + 1
		inst.Stations[i] = s
		srcIDs[i] = s.SourceID
		bySource[s.SourceID] = s.ID
		inst.S0[s.ID] = s.Current
		inst.SStar[s.ID] = s.Target
		inst.V = append(inst.V, s.ID)
		switch s.Kind() {
		case model.Surplus:
			inst.VPlus = append(inst.VPlus, s.ID)
		case model.Deficit:
			inst.VMinus = append(inst.VMinus, s.ID)
		}
	}
	if len(inst.VPlus) == 0 || len(inst.VMinus) == 0 {
		return nil, fmt.Errorf("%w: no surplus or deficit stations found (surplus=%d deficit=%d)",
			model.ErrConfiguration, len(inst.VPlus), len(inst.VMinus))
	}
	inst.V0 = append([]int{0}, inst.V...)
	for v := 1; v <= cfg.NumClusters; v++ {
		inst.C = append(inst.C, v)
	}

	sub, err := travel.Subset(srcIDs)
	if err != nil {
		return nil, err
	}
	inst.Travel = sub
	for _, j := range inst.V {
		inst.B[j] = sub.ColumnSum(j)
	}

	if err := inst.addUtility(utility, bySource); err != nil {
		return nil, err
	}
	if opts.StrictUtility {
		if err := ValidateUtility(inst); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (in *Instance) addUtility(rows []model.UtilityRow, bySource map[int]int) error {
	surplus := toSet(in.VPlus)
	deficit := toSet(in.VMinus)
	steps := make(map[Pair]int)
	for _, r := range rows {
		if r.Step < 1 {
			return fmt.Errorf("%w: transfer step %d for pair (%d,%d) must be >= 1", model.ErrDataShape, r.Step, r.Origin, r.Dest)
		}
		if math.IsNaN(r.Delta) || math.IsInf(r.Delta, 0) {
			return fmt.Errorf("%w: non-finite utility for (%d,%d,%d)", model.ErrDataShape, r.Origin, r.Dest, r.Step)
		}
		i, okI := bySource[r.Origin]
		j, okJ := bySource[r.Dest]
		if !okI || !okJ || !surplus[i] || !deficit[j] {
			in.IgnoredRows++
			continue
		}
		key := StepKey{Origin: i, Dest: j, Step: r.Step}
		if _, dup := in.Delta[key]; dup {
			return fmt.Errorf("%w: duplicate utility row (%d,%d,%d)", model.ErrDataShape, r.Origin, r.Dest, r.Step)
		}
		in.Delta[key] = r.Delta
		p := Pair{Origin: i, Dest: j}
		steps[p]++
		if r.Step > in.U[p] {
			in.U[p] = r.Step
		}
	}
	for p, u := range in.U {
		if steps[p] != u {
			return fmt.Errorf("%w: pair (%d,%d) records %d steps but max step is %d",
				model.ErrDataShape, p.Origin, p.Dest, steps[p], u)
		}
	}
	return nil
}

// ValidateUtility checks that Delta[i,j,m] is non-increasing in m for every
// pair. The step precedence constraint only encodes diminishing returns when
// this holds.
func ValidateUtility(in *Instance) error {
	var errs []error
	for _, p := range in.Pairs() {
		for m := 1; m < in.U[p]; m++ {
			cur := in.Delta[StepKey{p.Origin, p.Dest, m}]
			next := in.Delta[StepKey{p.Origin, p.Dest, m + 1}]
			if next > cur {
				errs = append(errs, fmt.Errorf("%w: utility of pair (%d,%d) increases from step %d (%v) to %d (%v)",
					model.ErrDataShape, p.Origin, p.Dest, m, cur, m+1, next))
			}
		}
	}
	return errors.Join(errs...)
}

func toSet(ids []int) map[int]bool {
	out := make(map[int]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

