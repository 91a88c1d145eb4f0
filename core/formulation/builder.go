// Package formulation builds the clustering and transfer-scheduling MILP on
// top of a milp.Engine and records, for every declared variable, what it
// means. The decoder reads that table instead of parsing variable names.
package formulation

import (
	"fmt"
	"math"

	"github.com/kilianp07/rebalance/core/milp"
	"github.com/kilianp07/rebalance/core/params"
)

// Stats summarises the size of a built model.
type Stats struct {
	Binary      int
	Continuous  int
	Constraints int
	Pairs       int
}

// Formulation is the built model: sparse typed variable maps, the
// index-to-meaning table and the objective expression.
type Formulation struct {
	Instance *params.Instance
	Z        map[ZKey]milp.Var
	X        map[XKey]milp.Var
	S        map[int]milp.Var
	// Index[v] describes variable v.
	Index     []Meaning
	Objective []milp.Term
	Stats     Stats

	engine milp.Engine
}

// Build declares the variables, objective and constraints (3)-(9) of the
// rebalancing model on engine. x[i,j,v,m] only exists for m <= U[i,j]; pairs
// without utility rows contribute nothing and still yield a valid model.
func Build(engine milp.Engine, inst *params.Instance) (*Formulation, error) {
	if engine == nil || inst == nil {
		return nil, fmt.Errorf("formulation: engine and instance are required")
	}
	f := &Formulation{
		Instance: inst,
		Z:        make(map[ZKey]milp.Var, len(inst.V)*len(inst.C)),
		X:        make(map[XKey]milp.Var),
		S:        make(map[int]milp.Var, len(inst.C)),
		engine:   engine,
	}
	if err := f.declare(); err != nil {
		return nil, err
	}
	steps := []func() error{
		f.setObjective,
		f.addAssignment,
		f.addLinking,
		f.addCapacity,
		f.addTravelSurrogate,
		f.addTimeBudget,
		f.addPrecedence,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	f.Stats.Constraints = engine.NumConstraints()
	return f, nil
}

func (f *Formulation) record(v milp.Var, m Meaning) error {
	if int(v) != len(f.Index) {
		return fmt.Errorf("formulation: engine returned handle %d, expected %d", v, len(f.Index))
	}
	f.Index = append(f.Index, m)
	return nil
}

func (f *Formulation) declare() error {
	in := f.Instance
	for _, i := range in.V {
		for _, v := range in.C {
			m := Meaning{Kind: KindAssign, Station: i, Cluster: v}
			h := f.engine.AddBinary(m.Name())
			if err := f.record(h, m); err != nil {
				return err
			}
			f.Z[ZKey{Station: i, Cluster: v}] = h
			f.Stats.Binary++
		}
	}
	for _, v := range in.C {
		m := Meaning{Kind: KindTravel, Cluster: v}
		h, err := f.engine.AddContinuous(m.Name(), 0, math.Inf(1))
		if err != nil {
			return fmt.Errorf("declare %s: %w", m.Name(), err)
		}
		if err := f.record(h, m); err != nil {
			return err
		}
		f.S[v] = h
		f.Stats.Continuous++
	}
	pairs := in.Pairs()
	f.Stats.Pairs = len(pairs)
	for _, p := range pairs {
		for _, v := range in.C {
			for m := 1; m <= in.U[p]; m++ {
				mean := Meaning{Kind: KindTransfer, Origin: p.Origin, Dest: p.Dest, Cluster: v, Step: m}
				h := f.engine.AddBinary(mean.Name())
				if err := f.record(h, mean); err != nil {
					return err
				}
				f.X[mean.XKey()] = h
				f.Stats.Binary++
			}
		}
	}
	return nil
}

// forEachX visits transfer variables in declaration order.
func (f *Formulation) forEachX(fn func(k XKey, h milp.Var) error) error {
	for h, m := range f.Index {
		if m.Kind != KindTransfer {
			continue
		}
		if err := fn(m.XKey(), milp.Var(h)); err != nil {
			return err
		}
	}
	return nil
}

func (f *Formulation) setObjective() error {
	obj := newExpr()
	_ = f.forEachX(func(k XKey, h milp.Var) error {
		obj.add(h, f.Instance.Delta[params.StepKey{Origin: k.Origin, Dest: k.Dest, Step: k.Step}])
		return nil
	})
	f.Objective = obj.list()
	return f.engine.SetObjective(milp.Maximize, f.Objective)
}

// eq. 3: every station belongs to exactly one cluster.
func (f *Formulation) addAssignment() error {
	for _, i := range f.Instance.V {
		e := newExpr()
		for _, v := range f.Instance.C {
			e.add(f.Z[ZKey{i, v}], 1)
		}
		if err := f.engine.AddConstraint(fmt.Sprintf("assign[%d]", i), e.list(), milp.Equal, 1); err != nil {
			return err
		}
	}
	return nil
}

// eq. 4 and 5: a step attributed to cluster v needs both endpoints in v.
func (f *Formulation) addLinking() error {
	return f.forEachX(func(k XKey, h milp.Var) error {
		origin := []milp.Term{{Var: h, Coef: 1}, {Var: f.Z[ZKey{k.Origin, k.Cluster}], Coef: -1}}
		if err := f.engine.AddConstraint(fmt.Sprintf("link_surplus[%d,%d,%d,%d]", k.Origin, k.Dest, k.Cluster, k.Step),
			origin, milp.LessEqual, 0); err != nil {
			return err
		}
		dest := []milp.Term{{Var: h, Coef: 1}, {Var: f.Z[ZKey{k.Dest, k.Cluster}], Coef: -1}}
		return f.engine.AddConstraint(fmt.Sprintf("link_deficit[%d,%d,%d,%d]", k.Origin, k.Dest, k.Cluster, k.Step),
			dest, milp.LessEqual, 0)
	})
}

// eq. 6 and 7: outgoing steps bounded by excess, incoming by shortfall.
func (f *Formulation) addCapacity() error {
	out := make(map[int]*linExpr)
	in := make(map[int]*linExpr)
	_ = f.forEachX(func(k XKey, h milp.Var) error {
		if out[k.Origin] == nil {
			out[k.Origin] = newExpr()
		}
		if in[k.Dest] == nil {
			in[k.Dest] = newExpr()
		}
		out[k.Origin].add(h, 1)
		in[k.Dest].add(h, 1)
		return nil
	})
	for _, i := range f.Instance.VPlus {
		e, ok := out[i]
		if !ok {
			continue
		}
		if err := f.engine.AddConstraint(fmt.Sprintf("surplus_cap[%d]", i), e.list(), milp.LessEqual,
			float64(f.Instance.Excess(i))); err != nil {
			return err
		}
	}
	for _, j := range f.Instance.VMinus {
		e, ok := in[j]
		if !ok {
			continue
		}
		if err := f.engine.AddConstraint(fmt.Sprintf("deficit_cap[%d]", j), e.list(), milp.LessEqual,
			float64(f.Instance.Shortfall(j))); err != nil {
			return err
		}
	}
	return nil
}

// eq. 8.0: s[v] >= sum_i t[i,k] z[i,v] - B[k] (1 - z[k,v]) for every hub k.
// Rearranged as s[v] - sum_i t[i,k] z[i,v] - B[k] z[k,v] >= -B[k].
func (f *Formulation) addTravelSurrogate() error {
	in := f.Instance
	for _, k := range in.V {
		for _, v := range in.C {
			e := newExpr().add(f.S[v], 1)
			for _, i := range in.V {
				e.add(f.Z[ZKey{i, v}], -in.Travel.At(i, k))
			}
			e.add(f.Z[ZKey{k, v}], -in.B[k])
			if err := f.engine.AddConstraint(fmt.Sprintf("travel[%d,%d]", k, v), e.list(), milp.GreaterEqual, -in.B[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

// eq. 8: loading time of executed steps plus s[v] within the time budget.
func (f *Formulation) addTimeBudget() error {
	load := make(map[int]*linExpr, len(f.Instance.C))
	for _, v := range f.Instance.C {
		load[v] = newExpr().add(f.S[v], 1)
	}
	_ = f.forEachX(func(k XKey, h milp.Var) error {
		load[k.Cluster].add(h, f.Instance.TLoad)
		return nil
	})
	for _, v := range f.Instance.C {
		if err := f.engine.AddConstraint(fmt.Sprintf("time_budget[%d]", v), load[v].list(), milp.LessEqual,
			f.Instance.TimeBudget); err != nil {
			return err
		}
	}
	return nil
}

// eq. 9: step m+1 only after step m.
func (f *Formulation) addPrecedence() error {
	return f.forEachX(func(k XKey, h milp.Var) error {
		if k.Step == 1 {
			return nil
		}
		prev, ok := f.X[XKey{Origin: k.Origin, Dest: k.Dest, Cluster: k.Cluster, Step: k.Step - 1}]
		if !ok {
			return fmt.Errorf("formulation: missing step %d for %v", k.Step-1, k)
		}
		return f.engine.AddConstraint(fmt.Sprintf("precedence[%d,%d,%d,%d]", k.Origin, k.Dest, k.Cluster, k.Step),
			[]milp.Term{{Var: h, Coef: 1}, {Var: prev, Coef: -1}}, milp.LessEqual, 0)
	})
}

// Meaning returns the meaning of v and whether v belongs to this model.
func (f *Formulation) Meaning(v milp.Var) (Meaning, bool) {
	if int(v) < 0 || int(v) >= len(f.Index) {
		return Meaning{}, false
	}
	return f.Index[v], true
}
