package lpsolve

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/rebalance/core/milp"
)

const (
	pivotTol    = 1e-9
	stepTol     = 1e-12
	phaseOneTol = 1e-7
	// Consecutive degenerate pivots before switching to Bland's rule.
	blandAfter = 50
	checkEvery = 32
)

var (
	errIterationLimit = errors.New("lpsolve: simplex iteration limit reached")
	errPhaseOne       = errors.New("lpsolve: phase one did not converge")
)

// tableau is a dense bounded-variable simplex tableau B^-1 A. Columns are
// the non-fixed structural variables, then one logical per row, then the
// artificials phase one needs. Nonbasic columns sit at a bound; only basic
// columns carry values between their bounds.
type tableau struct {
	t     *mat.Dense
	m, w  int
	lo    []float64
	hi    []float64
	x     []float64
	d     []float64 // reduced costs
	basis []int
	basic []bool
}

func newTableau(m, w int) *tableau {
	return &tableau{
		t:     mat.NewDense(m, w, nil),
		m:     m,
		w:     w,
		lo:    make([]float64, w),
		hi:    make([]float64, w),
		x:     make([]float64, w),
		d:     make([]float64, w),
		basis: make([]int, m),
		basic: make([]bool, w),
	}
}

// logicalBounds returns the range of r in a.x + r = rhs.
func logicalBounds(s milp.Sense) (float64, float64) {
	switch s {
	case milp.LessEqual:
		return 0, math.Inf(1)
	case milp.GreaterEqual:
		return math.Inf(-1), 0
	default:
		return 0, 0
	}
}

// solveRelaxation minimises c.x over the rows of rel with lower <= x <= upper
// and returns the optimal value and point. Errors are lp.ErrInfeasible,
// lp.ErrUnbounded, a context error, or a numerical breakdown.
func solveRelaxation(ctx context.Context, rel *relaxation, lower, upper []float64, tol float64) (float64, []float64, error) {
	n := len(rel.c)
	col := make([]int, n)
	var free []int
	for j := range col {
		if lower[j] > upper[j] {
			return math.NaN(), nil, lp.ErrInfeasible
		}
		col[j] = -1
		if upper[j]-lower[j] > stepTol {
			col[j] = len(free)
			free = append(free, j)
		}
	}
	m := len(rel.rows)
	if m == 0 {
		return boxOptimum(rel.c, lower, upper)
	}

	// Start with every structural variable at its lower bound. A row whose
	// residual its logical cannot absorb gets an artificial.
	resid := make([]float64, m)
	needArt := make([]bool, m)
	nart, scale := 0, 1.0
	for i, r := range rel.rows {
		resid[i] = r.rhs
		for _, t := range r.terms {
			resid[i] -= t.Coef * lower[t.Var]
		}
		lo, hi := logicalBounds(r.sense)
		if resid[i] < lo || resid[i] > hi {
			needArt[i] = true
			nart++
		}
		scale = math.Max(scale, math.Abs(resid[i]))
	}

	nf := len(free)
	tb := newTableau(m, nf+m+nart)
	for k, j := range free {
		tb.lo[k], tb.hi[k], tb.x[k] = lower[j], upper[j], lower[j]
	}
	art := nf + m
	for i, r := range rel.rows {
		sign := 1.0
		if needArt[i] && resid[i] < 0 {
			sign = -1
		}
		row := tb.t.RawRowView(i)
		for _, t := range r.terms {
			if k := col[t.Var]; k >= 0 {
				row[k] += sign * t.Coef
			}
		}
		l := nf + i
		row[l] = sign
		tb.lo[l], tb.hi[l] = logicalBounds(r.sense)
		if needArt[i] {
			row[art] = 1
			tb.hi[art] = math.Inf(1)
			tb.x[art] = math.Abs(resid[i])
			tb.enter(i, art)
			art++
			continue
		}
		tb.x[l] = resid[i]
		tb.enter(i, l)
	}

	if nart > 0 {
		cost := make([]float64, tb.w)
		for k := nf + m; k < tb.w; k++ {
			cost[k] = 1
		}
		if err := tb.optimize(ctx, cost, tol); err != nil {
			if errors.Is(err, lp.ErrUnbounded) {
				return math.NaN(), nil, errPhaseOne
			}
			return math.NaN(), nil, err
		}
		if floats.Sum(tb.x[nf+m:]) > phaseOneTol*scale {
			return math.NaN(), nil, lp.ErrInfeasible
		}
		// Artificials are pinned at zero; basic ones leave on the next
		// pivot through their row.
		for k := nf + m; k < tb.w; k++ {
			tb.hi[k] = 0
		}
	}

	cost := make([]float64, tb.w)
	for k, j := range free {
		cost[k] = rel.c[j]
	}
	if err := tb.optimize(ctx, cost, tol); err != nil {
		return math.Inf(-1), nil, err
	}

	x := make([]float64, n)
	for j := range x {
		if k := col[j]; k >= 0 {
			x[j] = math.Min(math.Max(tb.x[k], lower[j]), upper[j])
		} else {
			x[j] = lower[j]
		}
	}
	return floats.Dot(rel.c, x), x, nil
}

// boxOptimum solves a relaxation without rows.
func boxOptimum(c, lower, upper []float64) (float64, []float64, error) {
	x := append([]float64(nil), lower...)
	for j, cj := range c {
		if cj >= 0 {
			continue
		}
		if math.IsInf(upper[j], 1) {
			return math.Inf(-1), nil, lp.ErrUnbounded
		}
		x[j] = upper[j]
	}
	return floats.Dot(c, x), x, nil
}

func (tb *tableau) enter(r, q int) {
	tb.basis[r] = q
	tb.basic[q] = true
}

// price recomputes the reduced costs d = cost - cost_B B^-1 A.
func (tb *tableau) price(cost []float64) {
	copy(tb.d, cost)
	for i, b := range tb.basis {
		if cb := cost[b]; cb != 0 {
			floats.AddScaled(tb.d, -cb, tb.t.RawRowView(i))
		}
	}
}

// optimize runs primal simplex iterations from a feasible basis until no
// reduced cost improves cost.
func (tb *tableau) optimize(ctx context.Context, cost []float64, tol float64) error {
	tb.price(cost)
	fresh := true
	limit := 50 * (tb.m + tb.w)
	degenerate := 0
	for iter := 0; ; iter++ {
		if iter%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if iter >= limit {
			return errIterationLimit
		}
		bland := degenerate > blandAfter
		q, dir := tb.entering(tol, bland)
		if q < 0 {
			if fresh {
				return nil
			}
			// Reduced costs drift under repeated pivots; confirm on a
			// fresh pricing before declaring optimality.
			tb.price(cost)
			fresh = true
			continue
		}
		step, r := tb.ratio(q, dir, bland)
		if math.IsInf(step, 1) {
			return lp.ErrUnbounded
		}
		if step <= stepTol {
			degenerate++
		} else {
			degenerate = 0
		}
		tb.move(q, dir, step)
		if r < 0 {
			// Bound flip: q crosses to its other bound and stays nonbasic.
			if dir > 0 {
				tb.x[q] = tb.hi[q]
			} else {
				tb.x[q] = tb.lo[q]
			}
			continue
		}
		leaving := tb.basis[r]
		if tb.t.At(r, q)*dir > 0 {
			tb.x[leaving] = tb.lo[leaving]
		} else {
			tb.x[leaving] = tb.hi[leaving]
		}
		tb.pivot(r, q)
		fresh = false
	}
}

// entering picks the nonbasic column to move and its direction: Dantzig's
// largest reduced cost, or the lowest index under Bland's rule.
func (tb *tableau) entering(tol float64, bland bool) (int, float64) {
	q, dir, best := -1, 0.0, tol
	for j := 0; j < tb.w; j++ {
		if tb.basic[j] {
			continue
		}
		dj := tb.d[j]
		var s float64
		switch {
		case dj < -tol && tb.x[j] < tb.hi[j]-stepTol:
			s = 1
		case dj > tol && tb.x[j] > tb.lo[j]+stepTol:
			s = -1
		default:
			continue
		}
		if bland {
			return j, s
		}
		if math.Abs(dj) > best {
			q, dir, best = j, s, math.Abs(dj)
		}
	}
	return q, dir
}

// ratio returns how far column q can move in direction dir and the row whose
// basic variable blocks it, or -1 when q reaches its own opposite bound first.
func (tb *tableau) ratio(q int, dir float64, bland bool) (float64, int) {
	step, r := tb.hi[q]-tb.lo[q], -1
	for i, b := range tb.basis {
		a := tb.t.At(i, q) * dir
		var lim float64
		switch {
		case a > pivotTol:
			if math.IsInf(tb.lo[b], -1) {
				continue
			}
			lim = (tb.x[b] - tb.lo[b]) / a
		case a < -pivotTol:
			if math.IsInf(tb.hi[b], 1) {
				continue
			}
			lim = (tb.hi[b] - tb.x[b]) / -a
		default:
			continue
		}
		if lim < 0 {
			lim = 0
		}
		if lim > step-stepTol {
			if lim > step+stepTol || r < 0 {
				continue
			}
			// Tie: Bland takes the lowest variable index, otherwise the
			// larger pivot wins.
			if bland && b > tb.basis[r] || !bland && math.Abs(a) <= math.Abs(tb.t.At(r, q)) {
				continue
			}
		}
		step, r = lim, i
	}
	return step, r
}

func (tb *tableau) move(q int, dir, step float64) {
	if step == 0 {
		return
	}
	tb.x[q] += dir * step
	for i, b := range tb.basis {
		if a := tb.t.At(i, q); a != 0 {
			tb.x[b] -= a * dir * step
		}
	}
}

// pivot makes q basic in row r.
func (tb *tableau) pivot(r, q int) {
	pr := tb.t.RawRowView(r)
	floats.Scale(1/pr[q], pr)
	pr[q] = 1
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[q]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[q] = 0
		}
	}
	if f := tb.d[q]; f != 0 {
		floats.AddScaled(tb.d, -f, pr)
		tb.d[q] = 0
	}
	tb.basic[tb.basis[r]] = false
	tb.enter(r, q)
}
