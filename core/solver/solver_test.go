package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rebalance/core/milp"
	"github.com/kilianp07/rebalance/core/model"
)

// stubEngine returns a canned solution.
type stubEngine struct {
	sol   milp.Solution
	err   error
	n     int
	limit time.Duration
}

func (s *stubEngine) AddBinary(string) milp.Var { s.n++; return milp.Var(s.n - 1) }
func (s *stubEngine) AddContinuous(string, float64, float64) (milp.Var, error) {
	s.n++
	return milp.Var(s.n - 1), nil
}
func (s *stubEngine) AddConstraint(string, []milp.Term, milp.Sense, float64) error { return nil }
func (s *stubEngine) SetObjective(milp.ObjectiveSense, []milp.Term) error         { return nil }
func (s *stubEngine) Solve(_ context.Context, limit time.Duration) (milp.Solution, error) {
	s.limit = limit
	return s.sol, s.err
}
func (s *stubEngine) NumVars() int        { return s.n }
func (s *stubEngine) NumConstraints() int { return 0 }

func TestSolveReturnsValues(t *testing.T) {
	for _, st := range []milp.Status{milp.StatusOptimal, milp.StatusFeasible} {
		t.Run(st.String(), func(t *testing.T) {
			eng := &stubEngine{n: 2, sol: milp.Solution{Status: st, Objective: 4, Values: []float64{1, 0}}}
			got, err := Solve(context.Background(), eng, 3*time.Second)
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 0}, got.Values)
			assert.Equal(t, st, got.Status)
			assert.Equal(t, 3*time.Second, eng.limit)
		})
	}
}

func TestSolveFailureCarriesStatus(t *testing.T) {
	cases := []milp.Status{milp.StatusInfeasible, milp.StatusUnbounded, milp.StatusTimeLimit, milp.StatusNumerical}
	for _, st := range cases {
		t.Run(st.String(), func(t *testing.T) {
			eng := &stubEngine{sol: milp.Solution{Status: st}}
			_, err := Solve(context.Background(), eng, time.Second)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrSolveFailure))
			assert.Contains(t, err.Error(), st.String())
			var se *SolveError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, st, se.Status)
			assert.Equal(t, "solve_failure", model.Kind(err))
		})
	}
}

func TestSolveEngineError(t *testing.T) {
	boom := errors.New("boom")
	eng := &stubEngine{err: boom}
	_, err := Solve(context.Background(), eng, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, model.ErrSolveFailure)
}

func TestSolveValueCountMismatch(t *testing.T) {
	eng := &stubEngine{n: 3, sol: milp.Solution{Status: milp.StatusOptimal, Values: []float64{1}}}
	_, err := Solve(context.Background(), eng, time.Second)
	assert.ErrorIs(t, err, model.ErrSolveFailure)
}

func TestSolveRejectsBadInput(t *testing.T) {
	_, err := Solve(context.Background(), nil, time.Second)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	_, err = Solve(context.Background(), &stubEngine{}, 0)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
