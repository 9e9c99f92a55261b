package reduction_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/reduction"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/dp"
)

func valueIterationSolve(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node) error {
	_, err := dp.ValueIteration(problem, reg, dp.DefaultValueIterationConfig())
	return err
}

func sumProbabilities(successors []mdp.Successor) float64 {
	var total float64
	for _, succ := range successors {
		total += succ.Probability
	}
	return total
}

func TestMklModelZeroBudgetMatchesModelOutcomeCount(t *testing.T) {
	base := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	red := reduction.MostLikelyOutcomeReduction{K: 1}

	mkl := reduction.NewMklModel(base, red, 0) // zero budget: behaves like Model everywhere
	model := reduction.NewModel(base, red)

	a := base.Actions()[0]
	mklOut := mkl.Transition(mkl.InitialState(), a)
	modelOut := model.Transition(base.InitialState(), a)

	require.Len(t, mklOut, len(modelOut))
	require.InDelta(t, 1.0, sumProbabilities(mklOut), 0.001)
}

func TestMklModelBelowBudgetKeepsAllOutcomes(t *testing.T) {
	base := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	red := reduction.MostLikelyOutcomeReduction{K: 1}
	mkl := reduction.NewMklModel(base, red, 5) // ample budget

	a := base.Actions()[0]
	full := base.Transition(base.InitialState(), a)
	out := mkl.Transition(mkl.InitialState(), a)

	require.Len(t, out, len(full))
	require.InDelta(t, 1.0, sumProbabilities(out), 0.001)
}

func TestMklModelExceptionBudgetIncrementsAlongNonPrimaryOutcomes(t *testing.T) {
	base := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	red := reduction.MostLikelyOutcomeReduction{K: 1}
	mkl := reduction.NewMklModel(base, red, 1)

	a := base.Actions()[0]
	out := mkl.Transition(mkl.InitialState(), a) // ExceptionsUsed starts at 0, budget 1
	full := base.Transition(base.InitialState(), a)
	require.Len(t, out, len(full))

	// Feeding any of these successor states back into Transition a second
	// time must still produce a valid (probability-normalized) distribution,
	// whether or not that particular successor's exception budget is now
	// exhausted.
	for _, succ := range out {
		again := mkl.Transition(succ.State, a)
		require.InDelta(t, 1.0, sumProbabilities(again), 0.001)
	}
}

func TestContinualPlanReplansOnlyPastExceptionBudget(t *testing.T) {
	base := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	red := reduction.MostLikelyOutcomeReduction{K: 1}
	rng := rand.New(rand.NewSource(7))

	// With a budget no trajectory can spend, the first plan covers every
	// exceptional branch and a single episode suffices.
	result, err := reduction.ContinualPlan(base, red, 100, valueIterationSolve, rng, 200)
	require.NoError(t, err)
	require.True(t, result.ReachedGoal)
	require.Equal(t, 1, result.Replans)
}

func TestContinualPlanReachesGoal(t *testing.T) {
	base := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	red := reduction.MostLikelyOutcomeReduction{K: 1}
	rng := rand.New(rand.NewSource(99))

	result, err := reduction.ContinualPlan(base, red, 2, valueIterationSolve, rng, 200)
	require.NoError(t, err)
	require.True(t, result.ReachedGoal, "did not reach the goal within the step budget: %+v", result)
	require.NotZero(t, result.Replans)
}
