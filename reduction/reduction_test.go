package reduction_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/reduction"
)

func TestMostLikelyOutcomeReductionKeepsTopK(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	s := gridworld.State{X: 1, Y: 1}
	a := problem.Actions()[0]

	full := problem.Transition(s, a)
	red := reduction.MostLikelyOutcomeReduction{K: 1}
	indices := red.PrimaryOutcomes(problem, s, a)

	require.Len(t, indices, 1)
	for _, idx := range indices {
		for i, succ := range full {
			if i != idx {
				require.LessOrEqualf(t, succ.Probability, full[idx].Probability,
					"kept outcome %d is not the most likely", idx)
			}
		}
	}
}

func TestModelRenormalizesToOne(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	red := reduction.MostLikelyOutcomeReduction{K: 1}
	model := reduction.NewModel(problem, red)

	s := gridworld.State{X: 1, Y: 1}
	a := problem.Actions()[0]
	kept := model.Transition(s, a)

	var total float64
	for _, succ := range kept {
		total += succ.Probability
	}
	require.InDelta(t, 1.0, total, 0.001)
}

func TestModelPassesThroughEverythingButTransition(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	red := reduction.MostLikelyOutcomeReduction{K: 1}
	model := reduction.NewModel(problem, red)

	s := gridworld.State{X: 1, Y: 1}
	require.Equal(t, problem.Goal(s), model.Goal(s))
	require.Equal(t, problem.Heuristic(s), model.Heuristic(s))
	require.Equal(t, problem.InitialState(), model.InitialState())
}

func TestCustomReductionDefaultsToEveryOutcomePrimary(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	initial := problem.InitialState()
	actions := problem.Actions()

	custom := reduction.NewCustomReduction(problem, initial, actions)
	full := problem.Transition(initial, actions[0])
	indices := custom.PrimaryOutcomes(problem, initial, actions[0])

	require.Len(t, indices, len(full))
}

func TestCustomReductionSetPrimaryNeverEmpty(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	initial := problem.InitialState()
	actions := problem.Actions()

	custom := reduction.NewCustomReduction(problem, initial, actions)
	full := problem.Transition(initial, actions[0])
	custom.SetPrimary(actions[0], make([]bool, len(full))) // every flag false

	indices := custom.PrimaryOutcomes(problem, initial, actions[0])
	require.NotEmpty(t, indices)
}

func TestCustomReductionCloneIsIndependent(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	initial := problem.InitialState()
	actions := problem.Actions()

	original := reduction.NewCustomReduction(problem, initial, actions)
	clone := original.Clone()

	full := problem.Transition(initial, actions[0])
	clone.SetPrimary(actions[0], make([]bool, len(full)))

	origIndices := original.PrimaryOutcomes(problem, initial, actions[0])
	require.Len(t, origIndices, len(full))
}
