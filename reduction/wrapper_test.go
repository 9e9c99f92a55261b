package reduction_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/reduction"
)

func TestWrapperPassesThroughGoalWithoutOverride(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	wrapper := reduction.NewWrapper(problem)

	s := gridworld.State{X: 1, Y: 1}
	require.Equal(t, problem.Goal(s), wrapper.Goal(s))
}

func TestWrapperOverrideGoalsReplacesGoalSet(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	wrapper := reduction.NewWrapper(problem)

	subgoal := mdp.State(gridworld.State{X: 1, Y: 1})
	wrapper.OverrideGoals([]mdp.State{subgoal})

	require.True(t, wrapper.Goal(subgoal))
	require.False(t, wrapper.Goal(gridworld.State{X: 2, Y: 2}),
		"the problem's real goal cell should not count as a goal while an override is active")
}

func TestWrapperClearOverrideGoalsRestoresOriginalGoal(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	wrapper := reduction.NewWrapper(problem)

	subgoal := mdp.State(gridworld.State{X: 1, Y: 1})
	wrapper.OverrideGoals([]mdp.State{subgoal})
	wrapper.ClearOverrideGoals()

	require.Equal(t, problem.Goal(gridworld.State{X: 2, Y: 2}), wrapper.Goal(gridworld.State{X: 2, Y: 2}))
	require.False(t, wrapper.Goal(subgoal))
}
