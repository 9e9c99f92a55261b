package reduction_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/reduction"
)

func TestBruteForceSearchPicksTheLowestCostCandidate(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	candidates := []reduction.Reduction{
		reduction.MostLikelyOutcomeReduction{K: 1},
		reduction.MostLikelyOutcomeReduction{K: 3},
	}

	best, cost, err := reduction.BruteForceSearch(problem, candidates)

	require.NoError(t, err)
	require.NotNil(t, best)
	require.Greater(t, cost, 0.0)
}

func TestGreedySearchRespectsMinPrimaryOutcomesFloor(t *testing.T) {
	problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	initial := problem.InitialState()
	actions := problem.Actions()

	template := reduction.NewCustomReduction(problem, initial, actions)
	groups := make([][]mdp.Action, len(actions))
	for i, a := range actions {
		groups[i] = []mdp.Action{a}
	}

	cfg := reduction.DefaultGreedySearchConfig()
	result, cost, err := reduction.GreedySearch(problem, template, groups, cfg)

	require.NoError(t, err)
	require.NotNil(t, result)
	require.Greater(t, cost, 0.0)

	for _, a := range actions {
		indices := result.PrimaryOutcomes(problem, initial, a)
		require.GreaterOrEqualf(t, len(indices), cfg.MinPrimaryOutcomes,
			"action %v fell below the configured primary-outcome floor", a)
	}
}
