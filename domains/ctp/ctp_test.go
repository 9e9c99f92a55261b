package ctp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mejrpete/mdp-lib/domains/ctp"
)

// triangleGraph builds a 3-vertex graph 0-1-2-0 with one uncertain edge
// (1,2) that is blocked with probability 0.5, and a direct 0-2 edge that is
// always open -- enough to exercise both the deterministic and
// probabilistic branches of Transition.
func triangleGraph() *ctp.Graph {
	g := ctp.NewGraph(3)
	g.AddEdge(0, 1, 1.0, 0.0)
	g.AddEdge(1, 2, 1.0, 0.5)
	g.AddEdge(0, 2, 5.0, 0.0)
	return g
}

func TestApplicableRequiresAdjacencyFromCurrentLocation(t *testing.T) {
	problem := ctp.New(triangleGraph(), 0, 2, 2.0)
	start := problem.InitialState()

	require.True(t, problem.Applicable(start, ctp.Action{From: 0, To: 1}))
	require.True(t, problem.Applicable(start, ctp.Action{From: 0, To: 2}))
	require.False(t, problem.Applicable(start, ctp.Action{From: 1, To: 2}),
		"edge not touching the current location should not be applicable")
}

func TestTransitionOnNeverBlockedEdgeIsDeterministic(t *testing.T) {
	problem := ctp.New(triangleGraph(), 0, 2, 2.0)
	start := problem.InitialState()

	succs := problem.Transition(start, ctp.Action{From: 0, To: 1})
	require.Len(t, succs, 1)
	require.Equal(t, 1.0, succs[0].Probability)
}

func TestTransitionOnUnknownEdgeSplitsByBlockProbability(t *testing.T) {
	problem := ctp.New(triangleGraph(), 0, 2, 2.0)
	// Move to vertex 1 first so the (1,2) edge becomes the next action.
	start := problem.InitialState()
	afterMove := problem.Transition(start, ctp.Action{From: 0, To: 1})[0].State

	succs := problem.Transition(afterMove, ctp.Action{From: 1, To: 2})
	require.Len(t, succs, 2)

	var total float64
	for _, succ := range succs {
		total += succ.Probability
	}
	require.InDelta(t, 1.0, total, 1e-9)
}

func TestGoalStateSelfLoops(t *testing.T) {
	problem := ctp.New(triangleGraph(), 0, 2, 2.0)

	goalState := problem.Transition(problem.InitialState(), ctp.Action{From: 0, To: 2})[0].State
	require.True(t, problem.Goal(goalState))

	succs := problem.Transition(goalState, ctp.Action{From: 0, To: 2})
	require.Len(t, succs, 1)
	require.Equal(t, goalState, succs[0].State)
}

func TestHeuristicIsZeroAtGoal(t *testing.T) {
	problem := ctp.New(triangleGraph(), 0, 2, 2.0)
	goalState := problem.Transition(problem.InitialState(), ctp.Action{From: 0, To: 2})[0].State

	require.Equal(t, 0.0, problem.Heuristic(goalState))
}

func TestHeuristicIsAdmissibleLowerBound(t *testing.T) {
	problem := ctp.New(triangleGraph(), 0, 2, 2.0)
	start := problem.InitialState()

	// The true optimal cost to reach 2 from 0 is at most the direct 0-2
	// edge's weight (5.0), since that edge is always open; the heuristic
	// (shortest path ignoring uncertainty) must never exceed that.
	require.LessOrEqual(t, problem.Heuristic(start), 5.0)
}

func TestNeighborsAreSortedAscending(t *testing.T) {
	g := ctp.NewGraph(4)
	g.AddEdge(0, 3, 1, 0)
	g.AddEdge(0, 1, 1, 0)
	g.AddEdge(0, 2, 1, 0)

	require.Equal(t, []int{1, 2, 3}, g.Neighbors(0))
}
