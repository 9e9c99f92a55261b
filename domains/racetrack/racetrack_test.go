package racetrack_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mejrpete/mdp-lib/domains/racetrack"
	"github.com/mejrpete/mdp-lib/mdp"
)

// straightTrack is a short straight corridor: a single start cell, open
// track cells, and a finish line, walls on the top and bottom rows.
var straightTrack = []string{
	"WWWWWWWWW",
	"Wo-oooo+W",
	"WWWWWWWWW",
}

func TestInitialStateStartsAtZeroVelocity(t *testing.T) {
	p := racetrack.New(straightTrack, 0.1, 0.05, 2)
	s := p.InitialState().(racetrack.State)

	require.Equal(t, 0, s.VX)
	require.Equal(t, 0, s.VY)
}

func TestStationaryOffTheStartLineIsNotApplicable(t *testing.T) {
	p := racetrack.New(straightTrack, 0.1, 0.05, 2)
	moving := racetrack.State{X: 4, Y: 1, VX: 1, VY: 0}

	require.False(t, p.Applicable(moving, racetrack.Action{Dvx: -1, Dvy: 0}),
		"decelerating to a full stop off the start line should not be applicable")
}

func TestTransitionProbabilitiesSumToOne(t *testing.T) {
	p := racetrack.New(straightTrack, 0.2, 0.1, 2)
	s := p.InitialState()
	a := racetrack.Action{Dvx: 1, Dvy: 0}

	successors := p.Transition(s, a)
	var total float64
	for _, succ := range successors {
		total += succ.Probability
	}
	require.InDelta(t, 1.0, total, 1e-9)
}

func TestGoalCellSelfLoops(t *testing.T) {
	p := racetrack.New(straightTrack, 0.1, 0.05, 2)
	goal := racetrack.State{X: 7, Y: 1, VX: 0, VY: 0}
	require.True(t, p.Goal(goal))

	successors := p.Transition(goal, racetrack.Action{Dvx: 0, Dvy: 0})
	require.Len(t, successors, 1)
	require.Equal(t, mdp.State(goal), successors[0].State)
	require.Equal(t, 1.0, successors[0].Probability)
}

func TestCrashingIntoAWallResetsToStart(t *testing.T) {
	p := racetrack.New(straightTrack, 0.0, 0.0, 2)
	start := p.InitialState().(racetrack.State)

	// From the start cell at rest, an upward velocity of 1 crosses the top wall
	// row and must reset to the start line.
	s := racetrack.State{X: start.X, Y: start.Y, VX: 0, VY: 0}
	successors := p.Transition(s, racetrack.Action{Dvx: 0, Dvy: 1})
	require.Len(t, successors, 1)

	landed := successors[0].State.(racetrack.State)
	require.Equal(t, 0, landed.VX)
	require.Equal(t, 0, landed.VY)
}

func TestDeterministicHeuristicIsZeroAtGoal(t *testing.T) {
	h, err := racetrack.NewDeterministicHeuristic(straightTrack, 2)
	require.NoError(t, err)

	goal := racetrack.State{X: 7, Y: 1, VX: 0, VY: 0}
	require.Equal(t, 0.0, h.Value(goal))
}

func TestWithHeuristicOverridesZeroDefault(t *testing.T) {
	base := racetrack.New(straightTrack, 0.1, 0.05, 2)
	h, err := racetrack.NewDeterministicHeuristic(straightTrack, 2)
	require.NoError(t, err)

	wrapped := racetrack.WithHeuristic(base, h)
	start := wrapped.InitialState()

	require.Equal(t, 0.0, base.Heuristic(start))
	require.Greater(t, wrapped.Heuristic(start), 0.0)
}
