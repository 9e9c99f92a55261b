package racetrack

import (
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/dp"
)

// DeterministicHeuristic precomputes the optimal cost-to-go of the
// zero-slip, zero-error relaxation of a racetrack problem and serves it as
// an admissible heuristic for the original stochastic problem, grounded on
// the original mdp-lib's RTrackDetHeuristic: "setPSlip(0.00); setPError
// (0.00); ... generateAll(); VISolver(detProblem_, 1000, 0.001)". Since the
// deterministic relaxation can only make outcomes better (no slip, no
// error), its optimal values lower-bound the true stochastic values.
type DeterministicHeuristic struct {
	det *Problem
	reg *registry.StateRegistry
}

// NewDeterministicHeuristic builds the zero-slip/zero-error relaxation of a
// racetrack problem described by the same track and max velocity, and
// solves it to convergence with Value Iteration.
func NewDeterministicHeuristic(track []string, maxVelocity int) (*DeterministicHeuristic, error) {
	det := New(track, 0.0, 0.0, maxVelocity)
	reg := registry.New(det)
	root := reg.Intern(det.InitialState())
	_ = root

	if _, err := dp.ValueIteration(det, reg, dp.DefaultValueIterationConfig()); err != nil {
		return nil, err
	}
	return &DeterministicHeuristic{det: det, reg: reg}, nil
}

// Value returns the precomputed deterministic-relaxation value for the
// corresponding state, looked up without interning, and conservatively
// falls back to 0 (never overestimating) if it was never visited while
// solving the relaxation.
func (h *DeterministicHeuristic) Value(s mdp.State) float64 {
	node, ok := h.reg.Lookup(s)
	if !ok {
		return 0
	}
	return node.Value
}

// WithHeuristic returns a copy of problem whose Heuristic method consults h
// instead of returning 0.
func WithHeuristic(problem *Problem, h *DeterministicHeuristic) *HeuristicProblem {
	return &HeuristicProblem{Problem: problem, heuristic: h}
}

// HeuristicProblem overrides Problem.Heuristic with a DeterministicHeuristic.
type HeuristicProblem struct {
	*Problem
	heuristic *DeterministicHeuristic
}

func (p *HeuristicProblem) Heuristic(s mdp.State) float64 {
	return p.heuristic.Value(s)
}
