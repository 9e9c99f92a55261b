package bellman

import (
	"math/rand"

	"github.com/mejrpete/mdp-lib/mdp"
)

// RandomSuccessor draws a successor state from the distribution returned by
// problem.Transition(s, a), using rng for reproducibility: seeding is
// exposed to the caller rather than consulting a hidden process-wide RNG.
// Callers own the *rand.Rand so that two
// solver runs seeded identically produce identical trial orderings.
func RandomSuccessor(problem mdp.Problem, s mdp.State, a mdp.Action, rng *rand.Rand) mdp.State {
	successors := problem.Transition(s, a)
	if len(successors) == 0 {
		return s
	}

	r := rng.Float64()
	var cumulative float64
	for _, succ := range successors {
		cumulative += succ.Probability
		if r <= cumulative {
			return succ.State
		}
	}
	// Floating-point slop: fall back to the last outcome rather than
	// panicking on a distribution that sums to (1 - epsilon).
	return successors[len(successors)-1].State
}

// MostLikelyOutcome returns the highest-probability successor of (s, a).
// Ties are broken by first-enumerated-wins, matching GreedyAction's
// tie-breaking convention.
func MostLikelyOutcome(problem mdp.Problem, s mdp.State, a mdp.Action) mdp.Successor {
	successors := problem.Transition(s, a)
	best := successors[0]
	for _, succ := range successors[1:] {
		if succ.Probability > best.Probability {
			best = succ
		}
	}
	return best
}
