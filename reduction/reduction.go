// Package reduction implements a determinization-reduction layer:
// rather than planning over every stochastic outcome of
// an action, a Reduction keeps only the k "primary" outcomes (by whatever
// rule the Reduction implements) and renormalizes their probabilities,
// producing a smaller, faster-to-solve approximation of the original
// problem. This is grounded on the original mdp-lib's
// ReducedTransition/CustomReduction/MostLikelyOutcomeReduction/
// LeastLikelyOutcomeReduction family (test/reduced/testReduced.cpp), which
// a from-scratch reimplementation would otherwise skip entirely.
package reduction

import (
	"sort"

	"github.com/mejrpete/mdp-lib/mdp"
)

// Reduction picks which of problem.Transition(s, a)'s outcomes are primary
// for a given (state, action) pair. The returned indices refer to
// positions in the slice problem.Transition(s, a) returns.
type Reduction interface {
	PrimaryOutcomes(problem mdp.Problem, s mdp.State, a mdp.Action) []int
}

// MostLikelyOutcomeReduction keeps the K highest-probability outcomes of
// every transition, the reduction the original mdp-lib used by default for
// the "best-det-racing"/"best-m02-racing" racetrack benchmarks.
type MostLikelyOutcomeReduction struct{ K int }

func (r MostLikelyOutcomeReduction) PrimaryOutcomes(problem mdp.Problem, s mdp.State, a mdp.Action) []int {
	return topKByProbability(problem.Transition(s, a), r.K, true)
}

// LeastLikelyOutcomeReduction keeps the K lowest-probability outcomes,
// useful for pessimistic/risk-averse planning (tested in the original
// mdp-lib alongside MostLikelyOutcomeReduction).
type LeastLikelyOutcomeReduction struct{ K int }

func (r LeastLikelyOutcomeReduction) PrimaryOutcomes(problem mdp.Problem, s mdp.State, a mdp.Action) []int {
	return topKByProbability(problem.Transition(s, a), r.K, false)
}

func topKByProbability(successors []mdp.Successor, k int, mostLikely bool) []int {
	if k <= 0 || k >= len(successors) {
		all := make([]int, len(successors))
		for i := range all {
			all[i] = i
		}
		return all
	}

	indices := make([]int, len(successors))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(i, j int) bool {
		if mostLikely {
			return successors[indices[i]].Probability > successors[indices[j]].Probability
		}
		return successors[indices[i]].Probability < successors[indices[j]].Probability
	})
	return indices[:k]
}

// CustomReduction lets a caller assign which outcome indices are primary
// per individual action, rather than by a fixed rule -- the template the
// reduction-search routines in search.go mutate while exploring the space
// of possible reductions (the original mdp-lib's CustomReduction, whose
// primaryIndicatorsActions map this keeps the same shape as: one boolean
// vector per action).
type CustomReduction struct {
	primary map[uint64][]bool
}

// NewCustomReduction seeds every action with every outcome marked primary
// (i.e. equivalent to no reduction at all) for each action in actions,
// where the outcome count for a is len(problem.Transition(initial, a)).
func NewCustomReduction(problem mdp.Problem, initial mdp.State, actions []mdp.Action) *CustomReduction {
	c := &CustomReduction{primary: map[uint64][]bool{}}
	for _, a := range actions {
		n := len(problem.Transition(initial, a))
		flags := make([]bool, n)
		for i := range flags {
			flags[i] = true
		}
		c.primary[a.Hash()] = flags
	}
	return c
}

// SetPrimary overwrites the primary-outcome flags for action a.
func (c *CustomReduction) SetPrimary(a mdp.Action, flags []bool) {
	cp := make([]bool, len(flags))
	copy(cp, flags)
	c.primary[a.Hash()] = cp
}

// Clone deep-copies the reduction so a search routine can try a
// modification without disturbing the template it started from.
func (c *CustomReduction) Clone() *CustomReduction {
	clone := &CustomReduction{primary: make(map[uint64][]bool, len(c.primary))}
	for k, v := range c.primary {
		cp := make([]bool, len(v))
		copy(cp, v)
		clone.primary[k] = cp
	}
	return clone
}

func (c *CustomReduction) PrimaryOutcomes(problem mdp.Problem, s mdp.State, a mdp.Action) []int {
	flags, ok := c.primary[a.Hash()]
	if !ok {
		all := make([]int, len(problem.Transition(s, a)))
		for i := range all {
			all[i] = i
		}
		return all
	}
	var indices []int
	for i, flag := range flags {
		if flag && i < len(problem.Transition(s, a)) {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		// Every outcome was dropped: fall back to the single most likely
		// one so the reduced model never leaves an action with no
		// successors at all.
		indices = topKByProbability(problem.Transition(s, a), 1, true)
	}
	return indices
}
