package reduction

import "github.com/mejrpete/mdp-lib/mdp"

// Wrapper overrides which states count as Goal without otherwise changing
// the wrapped problem, grounded on the original mdp-lib's WrapperProblem
// ("it will allow us to plan in advance for the set of successors of a
// state-action" -- testReduced.cpp). Used to restrict planning to a
// short-sighted subgoal frontier, the same role bellman.Reachable's tip
// states and shortsighted.ShortSightedProblem serve elsewhere in this
// repository, exposed here as an explicit, reusable override rather than
// baked into one solver.
type Wrapper struct {
	mdp.Problem
	overrideGoals map[uint64]bool
}

// NewWrapper builds a Wrapper with no goal override (Goal passes through
// to problem unchanged).
func NewWrapper(problem mdp.Problem) *Wrapper {
	return &Wrapper{Problem: problem}
}

// OverrideGoals replaces the wrapper's goal set: every state in goals is
// treated as a goal regardless of what problem.Goal reports, and no other
// state is (problem.Goal is not consulted while an override is active).
func (w *Wrapper) OverrideGoals(goals []mdp.State) {
	set := make(map[uint64]bool, len(goals))
	for _, s := range goals {
		set[s.Hash()] = true
	}
	w.overrideGoals = set
}

// ClearOverrideGoals restores Goal to the wrapped problem's own definition.
func (w *Wrapper) ClearOverrideGoals() {
	w.overrideGoals = nil
}

func (w *Wrapper) Goal(s mdp.State) bool {
	if w.overrideGoals != nil {
		return w.overrideGoals[s.Hash()]
	}
	return w.Problem.Goal(s)
}
