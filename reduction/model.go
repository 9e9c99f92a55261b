package reduction

import "github.com/mejrpete/mdp-lib/mdp"

// Model wraps an mdp.Problem so that Transition only returns the outcomes
// a Reduction marks primary, renormalized to sum to 1, grounded on the
// original mdp-lib's ReducedModel. Everything else (Cost, Goal, Heuristic,
// Applicable, Actions, InitialState) passes straight through to the
// underlying problem: the reduction changes the dynamics a solver sees,
// not the problem's structure.
type Model struct {
	mdp.Problem
	reduction Reduction
}

// NewModel builds a Model reducing problem's transitions through
// reduction.
func NewModel(problem mdp.Problem, reduction Reduction) *Model {
	return &Model{Problem: problem, reduction: reduction}
}

// Transition returns only the primary outcomes of the underlying problem's
// transition, with probabilities renormalized to sum to 1.
func (m *Model) Transition(s mdp.State, a mdp.Action) []mdp.Successor {
	full := m.Problem.Transition(s, a)
	primary := m.reduction.PrimaryOutcomes(m.Problem, s, a)

	var total float64
	kept := make([]mdp.Successor, 0, len(primary))
	for _, idx := range primary {
		kept = append(kept, full[idx])
		total += full[idx].Probability
	}
	if total <= 0 {
		return full
	}
	for i := range kept {
		kept[i].Probability /= total
	}
	return kept
}
