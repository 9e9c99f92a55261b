package reduction

import (
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/dp"
)

// evaluateReduction scores a candidate reduction by solving problem under
// it to convergence with Value Iteration and returning the resulting
// initial-state value -- the Go analogue of the original mdp-lib's
// ReducedModel::evaluateMarkovChain.
func evaluateReduction(problem mdp.Problem, reduction Reduction) (float64, error) {
	model := NewModel(problem, reduction)
	reg := registry.New(model)
	root := reg.Intern(model.InitialState())

	if _, err := dp.ValueIteration(model, reg, dp.DefaultValueIterationConfig()); err != nil {
		return 0, err
	}
	return root.Value, nil
}

// BruteForceSearch evaluates every candidate in candidates and returns the
// one with the lowest expected cost, grounded on the original mdp-lib's
// findBestReductionBruteForce (testReduced.cpp). The sweep is exhaustive
// over the candidates passed in; it does not generate primary-outcome
// assignments itself.
func BruteForceSearch(problem mdp.Problem, candidates []Reduction) (Reduction, float64, error) {
	var best Reduction
	bestCost := problem.DeadEndCost() + 1
	for _, candidate := range candidates {
		cost, err := evaluateReduction(problem, candidate)
		if err != nil {
			return nil, 0, err
		}
		if cost < bestCost {
			bestCost = cost
			best = candidate
		}
	}
	return best, bestCost, nil
}

// GreedySearchConfig bounds GreedySearch.
type GreedySearchConfig struct {
	// Tau is the fraction above the unreduced problem's optimal cost the
	// search tolerates before stopping (the original mdp-lib's tau,
	// default 1.2: stop once dropping another outcome would push expected
	// cost more than 20% above the full model's).
	Tau float64
	// MinPrimaryOutcomes is the floor on primary outcomes per action the
	// search will not reduce below (the original mdp-lib's l).
	MinPrimaryOutcomes int
}

// DefaultGreedySearchConfig mirrors testReduced.cpp's tau=1.2, l=2.
func DefaultGreedySearchConfig() GreedySearchConfig {
	return GreedySearchConfig{Tau: 1.2, MinPrimaryOutcomes: 2}
}

// GreedySearch implements the original mdp-lib's findBestReductionGreedy
// (http://anytime.cs.umass.edu/shlomo/papers/PZicaps14.pdf): starting from
// the unreduced model (every outcome primary), it repeatedly removes
// whichever single outcome (across any actionGroup still holding more than
// cfg.MinPrimaryOutcomes primary outcomes) increases expected cost the
// least, stopping once the best remaining removal would push expected cost
// above cfg.Tau times the original, or once every group is down to
// cfg.MinPrimaryOutcomes outcomes.
func GreedySearch(
	problem mdp.Problem,
	template *CustomReduction,
	actionGroups [][]mdp.Action,
	cfg GreedySearchConfig,
) (*CustomReduction, float64, error) {
	originalCost, err := evaluateReduction(problem, template)
	if err != nil {
		return nil, 0, err
	}

	current := template.Clone()
	for {
		bestCost := problem.DeadEndCost() + 1
		bestGroup, bestOutcome := -1, -1

		for groupIdx, group := range actionGroups {
			if len(group) == 0 {
				continue
			}
			if groupSatisfiesFloor(current, [][]mdp.Action{group}, cfg.MinPrimaryOutcomes) {
				continue
			}
			flags := current.primary[group[0].Hash()]
			for outcomeIdx, isPrimary := range flags {
				if !isPrimary {
					continue
				}
				trial := current.Clone()
				for _, a := range group {
					trialFlags := trial.primary[a.Hash()]
					if outcomeIdx < len(trialFlags) {
						trialFlags[outcomeIdx] = false
					}
				}
				cost, err := evaluateReduction(problem, trial)
				if err != nil {
					return nil, 0, err
				}
				if cost < bestCost {
					bestCost = cost
					bestGroup, bestOutcome = groupIdx, outcomeIdx
				}
			}
		}

		if bestGroup == -1 {
			break
		}

		if bestCost > cfg.Tau*originalCost {
			break
		}

		for _, a := range actionGroups[bestGroup] {
			flags := current.primary[a.Hash()]
			if bestOutcome < len(flags) {
				flags[bestOutcome] = false
			}
		}
	}

	finalCost, err := evaluateReduction(problem, current)
	if err != nil {
		return nil, 0, err
	}
	return current, finalCost, nil
}

func groupSatisfiesFloor(reduction *CustomReduction, actionGroups [][]mdp.Action, floor int) bool {
	for _, group := range actionGroups {
		if len(group) == 0 {
			continue
		}
		count := 0
		for _, isPrimary := range reduction.primary[group[0].Hash()] {
			if isPrimary {
				count++
			}
		}
		if count > floor {
			return false
		}
	}
	return true
}
