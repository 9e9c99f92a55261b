package dp

import (
	"math"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// LexiProblem is an mdp.Problem with several cost functions, ranked in
// priority order: level 0 must be optimized first, and among the actions
// that achieve the level-0 optimum (within epsilon), level 1 is optimized,
// and so on. This generalizes mdp.Problem.Cost to a vector, grounded on the
// original mdp-lib's LexiLAOStarSolver/LexiProblem, generalizing
// mdp.Problem's single scalar cost to a priority-ordered vector.
type LexiProblem interface {
	mdp.Problem
	NumObjectives() int
	ObjectiveCost(level int, s mdp.State, a mdp.Action) float64
}

// LexicographicLAOStarResult reports the per-level envelope sizes.
type LexicographicLAOStarResult struct {
	Levels []LAOStarResult
}

// levelView adapts a LexiProblem at a fixed objective level to a plain
// mdp.Problem, with Applicable further restricted to actionMask (the
// actions that were optimal, within epsilon, at every prior level). A nil
// actionMask imposes no restriction (used for level 0).
type levelView struct {
	LexiProblem
	level      int
	actionMask map[uint64]map[uint64]bool // state hash -> action hash -> allowed
}

func (v *levelView) Applicable(s mdp.State, a mdp.Action) bool {
	if !v.LexiProblem.Applicable(s, a) {
		return false
	}
	if v.actionMask == nil {
		return true
	}
	allowed, ok := v.actionMask[s.Hash()]
	if !ok {
		return true
	}
	return allowed[a.Hash()]
}

func (v *levelView) Cost(s mdp.State, a mdp.Action) float64 {
	return v.LexiProblem.ObjectiveCost(v.level, s, a)
}

// LexicographicLAOStar solves problem one objective at a time: it runs
// ordinary LAO* against level 0's costs, then recomputes, for every visited
// state, the set of actions whose level-0 Q-value is within epsilon of that
// state's optimal level-0 value, and reruns LAO* at level 1 restricted to
// that action mask, and so on through every objective. The registry's node
// values after this call reflect the final (lowest-priority) objective;
// intermediate per-level values are discarded once their action mask has
// been extracted.
func LexicographicLAOStar(
	problem LexiProblem,
	reg *registry.StateRegistry,
	root *registry.Node,
	cfg LAOStarConfig,
) LexicographicLAOStarResult {
	result := LexicographicLAOStarResult{}

	var mask map[uint64]map[uint64]bool
	for level := 0; level < problem.NumObjectives(); level++ {
		view := &levelView{LexiProblem: problem, level: level, actionMask: mask}
		reg.Reset()
		levelResult := LAOStar(view, reg, root, cfg)
		result.Levels = append(result.Levels, levelResult)

		if level == problem.NumObjectives()-1 {
			break
		}

		visited, _ := bellman.Reachable(view, reg, root, envelopeHorizon)
		mask = buildActionMask(view, reg, visited, cfg.Epsilon)
	}

	return result
}

// buildActionMask records, for each visited non-goal state, which actions
// achieve that state's optimal value within epsilon -- the set the next
// lexicographic level is restricted to.
func buildActionMask(
	problem mdp.Problem,
	reg *registry.StateRegistry,
	visited []*registry.Node,
	epsilon float64,
) map[uint64]map[uint64]bool {
	mask := make(map[uint64]map[uint64]bool, len(visited))
	for _, node := range visited {
		if problem.Goal(node.State) {
			continue
		}
		allowed := make(map[uint64]bool)
		for _, a := range problem.Actions() {
			if !problem.Applicable(node.State, a) {
				continue
			}
			q := bellman.QValue(problem, reg, node.State, a)
			if math.Abs(q-node.Value) <= epsilon {
				allowed[a.Hash()] = true
			}
		}
		mask[node.State.Hash()] = allowed
	}
	return mask
}
