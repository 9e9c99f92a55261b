package trial

import (
	"math"
	"math/rand"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// VPIRTDPConfig bounds a VPI-RTDP run. Beta trades exploitation (pure
// greedy Q-value) against exploration of actions whose successors still
// carry a wide lower/upper bound gap, i.e. a high value of perfect
// information.
type VPIRTDPConfig struct {
	Epsilon    float64
	Beta       float64
	MaxTrials  int
	MaxDepth   int
	UpperBound func(mdp.Problem, mdp.State) float64
	Rng        *rand.Rand
}

// DefaultVPIRTDPConfig picks a modest exploration bonus.
func DefaultVPIRTDPConfig(rng *rand.Rand) VPIRTDPConfig {
	return VPIRTDPConfig{
		Epsilon:    0.001,
		Beta:       0.5,
		MaxTrials:  1_000_000,
		MaxDepth:   1000,
		UpperBound: func(p mdp.Problem, _ mdp.State) float64 { return p.DeadEndCost() },
		Rng:        rng,
	}
}

// VPIRTDPResult reports the final bound gap at root, analogous to BRTDP's.
type VPIRTDPResult struct {
	Trials int
	Gap    float64
	Solved bool
}

// VPIRTDP is RTDP with an action-selection rule that favors actions whose
// successors carry the most remaining value-of-perfect-information: among
// applicable actions it picks argmin_a (Q(s,a) - Beta * VPI(s,a)), where
// VPI(s,a) approximates the expected reduction in regret from resolving
// that action's successor bound gaps, following Dearden, Friedman & Russell
// 1998's value-of-information action selection adapted to bellman.QValue's
// lower-bound/upper-bound pair (the same pair BRTDP maintains). It
// otherwise shares LRTDP's trial structure and checkSolved convergence
// test.
func VPIRTDP(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, cfg VPIRTDPConfig) VPIRTDPResult {
	result := VPIRTDPResult{}

	for trial := 0; cfg.MaxTrials == 0 || trial < cfg.MaxTrials; trial++ {
		gap := upperOf(problem, root, vpiUpperAdapter(cfg)) - root.Value
		result.Gap = gap
		if root.Labels.Test(registry.Solved) {
			result.Solved = true
			return result
		}
		if gap < cfg.Epsilon {
			result.Solved = true
			return result
		}
		result.Trials++
		runVPITrial(problem, reg, root, cfg)
		checkSolved(problem, reg, root, cfg.Epsilon)
	}

	result.Gap = upperOf(problem, root, vpiUpperAdapter(cfg)) - root.Value
	return result
}

// vpiUpperAdapter lets VPIRTDP reuse BRTDP's upperOf/updateUpperBound
// helpers, which take a BRTDPConfig purely for its UpperBound/Rng fields.
func vpiUpperAdapter(cfg VPIRTDPConfig) BRTDPConfig {
	return BRTDPConfig{UpperBound: cfg.UpperBound, Rng: cfg.Rng}
}

func runVPITrial(problem mdp.Problem, reg *registry.StateRegistry, node *registry.Node, cfg VPIRTDPConfig) {
	cur := node
	for depth := 0; cfg.MaxDepth == 0 || depth < cfg.MaxDepth; depth++ {
		if problem.Goal(cur.State) || cur.Labels.Test(registry.Solved) || cur.Labels.Test(registry.DeadEnd) {
			return
		}

		action := bestVPIAction(problem, reg, cur, cfg)
		if action == nil {
			bellman.BellmanUpdate(problem, reg, cur)
			updateUpperBound(problem, reg, cur, vpiUpperAdapter(cfg))
			return
		}
		bellman.BellmanUpdate(problem, reg, cur)
		updateUpperBound(problem, reg, cur, vpiUpperAdapter(cfg))

		next := bellman.RandomSuccessor(problem, cur.State, action, cfg.Rng)
		cur = reg.Intern(next)
	}
}

func bestVPIAction(problem mdp.Problem, reg *registry.StateRegistry, node *registry.Node, cfg VPIRTDPConfig) mdp.Action {
	var (
		best      mdp.Action
		bestScore = math.Inf(1)
		brtCfg    = vpiUpperAdapter(cfg)
	)
	for _, a := range problem.Actions() {
		if !problem.Applicable(node.State, a) {
			continue
		}
		q := bellman.QValue(problem, reg, node.State, a)

		var vpi float64
		for _, succ := range problem.Transition(node.State, a) {
			child := reg.Intern(succ.State)
			gap := upperOf(problem, child, brtCfg) - child.Value
			vpi += succ.Probability * gap
		}

		score := q - cfg.Beta*vpi
		if score < bestScore {
			bestScore = score
			best = a
		}
	}
	return best
}
