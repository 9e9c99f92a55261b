package trial

import (
	"math"
	"math/rand"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

const upperBoundKey = "brtdp_upper"

// BRTDPConfig bounds a Bounded RTDP run (McMahan, Likhachev & Gordon 2005).
// Tau is the paper's trial-termination constant: a trial stops descending
// once the successors' total gap mass falls below the trial root's gap
// divided by Tau, so larger values chase uncertainty deeper.
type BRTDPConfig struct {
	Epsilon    float64
	Tau        float64
	MaxTrials  int
	MaxDepth   int
	UpperBound func(mdp.Problem, mdp.State) float64 // admissible-from-above seed
	Rng        *rand.Rand
}

// DefaultBRTDPConfig seeds the upper bound at the problem's dead-end cost,
// the loosest admissible-from-above bound available without extra domain
// knowledge.
func DefaultBRTDPConfig(rng *rand.Rand) BRTDPConfig {
	return BRTDPConfig{
		Epsilon:    0.001,
		Tau:        100,
		MaxTrials:  1_000_000,
		MaxDepth:   1000,
		UpperBound: func(p mdp.Problem, _ mdp.State) float64 { return p.DeadEndCost() },
		Rng:        rng,
	}
}

// BRTDPResult reports the final bound gap at root.
type BRTDPResult struct {
	Trials int
	Gap    float64
	Solved bool
}

func upperOf(problem mdp.Problem, node *registry.Node, cfg BRTDPConfig) float64 {
	if problem.Goal(node.State) {
		return 0
	}
	return node.Extra(upperBoundKey, cfg.UpperBound(problem, node.State))
}

// BRTDP tracks a lower bound (the ordinary registry.Node.Value, updated by
// bellman.BellmanUpdate) and an upper bound (stored in the node's Extra
// bookkeeping slot) simultaneously, and samples successors during each
// trial weighted by their contribution to the lower/upper bound gap rather
// than uniformly by transition probability -- concentrating trials where
// the value estimate is least certain. It stops once the bound gap at root
// is below epsilon.
func BRTDP(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, cfg BRTDPConfig) BRTDPResult {
	result := BRTDPResult{}

	for trial := 0; cfg.MaxTrials == 0 || trial < cfg.MaxTrials; trial++ {
		gap := upperOf(problem, root, cfg) - root.Value
		if gap < cfg.Epsilon {
			result.Gap = gap
			result.Solved = true
			return result
		}
		result.Trials++
		runBRTDPTrial(problem, reg, root, cfg)
	}

	result.Gap = upperOf(problem, root, cfg) - root.Value
	return result
}

func runBRTDPTrial(problem mdp.Problem, reg *registry.StateRegistry, node *registry.Node, cfg BRTDPConfig) {
	visited := []*registry.Node{}
	cur := node
	rootGap := upperOf(problem, node, cfg) - node.Value

	for depth := 0; cfg.MaxDepth == 0 || depth < cfg.MaxDepth; depth++ {
		visited = append(visited, cur)
		if problem.Goal(cur.State) {
			break
		}

		bellman.BellmanUpdate(problem, reg, cur)
		updateUpperBound(problem, reg, cur, cfg)
		if cur.BestAction == nil {
			break
		}

		successors := problem.Transition(cur.State, cur.BestAction)
		next, gapMass := sampleByBoundGap(problem, reg, successors, cfg)
		if cfg.Tau > 0 && gapMass < rootGap/cfg.Tau {
			break
		}
		cur = next
	}

	for i := len(visited) - 1; i >= 0; i-- {
		n := visited[i]
		if problem.Goal(n.State) {
			continue
		}
		bellman.BellmanUpdate(problem, reg, n)
		updateUpperBound(problem, reg, n, cfg)
	}
}

func updateUpperBound(problem mdp.Problem, reg *registry.StateRegistry, node *registry.Node, cfg BRTDPConfig) {
	if problem.Goal(node.State) {
		node.SetExtra(upperBoundKey, 0)
		return
	}
	best := math.Inf(1)
	for _, a := range problem.Actions() {
		if !problem.Applicable(node.State, a) {
			continue
		}
		q := problem.Cost(node.State, a)
		for _, succ := range problem.Transition(node.State, a) {
			child := reg.Intern(succ.State)
			q += succ.Probability * upperOf(problem, child, cfg)
		}
		if q < best {
			best = q
		}
	}
	if math.IsInf(best, 1) {
		best = problem.DeadEndCost()
	}
	node.SetExtra(upperBoundKey, best)
}

// sampleByBoundGap draws a successor with probability proportional to
// P(s'|s,a) * (upper(s') - lower(s')), McMahan et al.'s "outcome selection"
// rule, falling back to mdp.Successor order on a degenerate (all-zero) gap
// distribution. The second return is the total gap mass across the
// successors, which the trial loop tests against rootGap/Tau to decide
// whether descending further is still informative.
func sampleByBoundGap(problem mdp.Problem, reg *registry.StateRegistry, successors []mdp.Successor, cfg BRTDPConfig) (*registry.Node, float64) {
	type weighted struct {
		node *registry.Node
		w    float64
	}
	var candidates []weighted
	var totalWeight float64
	for _, succ := range successors {
		child := reg.Intern(succ.State)
		gap := upperOf(problem, child, cfg) - child.Value
		w := succ.Probability * gap
		candidates = append(candidates, weighted{child, w})
		totalWeight += w
	}

	if totalWeight <= 0 {
		return candidates[0].node, 0
	}

	r := cfg.Rng.Float64() * totalWeight
	var cumulative float64
	for _, c := range candidates {
		cumulative += c.w
		if r <= cumulative {
			return c.node, totalWeight
		}
	}
	return candidates[len(candidates)-1].node, totalWeight
}
