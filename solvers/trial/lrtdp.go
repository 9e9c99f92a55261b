// Package trial implements the trial-based family of real-time dynamic
// programming solvers: LRTDP, BRTDP, VPI-RTDP, HDP, and
// the FLARES/Soft-FLARES depth-relaxed variants. Each repeatedly simulates
// a single trajectory from the initial state under the current greedy
// policy, updating every node visited, and converges once enough of the
// reachable space has been labeled solved.
package trial

import (
	"math"
	"math/rand"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// LRTDPConfig bounds an LRTDP run.
type LRTDPConfig struct {
	Epsilon   float64
	MaxTrials int // 0 means unbounded (run until root is Solved)
	MaxDepth  int // per-trial depth cap, 0 means unbounded
	Rng       *rand.Rand
}

// DefaultLRTDPConfig mirrors the original mdp-lib's LRTDPSolver defaults.
func DefaultLRTDPConfig(rng *rand.Rand) LRTDPConfig {
	return LRTDPConfig{Epsilon: 0.001, MaxTrials: 1_000_000, MaxDepth: 1000, Rng: rng}
}

// LRTDPResult reports how many trials ran before root was solved (or the
// trial budget ran out).
type LRTDPResult struct {
	Trials int
	Solved bool
}

// LRTDP runs Labeled RTDP (Bonet & Geffner 2003): repeated greedy trials
// from root, each updating every node along the way via bellman.
// BellmanUpdate, followed by a checkSolved pass that labels a node (and its
// greedy descendants) Solved once their residuals all fall under epsilon.
// The algorithm terminates once root is labeled Solved.
func LRTDP(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, cfg LRTDPConfig) LRTDPResult {
	result := LRTDPResult{}

	for trial := 0; cfg.MaxTrials == 0 || trial < cfg.MaxTrials; trial++ {
		if root.Labels.Test(registry.Solved) {
			result.Solved = true
			return result
		}
		result.Trials++
		runLRTDPTrial(problem, reg, root, cfg)
		checkSolved(problem, reg, root, cfg.Epsilon)
	}

	result.Solved = root.Labels.Test(registry.Solved)
	return result
}

// runLRTDPTrial walks one greedy trajectory from node, updating every state
// visited, until it reaches a goal, a dead end, an already-Solved state, or
// cfg.MaxDepth transitions.
func runLRTDPTrial(problem mdp.Problem, reg *registry.StateRegistry, node *registry.Node, cfg LRTDPConfig) {
	cur := node
	for depth := 0; cfg.MaxDepth == 0 || depth < cfg.MaxDepth; depth++ {
		if problem.Goal(cur.State) || cur.Labels.Test(registry.Solved) || cur.Labels.Test(registry.DeadEnd) {
			return
		}
		bellman.BellmanUpdate(problem, reg, cur)
		if cur.BestAction == nil {
			return
		}
		next := bellman.RandomSuccessor(problem, cur.State, cur.BestAction, cfg.Rng)
		cur = reg.Intern(next)
	}
}

// checkSolved is Bonet & Geffner's CHECK-SOLVED: an explicit-stack DFS from
// s over the greedy policy graph, using an explicit stack instead of
// recursion so depth isn't bound by Go's call stack, that labels every visited
// node Solved if all of their residuals are below epsilon, or leaves them
// unlabeled and re-updates them (in reverse visitation order) otherwise.
func checkSolved(problem mdp.Problem, reg *registry.StateRegistry, s *registry.Node, epsilon float64) bool {
	rv := true
	var open []*registry.Node
	visited := map[*registry.Node]bool{}

	type frame struct{ node *registry.Node }
	stack := []frame{{s}}
	order := []*registry.Node{}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := top.node

		if visited[node] {
			continue
		}
		visited[node] = true
		node.Labels.Set(registry.Closed)
		order = append(order, node)

		if problem.Goal(node.State) || node.Labels.Test(registry.DeadEnd) {
			continue
		}

		bellman.BellmanUpdate(problem, reg, node)
		if residualAbove(node, epsilon) {
			rv = false
		}

		if node.BestAction == nil {
			continue
		}
		for _, succ := range problem.Transition(node.State, node.BestAction) {
			child := reg.Intern(succ.State)
			if !visited[child] && !child.Labels.Test(registry.Solved) {
				open = append(open, child)
				stack = append(stack, frame{child})
			}
		}
	}

	if rv {
		for _, node := range order {
			node.Labels.Set(registry.Solved)
			node.Labels.Clear(registry.Closed)
		}
	} else {
		// Re-update nodes in reverse visitation order (as Bonet & Geffner
		// specify) and clear the Closed scratch flag.
		for i := len(order) - 1; i >= 0; i-- {
			node := order[i]
			if !problem.Goal(node.State) && !node.Labels.Test(registry.DeadEnd) {
				bellman.BellmanUpdate(problem, reg, node)
			}
			node.Labels.Clear(registry.Closed)
		}
	}

	return rv
}

// residualAbove reports whether node's last-computed residual exceeds
// epsilon: the single convergence test shared by checkSolved, HDP's SCC
// labeling pass, and the FLARES/Soft-FLARES labeling DFSes.
func residualAbove(node *registry.Node, epsilon float64) bool {
	return math.Abs(node.Residual) > epsilon
}
