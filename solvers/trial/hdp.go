package trial

import (
	"math/rand"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// HDPConfig bounds an HDP run (Bonet & Geffner 2003's Heuristic DP, the
// SCC-based generalization of LRTDP's checkSolved).
type HDPConfig struct {
	Epsilon   float64
	MaxTrials int
	MaxDepth  int
	Rng       *rand.Rand
}

// DefaultHDPConfig mirrors DefaultLRTDPConfig.
func DefaultHDPConfig(rng *rand.Rand) HDPConfig {
	return HDPConfig{Epsilon: 0.001, MaxTrials: 1_000_000, MaxDepth: 1000, Rng: rng}
}

// HDPResult reports how HDP terminated.
type HDPResult struct {
	Trials int
	Solved bool
}

// HDP runs like LRTDP (greedy trials updating every visited node), but
// replaces checkSolved's single-node-at-a-time DFS with an explicit-stack
// Tarjan strongly-connected-components pass over the greedy envelope:
// an entire SCC is labeled Solved at once once every node in it has
// converged and every edge leaving the SCC already leads to a Solved node.
// This is strictly more powerful than LRTDP's labeling on problems whose
// greedy policy graph contains cycles, since LRTDP must re-traverse a
// cycle's nodes one full DFS at a time before it can label any of them.
func HDP(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, cfg HDPConfig) HDPResult {
	result := HDPResult{}

	for trial := 0; cfg.MaxTrials == 0 || trial < cfg.MaxTrials; trial++ {
		if root.Labels.Test(registry.Solved) {
			result.Solved = true
			return result
		}
		result.Trials++
		runLRTDPTrial(problem, reg, root, LRTDPConfig{MaxDepth: cfg.MaxDepth, Rng: cfg.Rng})
		tarjanLabelSolved(problem, reg, root, cfg.Epsilon)
	}

	result.Solved = root.Labels.Test(registry.Solved)
	return result
}

// tarjanNode carries the bookkeeping an iterative Tarjan SCC pass needs,
// keyed by node identity for the duration of one labeling pass.
type tarjanNode struct {
	index, lowlink int
	onStack        bool
	converged      bool // true if every member seen so far has residual <= epsilon
}

// tarjanLabelSolved runs an explicit-stack Tarjan SCC decomposition of the
// greedy policy graph reachable from s (an explicit stack rather than
// recursive search, so depth isn't bound by Go's call stack), visiting each node's successors
// under its current best_action (recomputing it via BellmanUpdate on first
// visit). Every SCC discovered is labeled Solved as soon as it is popped,
// provided all its members converged (residual <= epsilon) and every edge
// leaving the SCC lands on an already-Solved node; otherwise its members
// are left unlabeled for the next trial.
func tarjanLabelSolved(problem mdp.Problem, reg *registry.StateRegistry, s *registry.Node, epsilon float64) {
	info := map[*registry.Node]*tarjanNode{}
	var sccStack []*registry.Node
	nextIndex := 0

	type frame struct {
		node     *registry.Node
		children []*registry.Node
		pos      int
	}
	var callStack []*frame

	visit := func(n *registry.Node) *frame {
		info[n] = &tarjanNode{index: nextIndex, lowlink: nextIndex, onStack: true, converged: true}
		nextIndex++
		sccStack = append(sccStack, n)

		if problem.Goal(n.State) || n.Labels.Test(registry.DeadEnd) || n.Labels.Test(registry.Solved) {
			return &frame{node: n}
		}

		bellman.BellmanUpdate(problem, reg, n)
		if residualAbove(n, epsilon) {
			info[n].converged = false
		}

		var children []*registry.Node
		if n.BestAction != nil {
			for _, succ := range problem.Transition(n.State, n.BestAction) {
				child := reg.Intern(succ.State)
				if !child.Labels.Test(registry.Solved) {
					children = append(children, child)
				}
			}
		}
		return &frame{node: n, children: children}
	}

	callStack = append(callStack, visit(s))

	for len(callStack) > 0 {
		top := callStack[len(callStack)-1]

		if top.pos < len(top.children) {
			child := top.children[top.pos]
			top.pos++
			if _, seen := info[child]; !seen {
				callStack = append(callStack, visit(child))
				continue
			}
			if info[child].onStack && info[child].index < info[top.node].lowlink {
				info[top.node].lowlink = info[child].index
			}
			if !info[child].converged {
				info[top.node].converged = false
			}
			continue
		}

		// All children processed; pop this frame.
		callStack = callStack[:len(callStack)-1]
		if len(callStack) > 0 {
			parent := callStack[len(callStack)-1]
			if info[top.node].lowlink < info[parent.node].lowlink {
				info[parent.node].lowlink = info[top.node].lowlink
			}
			if !info[top.node].converged {
				info[parent.node].converged = false
			}
		}

		if info[top.node].lowlink != info[top.node].index {
			continue
		}

		// top.node is an SCC root: pop the component off sccStack.
		var component []*registry.Node
		allConverged := true
		for {
			n := sccStack[len(sccStack)-1]
			sccStack = sccStack[:len(sccStack)-1]
			info[n].onStack = false
			component = append(component, n)
			if !info[n].converged {
				allConverged = false
			}
			if n == top.node {
				break
			}
		}

		if allConverged {
			for _, n := range component {
				n.Labels.Set(registry.Solved)
			}
		}
	}
}
