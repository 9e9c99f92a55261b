package shortsighted

import (
	"math"
	"math/rand"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
)

// THTSBackup selects how a THTS trial propagates sampled costs back up the
// tree after a trial, grounded on the original mdp-lib's THTSSolver.h
// THTSBackup enum (MONTE_CARLO, MAX_MONTE_CARLO, PARTIAL_BELLMAN).
type THTSBackup int

const (
	// MonteCarlo backs up the plain running average of sampled costs at
	// both decision and chance nodes (THTS's baseline backup).
	MonteCarlo THTSBackup = iota
	// MaxMonteCarlo backs up the minimum of a decision node's children's
	// Monte Carlo averages rather than the node's own sampled average,
	// converging faster once a child's estimate is trustworthy.
	MaxMonteCarlo
	// PartialBellman backs a decision node up with one full Bellman
	// update over all its children's current estimates (not just the
	// sampled child), trading extra per-trial computation for lower
	// variance.
	PartialBellman
)

// THTSConfig bounds a THTS run.
type THTSConfig struct {
	NumTrials           int
	MaxDepth            int
	ExplorationConstant float64
	Backup              THTSBackup
	NumVirtualRollouts  float64 // initial visit count assigned to unvisited children, biasing early exploration
	Rng                 *rand.Rand
}

// DefaultTHTSConfig mirrors the original THTSSolver's common defaults.
func DefaultTHTSConfig(rng *rand.Rand) THTSConfig {
	return THTSConfig{
		NumTrials:           2000,
		MaxDepth:            50,
		ExplorationConstant: math.Sqrt2,
		Backup:              MonteCarlo,
		NumVirtualRollouts:  1,
		Rng:                 rng,
	}
}

// decisionNode is a THTS decision (state) node: one chanceNode child per
// applicable action.
type decisionNode struct {
	state    mdp.State
	visits   float64
	value    float64
	solved   bool
	children map[uint64]*chanceNode
	actions  map[uint64]mdp.Action
}

// chanceNode is a THTS chance (state, action) node: one decisionNode child
// per sampled successor state actually observed so far. value is the
// running Monte Carlo average of the *continuation* (post-cost) return;
// cost(s, a) is added back in by qValue, since it is constant across every
// sample of this node and need not be remixed into the average.
type chanceNode struct {
	visits   float64
	value    float64
	solved   bool
	children map[uint64]*decisionNode
	cost     float64
}

func newDecisionNode(problem mdp.Problem, s mdp.State) *decisionNode {
	n := &decisionNode{
		state:    s,
		value:    problem.Heuristic(s),
		children: map[uint64]*chanceNode{},
		actions:  map[uint64]mdp.Action{},
	}
	if problem.Goal(s) {
		n.value = 0
		n.solved = true
	}
	for _, a := range problem.Actions() {
		if problem.Applicable(s, a) {
			n.children[a.Hash()] = &chanceNode{
				children: map[uint64]*decisionNode{},
				cost:     problem.Cost(s, a),
			}
			n.actions[a.Hash()] = a
		}
	}
	if len(n.children) == 0 {
		// dead end: no applicable action, nothing further a trial can learn here.
		n.solved = true
	}
	return n
}

// qValue is a chance node's current Q-value estimate under backup: the
// plain Monte Carlo average for MonteCarlo/MaxMonteCarlo, or an exact
// Bellman backup over its expanded children weighted by their true
// transition probability for PartialBellman, with any probability mass not
// yet expanded falling back to the node's own Monte Carlo average (Keller &
// Helmert's "partial" backup -- exact where the tree has been built out,
// sampled everywhere else).
func qValue(problem mdp.Problem, state mdp.State, action mdp.Action, chance *chanceNode, backup THTSBackup) float64 {
	if backup != PartialBellman {
		return chance.cost + chance.value
	}

	var expected, expandedMass float64
	for _, succ := range problem.Transition(state, action) {
		if child, ok := chance.children[succ.State.Hash()]; ok {
			expected += succ.Probability * child.value
			expandedMass += succ.Probability
		}
	}
	if expandedMass < 1 {
		expected += (1 - expandedMass) * chance.value
	}
	return chance.cost + expected
}

// THTS runs cfg.NumTrials trials of Trial-based Heuristic Tree Search
// (Keller & Helmert 2013) from root, rooted at a single decisionNode tree
// built up one trial at a time (single-goroutine: unlike UCT, each trial
// both reads and writes the tree, so trials run serially rather than
// fanned out across workers), and returns the most-visited action at root.
func THTS(problem mdp.Problem, root mdp.State, cfg THTSConfig) mdp.Action {
	tree := newDecisionNode(problem, root)

	for trial := 0; trial < cfg.NumTrials; trial++ {
		runTHTSTrial(problem, tree, cfg, 0)
	}

	return mostVisitedTHTSAction(tree)
}

func runTHTSTrial(problem mdp.Problem, node *decisionNode, cfg THTSConfig, depth int) float64 {
	if node.solved || depth >= cfg.MaxDepth || len(node.children) == 0 {
		node.visits++
		return node.value
	}

	action := selectTHTSAction(problem, node, cfg)
	chance := node.children[action.Hash()]

	cost := problem.Cost(node.state, action)
	successor := bellman.RandomSuccessor(problem, node.state, action, cfg.Rng)

	child, ok := chance.children[successor.Hash()]
	if !ok {
		child = newDecisionNode(problem, successor)
		chance.children[successor.Hash()] = child
	}

	continuation := runTHTSTrial(problem, child, cfg, depth+1)
	sampledReturn := cost + continuation

	chance.visits++
	chance.value += (continuation - chance.value) / chance.visits
	chance.solved = chanceSolved(problem, node.state, action, chance)

	node.visits++
	backupDecisionNode(problem, node, action, sampledReturn, cfg.Backup)
	node.solved = decisionSolved(problem, node, cfg.Backup)

	return node.value
}

// chanceSolved reports whether a chance node can be labeled solved: every
// outcome of its (state, action) distribution has been expanded into a
// decision-node child, and every one of those children is itself solved,
// per spec §4.5's "chance node solved when all its expanded children are
// solved and their joint probability mass is 1".
func chanceSolved(problem mdp.Problem, state mdp.State, action mdp.Action, chance *chanceNode) bool {
	var mass float64
	for _, succ := range problem.Transition(state, action) {
		child, ok := chance.children[succ.State.Hash()]
		if !ok || !child.solved {
			return false
		}
		mass += succ.Probability
	}
	return mass >= 1-1e-9
}

// decisionSolved reports whether a decision node can be labeled solved: its
// currently greedy (lowest-qValue) action's chance child is solved, per
// spec §4.5's "decision node solved when its selected child is solved".
func decisionSolved(problem mdp.Problem, node *decisionNode, backup THTSBackup) bool {
	if len(node.children) == 0 {
		return true
	}
	var bestHash uint64
	best := math.Inf(1)
	found := false
	for hash, c := range node.children {
		if c.visits == 0 {
			continue
		}
		if q := qValue(problem, node.state, node.actions[hash], c, backup); q < best {
			best = q
			bestHash = hash
			found = true
		}
	}
	if !found {
		return false
	}
	return node.children[bestHash].solved
}

// backupDecisionNode updates node.value per cfg's backup rule after one of
// its children (reached via action) just received a fresh sample.
// MonteCarlo tracks a plain running average of the node's own sampled
// return; MaxMonteCarlo and PartialBellman instead take the minimum
// Q-value (per qValue's definition for that backup) over every
// already-expanded action.
func backupDecisionNode(problem mdp.Problem, node *decisionNode, action mdp.Action, sampledReturn float64, backup THTSBackup) {
	switch backup {
	case MonteCarlo:
		node.value += (sampledReturn - node.value) / node.visits
	default:
		best := math.Inf(1)
		for hash, c := range node.children {
			if c.visits == 0 {
				continue
			}
			if q := qValue(problem, node.state, node.actions[hash], c, backup); q < best {
				best = q
			}
		}
		if !math.IsInf(best, 1) {
			node.value = best
		}
	}
}

// selectTHTSAction applies UCB1 over the decision node's chance-node
// children, using cfg.NumVirtualRollouts as each unvisited child's
// effective prior visit count (the original THTSSolver's
// num_virtual_rollouts_).
func selectTHTSAction(problem mdp.Problem, node *decisionNode, cfg THTSConfig) mdp.Action {
	var best mdp.Action
	bestScore := math.Inf(-1)
	for hash, chance := range node.children {
		visits := chance.visits
		if visits == 0 {
			visits = cfg.NumVirtualRollouts
			if visits == 0 {
				return node.actions[hash]
			}
		}
		exploit := -qValue(problem, node.state, node.actions[hash], chance, cfg.Backup)
		explore := cfg.ExplorationConstant * math.Sqrt(math.Log(node.visits+1)/visits)
		score := exploit + explore
		if score > bestScore {
			bestScore = score
			best = node.actions[hash]
		}
	}
	return best
}

func mostVisitedTHTSAction(node *decisionNode) mdp.Action {
	var best mdp.Action
	bestVisits := -1.0
	for hash, chance := range node.children {
		if chance.visits > bestVisits {
			bestVisits = chance.visits
			best = node.actions[hash]
		}
	}
	return best
}
