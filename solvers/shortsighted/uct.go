package shortsighted

import (
	"context"
	"math"
	"math/rand"
	"sync"

	channerics "github.com/niceyeti/channerics/channels"

	"github.com/mejrpete/mdp-lib/atomic_float"
	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
)

// UCTConfig bounds a UCT (Kocsis & Szepesvari 2006) run. NumWorkers rollout
// goroutines run concurrently and fan their finished trajectories into a
// single estimator goroutine, the same worker/estimator split the teacher's
// Monte Carlo trainer used (reinforcement/learning.go's agent_worker and
// estimator functions, merged with channerics.Merge): rollouts only read
// the shared tree and the single estimator is the only writer. Unlike the
// trainer's preallocated state grid, the tree's node map grows as states
// are expanded, so the map itself sits behind an RWMutex; per-node
// statistics stay lock-free via atomic_float.
type UCTConfig struct {
	NumRollouts         int
	NumWorkers          int
	RolloutDepth        int
	ExplorationConstant float64
	Rng                 *rand.Rand
}

// DefaultUCTConfig uses the canonical sqrt(2) UCB1 exploration constant.
func DefaultUCTConfig(rng *rand.Rand) UCTConfig {
	return UCTConfig{
		NumRollouts:         2000,
		NumWorkers:          4,
		RolloutDepth:        50,
		ExplorationConstant: math.Sqrt2,
		Rng:                 rng,
	}
}

// uctStats is a UCT tree node's visit count and accumulated value, held in
// atomic_float so the single estimator goroutine can add to it lock-free
// while rollout goroutines read it during UCB1 selection.
type uctStats struct {
	visits *atomic_float.AtomicFloat64
	total  *atomic_float.AtomicFloat64
}

func newUCTStats() *uctStats {
	return &uctStats{visits: atomic_float.NewAtomicFloat64(0), total: atomic_float.NewAtomicFloat64(0)}
}

func (s *uctStats) mean() float64 {
	n := s.visits.AtomicRead()
	if n == 0 {
		return 0
	}
	return s.total.AtomicRead() / n
}

// uctTree is the node map shared between rollout workers and the
// estimator. The estimator is the only inserter, but insertion grows the
// map while rollout goroutines index it, so lookups take a read lock and
// inserts a write lock.
type uctTree struct {
	mu    sync.RWMutex
	nodes map[uint64]*uctNode
}

func (t *uctTree) get(h uint64) (*uctNode, bool) {
	t.mu.RLock()
	node, ok := t.nodes[h]
	t.mu.RUnlock()
	return node, ok
}

func (t *uctTree) insert(h uint64, node *uctNode) {
	t.mu.Lock()
	if _, ok := t.nodes[h]; !ok {
		t.nodes[h] = node
	}
	t.mu.Unlock()
}

// uctNode is one decision point of the search tree: a state plus one
// uctStats accumulator per applicable action.
type uctNode struct {
	state    mdp.State
	children map[uint64]*uctStats
	actions  map[uint64]mdp.Action
	visits   *atomic_float.AtomicFloat64
}

func newUCTNode(problem mdp.Problem, s mdp.State) *uctNode {
	n := &uctNode{
		state:    s,
		children: map[uint64]*uctStats{},
		actions:  map[uint64]mdp.Action{},
		visits:   atomic_float.NewAtomicFloat64(0),
	}
	for _, a := range problem.Actions() {
		if problem.Applicable(s, a) {
			n.children[a.Hash()] = newUCTStats()
			n.actions[a.Hash()] = a
		}
	}
	return n
}

// rolloutOutcome is what one rollout goroutine reports back to the
// estimator: the sequence of (state, action) pairs visited and the total
// cost accrued along the trajectory, so the estimator can back up every
// visited node's statistics exactly once, serially.
type rolloutOutcome struct {
	path []struct {
		state  mdp.State
		action mdp.Action
	}
	cost float64
	// frontier is the first state the rollout reached that was not yet in
	// the tree, or nil if the rollout ended at a goal or a dead action.
	// Only the estimator goroutine (backupUCT) ever inserts it.
	frontier mdp.State
}

// UCT runs cfg.NumRollouts Monte Carlo trajectories split across
// cfg.NumWorkers goroutines, each selecting actions by UCB1 over the
// shared growing tree keyed by state hash, and estimating unexpanded
// states' continuation cost with problem.Heuristic.
// It returns the most-visited action at the root.
func UCT(problem mdp.Problem, root mdp.State, cfg UCTConfig) mdp.Action {
	tree := &uctTree{nodes: map[uint64]*uctNode{root.Hash(): newUCTNode(problem, root)}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := func(done <-chan struct{}, seed int64) <-chan rolloutOutcome {
		out := make(chan rolloutOutcome)
		localRng := rand.New(rand.NewSource(seed))
		go func() {
			defer close(out)
			for {
				select {
				case <-done:
					return
				default:
				}
				outcome := runUCTRollout(problem, tree, root, cfg, localRng)
				select {
				case out <- outcome:
				case <-done:
					return
				}
			}
		}()
		return out
	}

	workers := make([]<-chan rolloutOutcome, cfg.NumWorkers)
	for i := 0; i < cfg.NumWorkers; i++ {
		workers[i] = worker(ctx.Done(), cfg.Rng.Int63())
	}
	merged := channerics.Merge(ctx.Done(), workers...)

	completed := 0
	for outcome := range merged {
		backupUCT(problem, tree, outcome)
		completed++
		if completed >= cfg.NumRollouts {
			cancel()
			break
		}
	}

	rootNode, _ := tree.get(root.Hash())
	return mostVisitedAction(rootNode)
}

// runUCTRollout descends the tree by UCB1 selection until it reaches a
// state not yet in tree, estimates that state's value with the problem
// heuristic, and returns the full path and total cost for the estimator to
// back up.
func runUCTRollout(problem mdp.Problem, tree *uctTree, root mdp.State, cfg UCTConfig, rng *rand.Rand) rolloutOutcome {
	var outcome rolloutOutcome
	cur := root
	var totalCost float64

	for depth := 0; depth < cfg.RolloutDepth; depth++ {
		if problem.Goal(cur) {
			break
		}
		node, ok := tree.get(cur.Hash())
		if !ok {
			totalCost += problem.Heuristic(cur)
			outcome.frontier = cur
			break
		}

		action := selectUCB1(node, cfg.ExplorationConstant)
		if action == nil {
			break
		}
		outcome.path = append(outcome.path, struct {
			state  mdp.State
			action mdp.Action
		}{cur, action})

		totalCost += problem.Cost(cur, action)
		cur = bellman.RandomSuccessor(problem, cur, action, rng)
	}

	outcome.cost = totalCost
	return outcome
}

// selectUCB1 picks the child action maximizing -mean_cost + C*sqrt(ln(N)/n)
// (UCB1 rewritten for cost minimization), falling back to the first
// never-visited action to guarantee every child is sampled at least once.
func selectUCB1(node *uctNode, c float64) mdp.Action {
	parentVisits := node.visits.AtomicRead()
	var best mdp.Action
	bestScore := math.Inf(-1)

	for hash, stats := range node.children {
		n := stats.visits.AtomicRead()
		if n == 0 {
			return node.actions[hash]
		}
		exploit := -stats.mean()
		explore := c * math.Sqrt(math.Log(parentVisits+1)/n)
		score := exploit + explore
		if score > bestScore {
			bestScore = score
			best = node.actions[hash]
		}
	}
	return best
}

// backupUCT is the single-goroutine estimator: it expands outcome's
// frontier state into a new tree node (the only place tree is ever
// written), then replays the path and atomically accumulates every
// visited (state, action)'s visit count and total-cost statistics with the
// trajectory's realized cost-to-go from that point.
func backupUCT(problem mdp.Problem, tree *uctTree, outcome rolloutOutcome) {
	if outcome.frontier != nil {
		if _, ok := tree.get(outcome.frontier.Hash()); !ok {
			tree.insert(outcome.frontier.Hash(), newUCTNode(problem, outcome.frontier))
		}
	}

	costToGo := outcome.cost
	for i := len(outcome.path) - 1; i >= 0; i-- {
		step := outcome.path[i]
		node, _ := tree.get(step.state.Hash())
		if node == nil {
			continue
		}
		stats := node.children[step.action.Hash()]
		if stats == nil {
			continue
		}
		stats.visits.AtomicAdd(1)
		stats.total.AtomicAdd(costToGo)
		node.visits.AtomicAdd(1)
	}
}

func mostVisitedAction(node *uctNode) mdp.Action {
	var best mdp.Action
	bestVisits := -1.0
	for hash, stats := range node.children {
		n := stats.visits.AtomicRead()
		if n > bestVisits {
			bestVisits = n
			best = node.actions[hash]
		}
	}
	return best
}
