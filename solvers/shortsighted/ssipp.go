// Package shortsighted implements the short-sighted and sampling-based
// solver family: SSiPP and Labeled SSiPP solve a
// depth-bounded sub-MDP exactly at each step rather than the full problem;
// UCT, HOP, and THTS instead sample trajectories through a determinization
// or a Monte Carlo tree to pick the next action. Because each of these
// solvers resamples or re-solves locally at every real step, their internal
// trial/rollout loops are the one place in this repository where a
// goroutine-fan-in concurrency style is appropriate: the shared registry
// is still touched from a single goroutine per call, but rollouts within
// one call can run concurrently when they only read from it.
package shortsighted

import (
	"math/rand"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/dp"
)

// SSiPPConfig bounds a short-sighted SSP run. By default the sub-MDP is
// hop-count bounded at Horizon transitions; with UseTrajProbabilities set
// it is instead bounded by trajectory probability, cutting off states
// whose most likely path from the current state has probability below Rho.
type SSiPPConfig struct {
	Horizon              int // short-sighted sub-MDP depth
	UseTrajProbabilities bool
	Rho                  float64 // trajectory-probability cutoff
	Epsilon              float64
	MaxSweeps            int
	Rng                  *rand.Rand
}

// DefaultSSiPPConfig uses a 5-step horizon, the depth Trevizan & Veloso's
// original SSiPP paper found effective on racetrack-scale domains.
func DefaultSSiPPConfig(rng *rand.Rand) SSiPPConfig {
	return SSiPPConfig{Horizon: 5, Epsilon: 0.001, MaxSweeps: 1000, Rng: rng}
}

// ShortSightedProblem adapts problem so that any state outside a bounded
// BFS frontier from root is treated as an artificial goal whose cost is the
// problem's own heuristic -- a short-sighted SSP (Trevizan & Veloso 2012),
// grounded on bellman.Reachable's horizon-bounded BFS already used by LAO*.
type ShortSightedProblem struct {
	mdp.Problem
	root   mdp.State
	fringe map[uint64]bool
}

// InitialState is the sub-MDP's root: the real problem's current state,
// not the base problem's start, so enumeration (mdp.GenerateAll inside
// Value Iteration) stays bounded by the fringe computed from it.
func (s *ShortSightedProblem) InitialState() mdp.State { return s.root }

// newShortSighted computes the horizon-bounded fringe from root via
// bellman.Reachable and wraps problem so fringe states report Goal() true
// (with their heuristic value standing in as the cost of exiting the
// sub-MDP there).
func newShortSighted(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, horizon int) *ShortSightedProblem {
	_, tips := bellman.Reachable(problem, reg, root, horizon)
	fringe := make(map[uint64]bool, len(tips))
	for _, tip := range tips {
		if !problem.Goal(tip.State) {
			fringe[tip.State.Hash()] = true
		}
	}
	return &ShortSightedProblem{Problem: problem, root: root.State, fringe: fringe}
}

// newShortSightedTraj bounds the sub-MDP by trajectory probability instead
// of hop count: a state belongs to the interior while the most probable
// path reaching it from root has probability at least rho; anything first
// reached below that becomes fringe. Best-path probabilities are relaxed
// over an explicit worklist, the same discipline bellman.Reachable uses
// for depth.
func newShortSightedTraj(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, rho float64) *ShortSightedProblem {
	type frame struct {
		node *registry.Node
		prob float64
	}

	best := map[*registry.Node]float64{}
	queue := []frame{{root, 1.0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if prev, ok := best[cur.node]; ok && prev >= cur.prob {
			continue
		}
		best[cur.node] = cur.prob

		if problem.Goal(cur.node.State) || cur.node.Labels.Test(registry.Solved) {
			continue
		}
		if cur.prob < rho {
			continue // fringe: reached, never expanded
		}

		for _, a := range applicableActions(problem, cur.node.State) {
			for _, succ := range problem.Transition(cur.node.State, a) {
				queue = append(queue, frame{reg.Intern(succ.State), cur.prob * succ.Probability})
			}
		}
	}

	fringe := make(map[uint64]bool)
	for node, prob := range best {
		if prob < rho && !problem.Goal(node.State) {
			fringe[node.State.Hash()] = true
		}
	}
	return &ShortSightedProblem{Problem: problem, root: root.State, fringe: fringe}
}

// newShortSightedFor picks the sub-MDP bound cfg asks for.
func newShortSightedFor(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, cfg SSiPPConfig) *ShortSightedProblem {
	if cfg.UseTrajProbabilities {
		return newShortSightedTraj(problem, reg, root, cfg.Rho)
	}
	return newShortSighted(problem, reg, root, cfg.Horizon)
}

func applicableActions(problem mdp.Problem, s mdp.State) []mdp.Action {
	var out []mdp.Action
	for _, a := range problem.Actions() {
		if problem.Applicable(s, a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *ShortSightedProblem) Goal(state mdp.State) bool {
	if s.fringe[state.Hash()] {
		return true
	}
	return s.Problem.Goal(state)
}

// Cost charges the fringe's artificial terminal cost on the way in: since
// fringe states are goals of the sub-MDP (value 0 under the goal
// invariant), the base heuristic of any fringe successor is folded into
// the cost of the transition reaching it. Fringe states themselves, being
// goals, cost nothing to act from.
func (s *ShortSightedProblem) Cost(state mdp.State, a mdp.Action) float64 {
	if s.fringe[state.Hash()] {
		return 0
	}
	c := s.Problem.Cost(state, a)
	for _, succ := range s.Problem.Transition(state, a) {
		if s.fringe[succ.State.Hash()] && !s.Problem.Goal(succ.State) {
			c += succ.Probability * s.Problem.Heuristic(succ.State)
		}
	}
	return c
}

// SSiPP solves, at every real step, the horizon-bounded short-sighted
// sub-MDP rooted at the current state with Value Iteration, executes the
// resulting greedy action in the real problem, and repeats from the
// resulting real successor. It terminates when the real state satisfies
// problem.Goal.
func SSiPP(problem mdp.Problem, reg *registry.StateRegistry, start mdp.State, cfg SSiPPConfig) (mdp.Action, []mdp.State, error) {
	cur := start
	var trace []mdp.State
	var firstAction mdp.Action

	for steps := 0; !problem.Goal(cur); steps++ {
		root := reg.Intern(cur)
		sub := newShortSightedFor(problem, reg, root, cfg)

		if _, err := dp.ValueIteration(sub, reg, dp.ValueIterationConfig{Epsilon: cfg.Epsilon, MaxSweeps: cfg.MaxSweeps}); err != nil {
			return nil, trace, err
		}
		bellman.BellmanUpdate(sub, reg, root)

		action := root.BestAction
		if steps == 0 {
			firstAction = action
		}
		if action == nil {
			break
		}
		trace = append(trace, cur)
		cur = bellman.RandomSuccessor(problem, cur, action, cfg.Rng)
	}

	return firstAction, trace, nil
}

// LabeledSSiPPConfig is SSiPPConfig unchanged (its Epsilon also serves as
// the solved-labeling threshold), so repeated calls from the same state
// skip re-solving once it has converged ("Labeled SSiPP").
type LabeledSSiPPConfig struct {
	SSiPPConfig
}

// LabeledSSiPP is SSiPP with LRTDP-style Solved labeling layered on top: a
// state whose short-sighted sub-MDP has already converged to within
// epsilon is skipped on subsequent visits, reusing its stored BestAction
// instead of re-solving. This mirrors the original mdp-lib's
// LabeledSSiPPSolver, which the distillation folded into plain SSiPP.
func LabeledSSiPP(problem mdp.Problem, reg *registry.StateRegistry, start mdp.State, cfg LabeledSSiPPConfig) (mdp.Action, []mdp.State, error) {
	cur := start
	var trace []mdp.State
	var firstAction mdp.Action

	for steps := 0; !problem.Goal(cur); steps++ {
		root := reg.Intern(cur)

		if !root.Labels.Test(registry.Solved) {
			sub := newShortSightedFor(problem, reg, root, cfg.SSiPPConfig)
			result, err := dp.ValueIteration(sub, reg, dp.ValueIterationConfig{Epsilon: cfg.Epsilon, MaxSweeps: cfg.MaxSweeps})
			if err != nil {
				return nil, trace, err
			}
			bellman.BellmanUpdate(sub, reg, root)
			if result.Converged {
				root.Labels.Set(registry.Solved)
			}
		}

		action := root.BestAction
		if steps == 0 {
			firstAction = action
		}
		if action == nil {
			break
		}
		trace = append(trace, cur)
		cur = bellman.RandomSuccessor(problem, cur, action, cfg.Rng)
	}

	return firstAction, trace, nil
}
