// Package bellman implements the Q-value, Bellman-update, and greedy-action
// primitives shared by every solver in this repository. There is
// deliberately one canonical implementation of each primitive here rather
// than several near-duplicate Bellman-update helpers, so DP, trial-based,
// and short-sighted solvers all converge on
// the exact same update semantics.
package bellman

import (
	"math"

	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// Gamma is the look-ahead discount used by QValue. The stochastic
// shortest-path formulation this library targets is undiscounted (gamma =
// 1); solvers that need a discounted formulation (gamma < 1, as
// metareasoning does) pass their own gamma directly rather than
// mutating this constant.
const Gamma = 1.0

// reg is the minimal registry surface bellman depends on: looking a
// successor state up by value and interning it if new. Defined as an
// interface (rather than importing registry.StateRegistry's concrete
// pointer type everywhere) so tests can substitute a stub registry.
type reg interface {
	Intern(s mdp.State) *registry.Node
}

// QValue computes cost(s,a) + gamma * sum_{s'} P(s'|s,a) * V(s'), interning
// each successor in reg so its current value estimate is read from the
// canonical node.
func QValue(problem mdp.Problem, reg reg, s mdp.State, a mdp.Action) float64 {
	q := problem.Cost(s, a)
	for _, succ := range problem.Transition(s, a) {
		node := reg.Intern(succ.State)
		q += Gamma * succ.Probability * node.Value
	}
	return q
}

// QValueWeighted is QValue generalized with an explicit discount gamma.
// The metareasoning simulator does not call it; it discounts over its own
// snapshot value maps.
func QValueWeighted(problem mdp.Problem, reg reg, s mdp.State, a mdp.Action, gamma float64) float64 {
	q := problem.Cost(s, a)
	for _, succ := range problem.Transition(s, a) {
		node := reg.Intern(succ.State)
		q += gamma * succ.Probability * node.Value
	}
	return q
}

// BellmanUpdate applies one synchronous Bellman backup to node: if the
// wrapped state is a goal, value/residual/best-action
// are reset to their terminal values; otherwise value is set to the minimum
// Q-value over applicable actions (ties broken by the problem's
// enumeration order, i.e. first-enumerated-wins), with residual the
// absolute change in value. A state with no applicable action is marked a
// dead end at problem.DeadEndCost().
func BellmanUpdate(problem mdp.Problem, reg reg, node *registry.Node) {
	if problem.Goal(node.State) {
		node.Value = 0
		node.BestAction = nil
		node.Residual = 0
		return
	}

	var (
		bestQ      = math.Inf(1)
		bestAction mdp.Action
		sawAction  bool
	)
	for _, a := range problem.Actions() {
		if !problem.Applicable(node.State, a) {
			continue
		}
		sawAction = true
		q := QValue(problem, reg, node.State, a)
		if q < bestQ {
			bestQ = q
			bestAction = a
		}
	}

	if !sawAction {
		node.Labels.Set(registry.DeadEnd)
		node.Residual = math.Abs(node.Value - problem.DeadEndCost())
		node.Value = problem.DeadEndCost()
		node.BestAction = nil
		return
	}

	node.Residual = math.Abs(node.Value - bestQ)
	node.Value = bestQ
	node.BestAction = bestAction
}

// WeightedBellmanUpdate is BellmanUpdate with the heuristic-vs-backup
// tradeoff weighted LAO* uses: value <- (1-w)*h(s) + w*q*, for w in [0,1].
// w=1 reduces to an ordinary BellmanUpdate.
func WeightedBellmanUpdate(problem mdp.Problem, reg reg, node *registry.Node, w float64) {
	if problem.Goal(node.State) {
		node.Value = 0
		node.BestAction = nil
		node.Residual = 0
		return
	}

	var (
		bestQ      = math.Inf(1)
		bestAction mdp.Action
		sawAction  bool
	)
	for _, a := range problem.Actions() {
		if !problem.Applicable(node.State, a) {
			continue
		}
		sawAction = true
		q := QValue(problem, reg, node.State, a)
		if q < bestQ {
			bestQ = q
			bestAction = a
		}
	}

	if !sawAction {
		node.Labels.Set(registry.DeadEnd)
		node.Residual = math.Abs(node.Value - problem.DeadEndCost())
		node.Value = problem.DeadEndCost()
		node.BestAction = nil
		return
	}

	target := (1-w)*problem.Heuristic(node.State) + w*bestQ
	node.Residual = math.Abs(node.Value - target)
	node.Value = target
	node.BestAction = bestAction
}

// GreedyAction returns node's current best-action field, recomputing it
// with a BellmanUpdate if it is unset and the node is not a dead end or
// goal.
func GreedyAction(problem mdp.Problem, reg reg, node *registry.Node) mdp.Action {
	if node.BestAction == nil && !problem.Goal(node.State) && !node.Labels.Test(registry.DeadEnd) {
		BellmanUpdate(problem, reg, node)
	}
	return node.BestAction
}
