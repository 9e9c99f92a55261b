package bellman_test

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// chainState is a tiny line-world: 0 -> 1 -> 2(goal), each "advance" step
// costing 1, used to exercise bellman's primitives against hand-computable
// values rather than a stochastic domain.
type chainState int

func (s chainState) Hash() uint64           { return uint64(s) }
func (s chainState) Equal(o mdp.State) bool { c, ok := o.(chainState); return ok && c == s }

type chainAction int

const (
	advance chainAction = iota
	stall
)

func (a chainAction) Hash() uint64            { return uint64(a) }
func (a chainAction) Equal(o mdp.Action) bool { c, ok := o.(chainAction); return ok && c == a }

// chainProblem: from 0, "advance" goes to 1; from 1, "advance" goes to 2
// (goal); "stall" is applicable everywhere non-goal and self-loops at cost
// 5, giving GreedyAction a genuine choice to make.
type chainProblem struct{}

func (chainProblem) InitialState() mdp.State { return chainState(0) }
func (chainProblem) Actions() []mdp.Action   { return []mdp.Action{advance, stall} }
func (chainProblem) Applicable(s mdp.State, a mdp.Action) bool {
	return !chainProblem{}.Goal(s)
}
func (chainProblem) Transition(s mdp.State, a mdp.Action) []mdp.Successor {
	cs := s.(chainState)
	if a.(chainAction) == stall {
		return []mdp.Successor{{State: cs, Probability: 1}}
	}
	return []mdp.Successor{{State: cs + 1, Probability: 1}}
}
func (chainProblem) Cost(s mdp.State, a mdp.Action) float64 {
	if a.(chainAction) == stall {
		return 5
	}
	return 1
}
func (chainProblem) Goal(s mdp.State) bool         { return s.(chainState) == 2 }
func (chainProblem) Heuristic(s mdp.State) float64 { return float64(2 - s.(chainState)) }
func (chainProblem) DeadEndCost() float64          { return 1000 }

// deadEndProblem has a single non-goal state with no applicable action.
type deadEndProblem struct{}

func (deadEndProblem) InitialState() mdp.State                              { return chainState(0) }
func (deadEndProblem) Actions() []mdp.Action                                { return []mdp.Action{advance} }
func (deadEndProblem) Applicable(s mdp.State, a mdp.Action) bool            { return false }
func (deadEndProblem) Transition(s mdp.State, a mdp.Action) []mdp.Successor { return nil }
func (deadEndProblem) Cost(s mdp.State, a mdp.Action) float64               { return 1 }
func (deadEndProblem) Goal(s mdp.State) bool                                { return false }
func (deadEndProblem) Heuristic(s mdp.State) float64                        { return 0 }
func (deadEndProblem) DeadEndCost() float64                                 { return 1000 }

func TestQValue(t *testing.T) {
	Convey("Given a chain problem with a seeded successor value", t, func() {
		problem := chainProblem{}
		reg := registry.New(problem)
		one := reg.Intern(chainState(1))
		one.Value = 7

		Convey("QValue is cost(s,a) plus the successor's current value", func() {
			q := bellman.QValue(problem, reg, chainState(0), advance)
			So(q, ShouldEqual, 8)
		})

		Convey("QValueWeighted applies the given discount to the successor's value", func() {
			q := bellman.QValueWeighted(problem, reg, chainState(0), advance, 0.5)
			So(q, ShouldEqual, 1+0.5*7)
		})
	})
}

func TestBellmanUpdate(t *testing.T) {
	Convey("Given a chain problem", t, func() {
		problem := chainProblem{}

		Convey("BellmanUpdate picks the cheaper of two applicable actions", func() {
			reg := registry.New(problem)
			node := reg.Intern(chainState(0))
			one := reg.Intern(chainState(1))
			one.Value = 1 // cost-to-go from 1 is exactly one more "advance"

			bellman.BellmanUpdate(problem, reg, node)

			So(node.BestAction, ShouldNotBeNil)
			So(node.BestAction.(chainAction), ShouldEqual, advance)
			So(node.Value, ShouldEqual, 2)
		})

		Convey("BellmanUpdate on a goal state zeroes value, action, and residual", func() {
			reg := registry.New(problem)
			node := reg.Intern(chainState(2))
			node.Value = 99
			node.Residual = 5

			bellman.BellmanUpdate(problem, reg, node)

			So(node.Value, ShouldEqual, 0)
			So(node.BestAction, ShouldBeNil)
			So(node.Residual, ShouldEqual, 0)
		})

		Convey("BellmanUpdate's residual is the absolute change in value", func() {
			reg := registry.New(problem)
			node := reg.Intern(chainState(0))
			node.Value = 100 // deliberately stale
			one := reg.Intern(chainState(1))
			one.Value = 1

			bellman.BellmanUpdate(problem, reg, node)

			So(node.Residual, ShouldEqual, math.Abs(100.0-2.0))
		})

		Convey("BellmanUpdate on a state with no applicable action marks it a dead end", func() {
			deadEnd := deadEndProblem{}
			reg := registry.New(deadEnd)
			node := reg.Intern(chainState(0))

			bellman.BellmanUpdate(deadEnd, reg, node)

			So(node.Labels.Test(registry.DeadEnd), ShouldBeTrue)
			So(node.Value, ShouldEqual, deadEnd.DeadEndCost())
			So(node.BestAction, ShouldBeNil)
		})
	})
}

func TestWeightedBellmanUpdate(t *testing.T) {
	Convey("Given a chain problem", t, func() {
		problem := chainProblem{}

		Convey("a weight below 1 blends the heuristic and the backed-up Q-value", func() {
			reg := registry.New(problem)
			node := reg.Intern(chainState(0))
			one := reg.Intern(chainState(1))
			one.Value = 1

			bellman.WeightedBellmanUpdate(problem, reg, node, 0.25)

			h := problem.Heuristic(chainState(0))
			So(node.Value, ShouldEqual, 0.75*h+0.25*2)
		})

		Convey("weight=1 matches an ordinary BellmanUpdate", func() {
			regA := registry.New(problem)
			regB := registry.New(problem)

			nodeA := regA.Intern(chainState(0))
			oneA := regA.Intern(chainState(1))
			oneA.Value = 1

			nodeB := regB.Intern(chainState(0))
			oneB := regB.Intern(chainState(1))
			oneB.Value = 1

			bellman.BellmanUpdate(problem, regA, nodeA)
			bellman.WeightedBellmanUpdate(problem, regB, nodeB, 1.0)

			So(nodeB.Value, ShouldEqual, nodeA.Value)
		})
	})
}

func TestGreedyAction(t *testing.T) {
	Convey("Given a chain problem", t, func() {
		problem := chainProblem{}

		Convey("GreedyAction computes a Bellman update on demand", func() {
			reg := registry.New(problem)
			node := reg.Intern(chainState(0))
			one := reg.Intern(chainState(1))
			one.Value = 1

			action := bellman.GreedyAction(problem, reg, node)
			So(action, ShouldNotBeNil)
			So(action.(chainAction), ShouldEqual, advance)
		})

		Convey("GreedyAction returns nil at a goal state", func() {
			reg := registry.New(problem)
			node := reg.Intern(chainState(2))
			So(bellman.GreedyAction(problem, reg, node), ShouldBeNil)
		})
	})
}
