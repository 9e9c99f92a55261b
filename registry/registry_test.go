package registry_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/registry"
)

func newTestProblem() *gridworld.Problem {
	return gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
}

func TestIntern(t *testing.T) {
	Convey("Given a fresh StateRegistry", t, func() {
		problem := newTestProblem()
		reg := registry.New(problem)

		Convey("Interning the same state twice returns the same node", func() {
			a := reg.Intern(gridworld.State{X: 1, Y: 1})
			b := reg.Intern(gridworld.State{X: 1, Y: 1})
			So(a, ShouldEqual, b)
		})

		Convey("Interning two unequal states returns distinct nodes", func() {
			a := reg.Intern(gridworld.State{X: 1, Y: 1})
			c := reg.Intern(gridworld.State{X: 1, Y: 2})
			So(a, ShouldNotEqual, c)
		})

		Convey("A mutation made through one Intern call is visible through another", func() {
			first := reg.Intern(gridworld.State{X: 0, Y: 0})
			first.Value = 42
			again := reg.Intern(first.State)
			So(again.Value, ShouldEqual, 42)
			So(again, ShouldEqual, first)
		})

		Convey("A newly interned node's value is seeded from the problem's heuristic", func() {
			node := reg.Intern(problem.InitialState())
			So(node.Value, ShouldEqual, problem.Heuristic(problem.InitialState()))
		})

		Convey("Lookup without a prior Intern reports not found", func() {
			_, ok := reg.Lookup(gridworld.State{X: 1, Y: 1})
			So(ok, ShouldBeFalse)
		})

		Convey("Lookup after Intern finds the interned node", func() {
			reg.Intern(gridworld.State{X: 1, Y: 1})
			node, ok := reg.Lookup(gridworld.State{X: 1, Y: 1})
			So(ok, ShouldBeTrue)
			So(node.State.(gridworld.State).X, ShouldEqual, 1)
		})

		Convey("Reset reseeds value from the heuristic and clears solver bookkeeping", func() {
			node := reg.Intern(gridworld.State{X: 0, Y: 0})
			node.Value = 99
			node.Residual = 5
			node.FlaresDepth = 3
			node.Labels.Set(registry.Solved)
			sizeBefore := reg.Size()

			reg.Reset()

			node2, _ := reg.Lookup(gridworld.State{X: 0, Y: 0})
			So(node2.Value, ShouldEqual, problem.Heuristic(gridworld.State{X: 0, Y: 0}))
			So(node2.Residual, ShouldEqual, 0)
			So(node2.FlaresDepth, ShouldEqual, -1)
			So(node2.Labels.Test(registry.Solved), ShouldBeFalse)
			So(reg.Size(), ShouldEqual, sizeBefore)
		})

		Convey("Each visits every interned node exactly once", func() {
			reg.Intern(gridworld.State{X: 0, Y: 0})
			reg.Intern(gridworld.State{X: 1, Y: 1})
			reg.Intern(gridworld.State{X: 2, Y: 2})

			count := 0
			reg.Each(func(*registry.Node) { count++ })
			So(count, ShouldEqual, 3)
		})
	})
}
