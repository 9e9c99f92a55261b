package metareasoning_test

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/metareasoning"
)

func newMetaProblem() *gridworld.Problem {
	return gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
}

func TestNew(t *testing.T) {
	Convey("Given a discounted metareasoning config", t, func() {
		Convey("Gamma >= 1 panics", func() {
			cfg := metareasoning.DefaultConfig(newMetaProblem())
			cfg.Gamma = 1.0
			So(func() { metareasoning.New(cfg) }, ShouldPanic)
		})

		Convey("a valid config builds at least one planning snapshot", func() {
			cfg := metareasoning.DefaultConfig(newMetaProblem())
			sim, err := metareasoning.New(cfg)
			So(err, ShouldBeNil)
			So(sim, ShouldNotBeNil)
		})
	})
}

func TestSimulate(t *testing.T) {
	Convey("Given a gridworld problem and the NoMeta rule", t, func() {
		problem := newMetaProblem()
		cfg := metareasoning.DefaultConfig(problem)
		cfg.Rule = metareasoning.NoMeta

		sim, err := metareasoning.New(cfg)
		So(err, ShouldBeNil)

		Convey("Simulate runs to completion without accruing NOP cost", func() {
			rng := rand.New(rand.NewSource(1))
			result := sim.Simulate(problem.InitialState(), metareasoning.SampleRealSuccessor(problem, rng))

			So(result.Steps, ShouldBeGreaterThan, 0)
			So(result.NOPCost, ShouldEqual, 0)
			So(result.TotalCost, ShouldBeGreaterThanOrEqualTo, 0)
		})
	})

	Convey("Given the same problem under Assumption1 and QValueImprovement", t, func() {
		problem := newMetaProblem()

		Convey("both rules simulate to completion with non-negative cost", func() {
			cfgA := metareasoning.DefaultConfig(problem)
			cfgA.Rule = metareasoning.Assumption1
			simA, err := metareasoning.New(cfgA)
			So(err, ShouldBeNil)
			resultA := simA.Simulate(problem.InitialState(), metareasoning.SampleRealSuccessor(problem, rand.New(rand.NewSource(2))))
			So(resultA.Steps, ShouldBeGreaterThan, 0)

			cfgB := metareasoning.DefaultConfig(problem)
			cfgB.Rule = metareasoning.QValueImprovement
			simB, err := metareasoning.New(cfgB)
			So(err, ShouldBeNil)
			resultB := simB.Simulate(problem.InitialState(), metareasoning.SampleRealSuccessor(problem, rand.New(rand.NewSource(2))))
			So(resultB.Steps, ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given the Optimal rule", t, func() {
		problem := newMetaProblem()
		cfg := metareasoning.DefaultConfig(problem)
		cfg.Rule = metareasoning.Optimal
		sim, err := metareasoning.New(cfg)
		So(err, ShouldBeNil)

		Convey("Simulate solves the metareasoning MDP and runs to completion", func() {
			rng := rand.New(rand.NewSource(3))
			result := sim.Simulate(problem.InitialState(), metareasoning.SampleRealSuccessor(problem, rng))

			So(result.Steps, ShouldBeGreaterThan, 0)
			So(result.TotalCost, ShouldBeGreaterThanOrEqualTo, 0)
			So(result.NOPCost, ShouldBeGreaterThanOrEqualTo, 0)
		})

		Convey("with a prohibitive NOP cost it never chooses NOP", func() {
			expensive := metareasoning.DefaultConfig(problem)
			expensive.Rule = metareasoning.Optimal
			expensive.CostNOP = 1000
			simE, err := metareasoning.New(expensive)
			So(err, ShouldBeNil)

			rng := rand.New(rand.NewSource(4))
			result := simE.Simulate(problem.InitialState(), metareasoning.SampleRealSuccessor(problem, rng))
			So(result.NOPCost, ShouldEqual, 0)
		})
	})
}
