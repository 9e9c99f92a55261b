package sailing_test

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/domains/sailing"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/dp"
)

func newSailingProblem() *sailing.Problem {
	return sailing.New(3, 3, 0, 0, sailing.S, 2, 2, 0.25)
}

func TestProblem(t *testing.T) {
	Convey("Given a 3x3 sailing problem", t, func() {
		problem := newSailingProblem()

		Convey("transition probabilities sum to one for every reachable state", func() {
			states, err := mdp.GenerateAll(problem, 0)
			So(err, ShouldBeNil)
			So(len(states), ShouldBeGreaterThan, 0)

			for _, s := range states {
				for _, a := range problem.Actions() {
					if !problem.Applicable(s, a) {
						continue
					}
					total := 0.0
					for _, succ := range problem.Transition(s, a) {
						total += succ.Probability
					}
					So(total, ShouldAlmostEqual, 1.0, 1e-9)
				}
			}
		})

		Convey("sailing into the eye of the wind is not applicable", func() {
			s := sailing.State{X: 1, Y: 1, Wind: sailing.N}
			So(problem.Applicable(s, sailing.Action{Dir: sailing.N}), ShouldBeFalse)
			So(problem.Applicable(s, sailing.Action{Dir: sailing.NE}), ShouldBeFalse)
			So(problem.Applicable(s, sailing.Action{Dir: sailing.S}), ShouldBeTrue)
		})

		Convey("a following wind is the cheapest tack", func() {
			s := sailing.State{X: 0, Y: 0, Wind: sailing.N}
			upwindish := problem.Cost(s, sailing.Action{Dir: sailing.E})
			downwind := problem.Cost(s, sailing.Action{Dir: sailing.S})
			So(downwind, ShouldBeLessThan, upwindish)
		})

		Convey("the heuristic never exceeds the converged value", func() {
			reg := registry.New(problem)
			_, err := dp.ValueIteration(problem, reg, dp.DefaultValueIterationConfig())
			So(err, ShouldBeNil)

			reg.Each(func(n *registry.Node) {
				So(problem.Heuristic(n.State), ShouldBeLessThanOrEqualTo, n.Value+1e-9)
			})
		})
	})
}

func TestSolverAgreement(t *testing.T) {
	Convey("Given the same sailing problem under VI and LAO*", t, func() {
		problem := newSailingProblem()

		viReg := registry.New(problem)
		viCfg := dp.DefaultValueIterationConfig()
		viCfg.Epsilon = 1e-6
		viCfg.MaxSweeps = 10000
		_, err := dp.ValueIteration(problem, viReg, viCfg)
		So(err, ShouldBeNil)
		viRoot := viReg.Intern(problem.InitialState())

		laoReg := registry.New(problem)
		laoRoot := laoReg.Intern(problem.InitialState())
		laoCfg := dp.DefaultLAOStarConfig()
		laoCfg.Epsilon = 1e-6
		result := dp.LAOStar(problem, laoReg, laoRoot, laoCfg)

		Convey("LAO* converges to the VI value at the start state", func() {
			So(result.Converged, ShouldBeTrue)
			So(math.Abs(laoRoot.Value-viRoot.Value), ShouldBeLessThan, 1e-3)
		})
	})
}
