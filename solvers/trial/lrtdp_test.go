package trial_test

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/dp"
	"github.com/mejrpete/mdp-lib/solvers/trial"
)

func newTrialProblem() *gridworld.Problem {
	return gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
}

func TestLRTDP(t *testing.T) {
	Convey("Given a small gridworld problem", t, func() {
		problem := newTrialProblem()

		Convey("LRTDP solves and labels the root Solved", func() {
			reg := registry.New(problem)
			root := reg.Intern(problem.InitialState())
			rng := rand.New(rand.NewSource(1))

			result := trial.LRTDP(problem, reg, root, trial.DefaultLRTDPConfig(rng))

			So(result.Solved, ShouldBeTrue)
			So(root.Labels.Test(registry.Solved), ShouldBeTrue)
		})

		Convey("LRTDP's root value agrees with full Value Iteration's root value", func() {
			viReg := registry.New(problem)
			_, err := dp.ValueIteration(problem, viReg, dp.DefaultValueIterationConfig())
			So(err, ShouldBeNil)
			viRoot, _ := viReg.Lookup(problem.InitialState())

			lrtdpReg := registry.New(problem)
			lrtdpRoot := lrtdpReg.Intern(problem.InitialState())
			rng := rand.New(rand.NewSource(7))
			result := trial.LRTDP(problem, lrtdpReg, lrtdpRoot, trial.DefaultLRTDPConfig(rng))

			So(result.Solved, ShouldBeTrue)
			So(math.Abs(viRoot.Value-lrtdpRoot.Value), ShouldBeLessThan, 1e-2)
		})

		Convey("MaxTrials bounds the number of trials run", func() {
			reg := registry.New(problem)
			root := reg.Intern(problem.InitialState())
			rng := rand.New(rand.NewSource(3))
			cfg := trial.DefaultLRTDPConfig(rng)
			cfg.MaxTrials = 1

			result := trial.LRTDP(problem, reg, root, cfg)
			So(result.Trials, ShouldBeLessThanOrEqualTo, 1)
		})
	})
}
