package shortsighted_test

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/shortsighted"
)

func newShortSightedProblem() *gridworld.Problem {
	return gridworld.New(4, 4, 0, 0, map[[2]int]float64{{3, 3}: 0}, nil, 0.03)
}

func TestSSiPP(t *testing.T) {
	Convey("Given a small gridworld problem", t, func() {
		problem := newShortSightedProblem()

		Convey("SSiPP produces a first action and a non-empty trace", func() {
			reg := registry.New(problem)
			rng := rand.New(rand.NewSource(42))
			cfg := shortsighted.DefaultSSiPPConfig(rng)
			cfg.Horizon = 3

			action, trace, err := shortsighted.SSiPP(problem, reg, problem.InitialState(), cfg)

			So(err, ShouldBeNil)
			So(action, ShouldNotBeNil)
			So(len(trace), ShouldBeGreaterThan, 0)
			So(problem.Goal(trace[0]), ShouldBeFalse)
		})

		Convey("a trajectory-probability horizon produces a usable action", func() {
			reg := registry.New(problem)
			rng := rand.New(rand.NewSource(7))
			cfg := shortsighted.DefaultSSiPPConfig(rng)
			cfg.UseTrajProbabilities = true
			cfg.Rho = 0.1

			action, trace, err := shortsighted.SSiPP(problem, reg, problem.InitialState(), cfg)

			So(err, ShouldBeNil)
			So(action, ShouldNotBeNil)
			So(len(trace), ShouldBeGreaterThan, 0)
		})

		Convey("a tight horizon still produces a usable action", func() {
			reg := registry.New(problem)
			rng := rand.New(rand.NewSource(11))
			cfg := shortsighted.SSiPPConfig{Horizon: 1, Epsilon: 0.001, MaxSweeps: 100, Rng: rng}

			action, _, err := shortsighted.SSiPP(problem, reg, problem.InitialState(), cfg)

			So(err, ShouldBeNil)
			So(action, ShouldNotBeNil)
		})
	})
}

func TestLabeledSSiPP(t *testing.T) {
	Convey("Given a small gridworld problem", t, func() {
		problem := newShortSightedProblem()
		reg := registry.New(problem)
		rng := rand.New(rand.NewSource(5))

		cfg := shortsighted.LabeledSSiPPConfig{SSiPPConfig: shortsighted.DefaultSSiPPConfig(rng)}
		cfg.Horizon = 3

		Convey("LabeledSSiPP produces a first action, a non-empty trace, and labels a converged root Solved", func() {
			action, trace, err := shortsighted.LabeledSSiPP(problem, reg, problem.InitialState(), cfg)

			So(err, ShouldBeNil)
			So(action, ShouldNotBeNil)
			So(len(trace), ShouldBeGreaterThan, 0)

			root, ok := reg.Lookup(problem.InitialState())
			So(ok, ShouldBeTrue)
			So(root.Labels.Test(registry.Solved), ShouldBeTrue)
		})
	})
}
