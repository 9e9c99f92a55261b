package shortsighted_test

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/solvers/shortsighted"
)

func TestHOP(t *testing.T) {
	Convey("Given a small gridworld problem", t, func() {
		problem := newShortSightedProblem()
		rng := rand.New(rand.NewSource(13))
		cfg := shortsighted.DefaultHOPConfig(rng)
		cfg.NumSamples = 10
		cfg.Horizon = 20

		Convey("HOP returns an action applicable at the initial state", func() {
			root := problem.InitialState()
			action := shortsighted.HOP(problem, root, cfg)

			So(action, ShouldNotBeNil)
			So(problem.Applicable(root, action), ShouldBeTrue)
		})
	})
}
