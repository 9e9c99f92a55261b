package shortsighted_test

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/solvers/shortsighted"
)

func TestTHTS(t *testing.T) {
	Convey("Given a small gridworld problem", t, func() {
		problem := newShortSightedProblem()

		Convey("each backup rule returns a non-nil action applicable at the root", func() {
			for _, backup := range []shortsighted.THTSBackup{
				shortsighted.MonteCarlo,
				shortsighted.MaxMonteCarlo,
				shortsighted.PartialBellman,
			} {
				rng := rand.New(rand.NewSource(21))
				cfg := shortsighted.DefaultTHTSConfig(rng)
				cfg.NumTrials = 100
				cfg.Backup = backup

				root := problem.InitialState()
				action := shortsighted.THTS(problem, root, cfg)

				So(action, ShouldNotBeNil)
				So(problem.Applicable(root, action), ShouldBeTrue)
			}
		})
	})
}
