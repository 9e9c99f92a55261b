package dp_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/dp"
)

// lexiGridworld wraps gridworld's uniform-step-cost problem with a second
// objective that prefers action index 0 (North) over every other
// direction, letting a test confirm that level 1 only ever breaks ties left
// by level 0's uniform per-step cost rather than overriding it.
type lexiGridworld struct {
	*gridworld.Problem
	preferred mdp.Action
}

func newLexiProblem() *lexiGridworld {
	base := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)
	return &lexiGridworld{Problem: base, preferred: base.Actions()[0]}
}

func (l *lexiGridworld) NumObjectives() int { return 2 }

func (l *lexiGridworld) ObjectiveCost(level int, s mdp.State, a mdp.Action) float64 {
	if level == 0 {
		return l.Problem.Cost(s, a)
	}
	if a.Hash() == l.preferred.Hash() {
		return 0
	}
	return 1
}

func TestLexicographicLAOStar(t *testing.T) {
	Convey("Given a two-objective gridworld problem", t, func() {
		problem := newLexiProblem()

		Convey("it runs one LAO* pass per objective level", func() {
			reg := registry.New(problem)
			root := reg.Intern(problem.InitialState())
			cfg := dp.DefaultLAOStarConfig()

			result := dp.LexicographicLAOStar(problem, reg, root, cfg)

			So(len(result.Levels), ShouldEqual, problem.NumObjectives())
			for _, level := range result.Levels {
				So(level.Converged, ShouldBeTrue)
			}
		})

		Convey("the final envelope is solved under the last objective's costs", func() {
			reg := registry.New(problem)
			root := reg.Intern(problem.InitialState())
			cfg := dp.DefaultLAOStarConfig()

			dp.LexicographicLAOStar(problem, reg, root, cfg)

			So(root.Labels.Test(registry.Solved), ShouldBeTrue)
		})
	})
}
