package mdp_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/mdp"
)

func TestGenerateAll(t *testing.T) {
	Convey("Given a small gridworld problem", t, func() {
		problem := gridworld.New(3, 3, 0, 0, map[[2]int]float64{{2, 2}: 0}, nil, 0.03)

		Convey("GenerateAll materializes every reachable cell plus the absorbing state", func() {
			states, err := mdp.GenerateAll(problem, 0)
			So(err, ShouldBeNil)

			seen := map[string]bool{}
			for _, s := range states {
				seen[s.(gridworld.State).String()] = true
			}
			for x := 0; x < 3; x++ {
				for y := 0; y < 3; y++ {
					if x == 2 && y == 2 {
						continue
					}
					cell := gridworld.State{X: x, Y: y}
					So(seen[cell.String()], ShouldBeTrue)
				}
			}
			So(seen["absorbing"], ShouldBeTrue)
		})
	})

	Convey("Given a larger gridworld problem and a tiny enumeration limit", t, func() {
		problem := gridworld.New(10, 10, 0, 0, map[[2]int]float64{{9, 9}: 0}, nil, 0.03)

		Convey("GenerateAll reports ErrNotEnumerable instead of silently truncating", func() {
			_, err := mdp.GenerateAll(problem, 3)
			So(err, ShouldNotBeNil)
			_, ok := err.(*mdp.ErrNotEnumerable)
			So(ok, ShouldBeTrue)
		})
	})
}
