// Package sailing implements the sailing domain: a
// boat at grid position (x, y) sails toward a destination under a
// stochastically shifting wind direction. The cost of moving in a given
// compass direction depends on the angle between that direction and the
// current wind ("tacking" directly upwind is expensive, a beam or following
// wind is cheap), and the wind itself randomly shifts by one compass point
// with small probability each step. State shape (x, y, wind) is grounded on
// the original mdp-lib's SailingState.h; the tack-cost and wind-drift model
// follows the sailing-domain benchmark this library's UCT/HOP/THTS solvers
// are traditionally evaluated against.
package sailing

import (
	"fmt"

	"github.com/mejrpete/mdp-lib/mdp"
)

// Direction is one of 8 compass points, used for both the boat's heading
// and the wind's direction.
type Direction int

const (
	N Direction = iota
	NE
	E
	SE
	S
	SW
	W
	NW
	numDirections
)

func (d Direction) String() string {
	return [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}[d]
}

// delta returns the (dx, dy) grid step for sailing in direction d.
func (d Direction) delta() (int, int) {
	switch d {
	case N:
		return 0, 1
	case NE:
		return 1, 1
	case E:
		return 1, 0
	case SE:
		return 1, -1
	case S:
		return 0, -1
	case SW:
		return -1, -1
	case W:
		return -1, 0
	case NW:
		return -1, 1
	}
	return 0, 0
}

// tackCost is the relative cost of sailing in a direction whose angular
// distance from the wind is the given number of compass points (0 =
// sailing straight into the wind, 4 = running directly before it). Costs
// follow the classic no-go-zone model: in irons (distance 0-1) is
// prohibitive, a close reach is expensive, a beam reach or better is cheap.
var tackCost = [5]float64{100, 8, 3, 1.5, 1}

func angularDistance(a, b Direction) int {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	if d > 4 {
		d = 8 - d
	}
	return d
}

// Action sails the boat in a compass direction.
type Action struct {
	Dir Direction
}

func (a Action) Hash() uint64 { return uint64(a.Dir) + 1 }
func (a Action) Equal(other mdp.Action) bool {
	o, ok := other.(Action)
	return ok && o.Dir == a.Dir
}

// State is a boat position and the current wind direction.
type State struct {
	X, Y int
	Wind Direction
}

func (s State) Hash() uint64 {
	return uint64(uint16(s.X))<<32 | uint64(uint16(s.Y))<<16 | uint64(s.Wind)
}

func (s State) Equal(other mdp.State) bool {
	o, ok := other.(State)
	return ok && o == s
}

func (s State) String() string {
	return fmt.Sprintf("(%d,%d,wind=%s)", s.X, s.Y, s.Wind)
}

// Problem is a sailing MDP instance: reach (GoalX, GoalY) from Start at
// minimum expected tacking cost, under a wind that shifts by one compass
// point left or right with probability WindShiftProb (split evenly) each
// step and otherwise holds.
type Problem struct {
	Width, Height int
	Start         State
	GoalX, GoalY  int
	WindShiftProb float64

	actions []mdp.Action
}

// New builds a sailing Problem on a Width x Height grid.
func New(width, height, startX, startY int, startWind Direction, goalX, goalY int, windShiftProb float64) *Problem {
	p := &Problem{
		Width: width, Height: height,
		Start:         State{X: startX, Y: startY, Wind: startWind},
		GoalX:         goalX,
		GoalY:         goalY,
		WindShiftProb: windShiftProb,
	}
	for d := Direction(0); d < numDirections; d++ {
		p.actions = append(p.actions, Action{Dir: d})
	}
	return p
}

func (p *Problem) InitialState() mdp.State { return p.Start }
func (p *Problem) Actions() []mdp.Action   { return p.actions }
func (p *Problem) DeadEndCost() float64    { return 1e6 }

// Applicable forbids sailing directly into the eye of the wind (angular
// distance 0) or the adjacent "in irons" headings (distance 1): a boat
// cannot generate forward thrust there, so those actions are not available
// rather than merely expensive.
func (p *Problem) Applicable(s mdp.State, a mdp.Action) bool {
	st := s.(State)
	act := a.(Action)
	return angularDistance(act.Dir, st.Wind) >= 2
}

func (p *Problem) Goal(s mdp.State) bool {
	st := s.(State)
	return st.X == p.GoalX && st.Y == p.GoalY
}

func (p *Problem) Cost(s mdp.State, a mdp.Action) float64 {
	if p.Goal(s) {
		return 0
	}
	st := s.(State)
	act := a.(Action)
	return tackCost[angularDistance(act.Dir, st.Wind)]
}

// Transition moves the boat one cell in the sailed direction (clamped to
// the grid: sailing off the edge is a no-op for position) and shifts the
// wind one point clockwise or counterclockwise with probability
// WindShiftProb/2 each, holding with the remainder.
func (p *Problem) Transition(s mdp.State, a mdp.Action) []mdp.Successor {
	st := s.(State)
	act := a.(Action)

	if p.Goal(s) {
		return []mdp.Successor{{State: st, Probability: 1.0}}
	}

	dx, dy := act.Dir.delta()
	nx, ny := clampCoord(st.X+dx, p.Width), clampCoord(st.Y+dy, p.Height)

	holdProb := 1 - p.WindShiftProb
	shiftEach := p.WindShiftProb / 2

	successors := []mdp.Successor{
		{State: State{X: nx, Y: ny, Wind: st.Wind}, Probability: holdProb},
	}
	if shiftEach > 0 {
		successors = append(successors,
			mdp.Successor{State: State{X: nx, Y: ny, Wind: (st.Wind + 1) % numDirections}, Probability: shiftEach},
			mdp.Successor{State: State{X: nx, Y: ny, Wind: (st.Wind - 1 + numDirections) % numDirections}, Probability: shiftEach},
		)
	}
	return successors
}

// Heuristic is the Chebyshev (diagonal) distance to the goal times the
// cheapest possible per-step tack cost: admissible since no tack can cost
// less than a following wind and the grid allows diagonal moves.
func (p *Problem) Heuristic(s mdp.State) float64 {
	st := s.(State)
	dx, dy := abs(st.X-p.GoalX), abs(st.Y-p.GoalY)
	steps := dx
	if dy > steps {
		steps = dy
	}
	return float64(steps) * tackCost[4]
}

func clampCoord(v, max int) int {
	if v < 0 {
		return 0
	}
	if v >= max {
		return max - 1
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
