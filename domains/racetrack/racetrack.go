// Package racetrack implements the classical kinematic racetrack domain
// a car with integer position and velocity accelerates
// by (-1, 0, +1) in each axis per step, paying unit cost per step until it
// enters a finish cell. Actions probabilistically slip (fail to apply the
// requested acceleration) or err (a different, random action is substituted
// instead), and colliding with a wall or leaving the track resets the car to
// the start line at zero velocity. This generalizes the grid_world package's
// reinforcement-learning racetrack (tabular/grid_world, which used rewards
// and episodic Monte Carlo) into a goal-MDP with SSP cost semantics, and
// restores the pSlip/pError parameters from the original mdp-lib's
// RacetrackProblem (referenced by RTrackDetHeuristic.cpp) that the
// reward-based rewrite had dropped.
package racetrack

import (
	"fmt"

	"github.com/mejrpete/mdp-lib/mdp"
)

// Cell types, matching the grid_world package's track encoding.
const (
	Wall   = 'W'
	Track  = 'o'
	Start  = '-'
	Finish = '+'
)

const (
	minAccel = -1
	maxAccel = 1
)

// Action accelerates the car by (Dvx, Dvy), each in {-1, 0, 1}.
type Action struct {
	Dvx, Dvy int
}

func (a Action) Hash() uint64 {
	return uint64((a.Dvx+2)*8 + (a.Dvy + 2))
}

func (a Action) Equal(other mdp.Action) bool {
	o, ok := other.(Action)
	return ok && o.Dvx == a.Dvx && o.Dvy == a.Dvy
}

// State is a track position and velocity.
type State struct {
	X, Y, VX, VY int
}

func (s State) Hash() uint64 {
	return uint64(s.X)<<48 | uint64(s.Y)<<32 | uint64(uint16(s.VX))<<16 | uint64(uint16(s.VY))
}

func (s State) Equal(other mdp.State) bool {
	o, ok := other.(State)
	return ok && o == s
}

func (s State) String() string {
	return fmt.Sprintf("(%d,%d,v=%d,%d)", s.X, s.Y, s.VX, s.VY)
}

// Problem is a racetrack MDP instance parsed from a track layout.
type Problem struct {
	track       []string
	width       int
	height      int
	startX      int
	startY      int
	pSlip       float64
	pError      float64
	maxVelocity int

	actions []mdp.Action
}

// New parses a track (each string a row, top-to-bottom as printed, matching
// the grid_world package's Convert orientation where row 0 of the input is the top
// row) and returns a racetrack Problem with the given slip/error
// probabilities and maximum speed per axis.
func New(track []string, pSlip, pError float64, maxVelocity int) *Problem {
	height := len(track)
	width := len(track[0])
	p := &Problem{
		track:       track,
		width:       width,
		height:      height,
		pSlip:       pSlip,
		pError:      pError,
		maxVelocity: maxVelocity,
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if p.cellAt(x, y) == Start {
				p.startX, p.startY = x, y
			}
		}
	}

	for dvx := minAccel; dvx <= maxAccel; dvx++ {
		for dvy := minAccel; dvy <= maxAccel; dvy++ {
			p.actions = append(p.actions, Action{Dvx: dvx, Dvy: dvy})
		}
	}
	return p
}

// cellAt returns the track cell type at (x,y), using the same
// bottom-up orientation: row 0 of the stored track is the top row as
// printed, but y=0 is the bottom of the coordinate system.
func (p *Problem) cellAt(x, y int) rune {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return Wall
	}
	return rune(p.track[p.height-y-1][x])
}

func (p *Problem) InitialState() mdp.State {
	return State{X: p.startX, Y: p.startY, VX: 0, VY: 0}
}

func (p *Problem) Actions() []mdp.Action { return p.actions }

func (p *Problem) Applicable(s mdp.State, a mdp.Action) bool {
	st := s.(State)
	act := a.(Action)
	nvx := clamp(st.VX+act.Dvx, -p.maxVelocity, p.maxVelocity)
	nvy := clamp(st.VY+act.Dvy, -p.maxVelocity, p.maxVelocity)
	// By problem definition the car cannot stand stationary off the
	// start line.
	return nvx != 0 || nvy != 0 || p.cellAt(st.X, st.Y) == Start
}

func (p *Problem) DeadEndCost() float64 { return 1e6 }

func (p *Problem) Goal(s mdp.State) bool {
	st := s.(State)
	return p.cellAt(st.X, st.Y) == Finish
}

func (p *Problem) Cost(s mdp.State, a mdp.Action) float64 {
	if p.Goal(s) {
		return 0
	}
	return 1
}

// Transition applies (Dvx, Dvy) with probability (1-pSlip)*(1-pError), a
// failed (zero) acceleration with probability pSlip*(1-pError), and a
// uniformly random substituted action with probability pError, then moves in a straight line
// from the current position by the resulting velocity, resetting to the
// start line at zero velocity if that line-of-sight path crosses a wall or
// leaves the track (the same line-of-sight check as
// grid_world.checkTerminalCollision, but cast as a reset rather than a
// terminal reward).
func (p *Problem) Transition(s mdp.State, a mdp.Action) []mdp.Successor {
	st := s.(State)
	act := a.(Action)

	if p.Goal(s) {
		return []mdp.Successor{{State: st, Probability: 1.0}}
	}

	type outcome struct {
		dvx, dvy int
		prob     float64
	}
	var outcomes []outcome

	pIntended := (1 - p.pSlip) * (1 - p.pError)
	if pIntended > 0 {
		outcomes = append(outcomes, outcome{act.Dvx, act.Dvy, pIntended})
	}
	if p.pSlip > 0 {
		outcomes = append(outcomes, outcome{0, 0, p.pSlip * (1 - p.pError)})
	}
	if p.pError > 0 {
		// Spread pError uniformly over the other 8 acceleration pairs.
		nAlternatives := 0
		for dvx := minAccel; dvx <= maxAccel; dvx++ {
			for dvy := minAccel; dvy <= maxAccel; dvy++ {
				if dvx != act.Dvx || dvy != act.Dvy {
					nAlternatives++
				}
			}
		}
		each := p.pError / float64(nAlternatives)
		for dvx := minAccel; dvx <= maxAccel; dvx++ {
			for dvy := minAccel; dvy <= maxAccel; dvy++ {
				if dvx == act.Dvx && dvy == act.Dvy {
					continue
				}
				outcomes = append(outcomes, outcome{dvx, dvy, each})
			}
		}
	}

	successors := make([]mdp.Successor, 0, len(outcomes))
	for _, o := range outcomes {
		if o.prob <= 0 {
			continue
		}
		nvx := clamp(st.VX+o.dvx, -p.maxVelocity, p.maxVelocity)
		nvy := clamp(st.VY+o.dvy, -p.maxVelocity, p.maxVelocity)
		next := p.moveAlong(st, nvx, nvy)
		successors = append(successors, mdp.Successor{State: next, Probability: o.prob})
	}
	return successors
}

// moveAlong walks the line-of-sight from st by (vx,vy), one unit cell at a
// time; if it leaves the track or hits a wall, the car resets to the start
// line at zero velocity, otherwise it lands at (x+vx, y+vy) with velocity
// (vx,vy).
func (p *Problem) moveAlong(st State, vx, vy int) State {
	if vx == 0 && vy == 0 {
		return State{X: st.X, Y: st.Y, VX: 0, VY: 0}
	}

	steps := maxAbs(vx, vy)
	x, y := float64(st.X), float64(st.Y)
	stepX, stepY := float64(vx)/float64(steps), float64(vy)/float64(steps)
	for i := 0; i < steps; i++ {
		x += stepX
		y += stepY
		cx, cy := round(x), round(y)
		cell := p.cellAt(cx, cy)
		if cell == Wall {
			return State{X: p.startX, Y: p.startY, VX: 0, VY: 0}
		}
	}
	return State{X: round(x), Y: round(y), VX: vx, VY: vy}
}

// Heuristic is zero by default; domains/racetrack/heuristic.go supplies the
// admissible deterministic-relaxation heuristic (RTrackDetHeuristic).
func (p *Problem) Heuristic(mdp.State) float64 { return 0 }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	if b == 0 {
		return 1
	}
	return b
}

func round(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return int(f - 0.5)
}
