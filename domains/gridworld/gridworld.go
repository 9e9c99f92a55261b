// Package gridworld implements the four-connected stochastic gridworld
// domain: a state moves in its intended
// direction with probability 0.8 and drifts to either perpendicular
// direction with probability 0.1 each, bounded by walls and the grid edge.
// Reaching a goal cell transitions to a single absorbing state with cost 0
// thereafter, grounded directly on the original mdp-lib's
// src/domains/gridworld/GridWorldProblem.cpp.
package gridworld

import (
	"fmt"

	"github.com/mejrpete/mdp-lib/mdp"
)

// Direction is one of the four compass actions.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	default:
		return "?"
	}
}

// Action is a single compass move. It implements mdp.Action.
type Action struct {
	Dir Direction
}

func (a Action) Hash() uint64 { return uint64(a.Dir) + 1 }
func (a Action) Equal(other mdp.Action) bool {
	o, ok := other.(Action)
	return ok && o.Dir == a.Dir
}

// State is a grid position, or the distinguished absorbing state reached
// once any goal cell is entered.
type State struct {
	X, Y      int
	Absorbing bool
}

func (s State) Hash() uint64 {
	if s.Absorbing {
		return 0xffffffffffffffff
	}
	// X in the high 32 bits, Y in the low 32 bits: distinct for any
	// non-negative coordinates below 2^32.
	return uint64(s.X)<<32 | uint64(uint32(s.Y))
}

func (s State) Equal(other mdp.State) bool {
	o, ok := other.(State)
	return ok && o.X == s.X && o.Y == s.Y && o.Absorbing == s.Absorbing
}

func (s State) String() string {
	if s.Absorbing {
		return "absorbing"
	}
	return fmt.Sprintf("(%d,%d)", s.X, s.Y)
}

// Problem is a gridworld MDP instance.
type Problem struct {
	Width, Height int
	Start         State
	Goals         map[[2]int]float64 // goal cell -> cost of entering it (usually 0)
	Walls         map[[2]int]bool
	StepCost      float64
	DeadEnd       float64

	actions  []mdp.Action
	absorber State
}

// New builds a gridworld Problem. goals maps goal coordinates to the cost
// of transitioning into them (typically 0).
func New(width, height int, startX, startY int, goals map[[2]int]float64, walls map[[2]int]bool, stepCost float64) *Problem {
	if walls == nil {
		walls = map[[2]int]bool{}
	}
	return &Problem{
		Width:    width,
		Height:   height,
		Start:    State{X: startX, Y: startY},
		Goals:    goals,
		Walls:    walls,
		StepCost: stepCost,
		DeadEnd:  1e6,
		actions: []mdp.Action{
			Action{Dir: Up}, Action{Dir: Down}, Action{Dir: Left}, Action{Dir: Right},
		},
		absorber: State{Absorbing: true},
	}
}

func (p *Problem) InitialState() mdp.State               { return p.Start }
func (p *Problem) Actions() []mdp.Action                 { return p.actions }
func (p *Problem) DeadEndCost() float64                  { return p.DeadEnd }
func (p *Problem) Applicable(mdp.State, mdp.Action) bool { return true }

func (p *Problem) isGoal(x, y int) bool {
	_, ok := p.Goals[[2]int{x, y}]
	return ok
}

func (p *Problem) Goal(s mdp.State) bool {
	gs := s.(State)
	return gs.Absorbing
}

// Transition implements the 0.8/0.1/0.1 drift model: the intended direction
// with probability 0.8, each of the two perpendicular directions with
// probability 0.1. A move into a wall or off the grid edge is a no-op (the
// agent stays in place for that branch of the distribution), matching
// GridWorldProblem::addSuccessor's "stay if blocked" semantics.
func (p *Problem) Transition(s mdp.State, a mdp.Action) []mdp.Successor {
	gs := s.(State)
	act := a.(Action)

	if gs.Absorbing || p.isGoal(gs.X, gs.Y) {
		return []mdp.Successor{{State: p.absorber, Probability: 1.0}}
	}

	intended, perp1, perp2 := directionsFor(act.Dir)
	successors := []mdp.Successor{
		{State: p.step(gs, intended), Probability: 0.8},
		{State: p.step(gs, perp1), Probability: 0.1},
		{State: p.step(gs, perp2), Probability: 0.1},
	}
	return successors
}

// directionsFor returns (intended, perpendicular1, perpendicular2) for a
// commanded direction: up/down drift left/right, left/right drift up/down.
func directionsFor(d Direction) (Direction, Direction, Direction) {
	switch d {
	case Up, Down:
		return d, Left, Right
	default:
		return d, Up, Down
	}
}

func (p *Problem) step(s State, d Direction) mdp.State {
	nx, ny := s.X, s.Y
	switch d {
	case Up:
		ny++
	case Down:
		ny--
	case Left:
		nx--
	case Right:
		nx++
	}

	if nx < 0 || nx >= p.Width || ny < 0 || ny >= p.Height || p.Walls[[2]int{nx, ny}] {
		return s
	}
	return State{X: nx, Y: ny}
}

func (p *Problem) Cost(s mdp.State, a mdp.Action) float64 {
	gs := s.(State)
	if gs.Absorbing {
		return 0
	}
	if cost, ok := p.Goals[[2]int{gs.X, gs.Y}]; ok {
		return cost
	}
	return p.StepCost
}

// Heuristic is the Manhattan distance to the nearest goal, scaled by
// StepCost: admissible whenever StepCost is the true minimum per-step cost
// and goals cost 0 to enter, since diagonal shortcuts are unavailable in a
// four-connected grid.
func (p *Problem) Heuristic(s mdp.State) float64 {
	gs := s.(State)
	if gs.Absorbing {
		return 0
	}
	if len(p.Goals) == 0 {
		return 0
	}

	best := -1
	for cell := range p.Goals {
		d := abs(gs.X-cell[0]) + abs(gs.Y-cell[1])
		if best == -1 || d < best {
			best = d
		}
	}
	return float64(best) * p.StepCost
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
