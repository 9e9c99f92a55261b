// Package mdp defines the abstract contract shared by every solver in this
// repository: state and action identity, successor distributions, cost, goal
// test, and an admissible heuristic. Domains (gridworld, racetrack, sailing,
// CTP, ...) implement Problem; solvers operate polymorphically over it and
// never downcast to a concrete domain type.
package mdp

// State is an opaque domain value. Hash and Equal must be defined over the
// domain portion of the state only -- solver-owned bookkeeping (value, best
// action, residual, labels) lives in registry.Node, not here, and never
// participates in identity.
type State interface {
	Hash() uint64
	Equal(other State) bool
}

// Action is an opaque domain value enumerated once by a Problem in a stable
// order. Tie-breaking in greedy action selection depends on that order being
// preserved across calls.
type Action interface {
	Hash() uint64
	Equal(other Action) bool
}

// Successor is one outcome of a (state, action) transition: the resulting
// state and the probability of reaching it.
type Successor struct {
	State       State
	Probability float64
}

// Problem is the sole contract between the planning kernel and a domain.
// Implementations may compute successors lazily; nothing in this interface
// requires the full state space to be enumerable.
type Problem interface {
	// InitialState returns the state from which solving begins.
	InitialState() State

	// Actions enumerates every action known to the problem, once, in a
	// stable order. Not every action need be Applicable in every state.
	Actions() []Action

	// Applicable reports whether a can be taken in s.
	Applicable(s State, a Action) bool

	// Transition returns the successor distribution for (s, a). The
	// returned probabilities must sum to 1 within a small epsilon
	// whenever Applicable(s, a) holds. Behavior is undefined if a is not
	// applicable in s.
	Transition(s State, a Action) []Successor

	// Cost returns the cost of taking a in s. Cost must be non-negative;
	// Cost(goal, *) must be 0. A cost >= DeadEndCost signals an
	// unreachable-goal transition.
	Cost(s State, a Action) float64

	// Goal reports whether s is a goal state.
	Goal(s State) bool

	// Heuristic returns an estimate of the cost-to-go from s. Solvers
	// that require admissibility (Heuristic(s) <= V*(s)) document that
	// requirement; this interface does not enforce it at runtime.
	Heuristic(s State) float64

	// DeadEndCost is the finite-but-large cost used to flag states from
	// which the goal is unreachable.
	DeadEndCost() float64
}
