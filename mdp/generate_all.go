package mdp

import "fmt"

// ErrNotEnumerable is returned by GenerateAll when the caller asks a lazy
// domain to materialize its full reachable set and the number of states
// visited exceeds the caller-supplied limit. Solvers that are intrinsically synchronous
// (value iteration) treat this as fatal; trial-based solvers never call
// GenerateAll and are unaffected.
type ErrNotEnumerable struct {
	VisitedSoFar int
	Limit        int
}

func (e *ErrNotEnumerable) Error() string {
	return fmt.Sprintf("mdp: state space exceeds enumeration limit (%d states visited, limit %d)", e.VisitedSoFar, e.Limit)
}

// stateKey is the registry-free identity used purely for the BFS visited
// set: states with equal Hash are disambiguated with Equal, same as the
// state registry does, but GenerateAll does not require a registry to run.
type stateKey struct {
	hash  uint64
	state State
}

// visitedSet is a simple hash/equal set mirroring registry.StateRegistry's
// collision-chain discipline, kept local to avoid a dependency from mdp on
// registry.
type visitedSet struct {
	buckets map[uint64][]State
}

func newVisitedSet() *visitedSet {
	return &visitedSet{buckets: make(map[uint64][]State)}
}

func (v *visitedSet) contains(s State) bool {
	for _, candidate := range v.buckets[s.Hash()] {
		if candidate.Equal(s) {
			return true
		}
	}
	return false
}

func (v *visitedSet) add(s State) {
	h := s.Hash()
	v.buckets[h] = append(v.buckets[h], s)
}

// GenerateAll performs a breadth-first traversal from problem's initial
// state, following Transition over every Applicable action, to materialize
// the full reachable state set. Dead ends (no applicable action, or cost >=
// problem.DeadEndCost()) terminate that branch of the search rather than
// expanding further.
//
// limit bounds the number of states visited before giving up, returning
// ErrNotEnumerable; pass 0 for no limit.
func GenerateAll(problem Problem, limit int) ([]State, error) {
	visited := newVisitedSet()
	order := make([]State, 0, 64)

	start := problem.InitialState()
	visited.add(start)
	order = append(order, start)

	// Explicit worklist (stack discipline is irrelevant for BFS
	// completeness here; a slice-backed queue avoids recursion depth
	// limits on large reachable sets per the redesign note on recursion).
	queue := []State{start}
	actions := problem.Actions()

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		if problem.Goal(s) {
			continue
		}

		expanded := false
		for _, a := range actions {
			if !problem.Applicable(s, a) {
				continue
			}
			if problem.Cost(s, a) >= problem.DeadEndCost() {
				continue
			}
			expanded = true
			for _, succ := range problem.Transition(s, a) {
				if visited.contains(succ.State) {
					continue
				}
				visited.add(succ.State)
				order = append(order, succ.State)
				queue = append(queue, succ.State)

				if limit > 0 && len(order) > limit {
					return order, &ErrNotEnumerable{VisitedSoFar: len(order), Limit: limit}
				}
			}
		}
		_ = expanded // dead ends (expanded == false) simply stop branching
	}

	return order, nil
}
