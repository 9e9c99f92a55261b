// Package registry hash-interns the states of a single mdp.Problem so that
// solvers can tag each canonical state with value, best action, residual,
// and solver labels without threading a side-table through every algorithm.
// The registry owns every state object for the lifetime of the problem;
// solvers hold only the *Node references it hands back from Intern.
//
// The registry is not safe for concurrent mutation: the kernel is
// single-threaded and synchronous, so at most one solver may call
// Intern/Reset against a given registry at a time.
package registry

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/mejrpete/mdp-lib/mdp"
)

// Node is a canonical, interned state together with the solver-owned fields
// every algorithm in this repository shares. Identity (Hash/Equal) is
// delegated to the wrapped mdp.State; Node itself is never hashed.
type Node struct {
	// State is the domain value this node wraps. Exported so solvers can
	// pass it back into mdp.Problem calls (Transition, Cost, Goal, ...).
	State mdp.State

	// Value is the current value estimate, initialized from the
	// problem's heuristic on first intern.
	Value float64

	// BestAction is the action backing the current greedy policy at this
	// node, or nil if it has never been computed (or the node is a dead
	// end / goal).
	BestAction mdp.Action

	// Residual is |value_old - q*| from the node's last Bellman update.
	Residual float64

	// FlaresDepth is the depth at which FLARES declared this node
	// solved-at-depth-t, or -1 if it has not been so labeled.
	FlaresDepth int

	// Labels is the small bit-set described in registry/labels.go.
	Labels *bitset.BitSet

	// extra carries solver-private scalar state (BRTDP's upper bound,
	// VPI-RTDP's visit statistics, ...) that does not warrant a field on
	// every node but still belongs to the canonical object rather than a
	// side-map keyed by pointer identity.
	extra map[string]float64
}

// Extra returns a solver-private scalar keyed by name, defaulting to def if
// unset. Solvers use this for bookkeeping that is not universal enough to
// warrant a dedicated Node field (e.g. BRTDP's upper bound).
func (n *Node) Extra(name string, def float64) float64 {
	if n.extra == nil {
		return def
	}
	if v, ok := n.extra[name]; ok {
		return v
	}
	return def
}

// SetExtra stores a solver-private scalar keyed by name.
func (n *Node) SetExtra(name string, value float64) {
	if n.extra == nil {
		n.extra = make(map[string]float64, 2)
	}
	n.extra[name] = value
}

func newNode(s mdp.State, heuristic float64) *Node {
	return &Node{
		State:       s,
		Value:       heuristic,
		BestAction:  nil,
		Residual:    0,
		FlaresDepth: -1,
		Labels:      newLabelSet(),
	}
}

// StateRegistry is a hash-interned set of canonical Node objects, one per
// equality class of mdp.State reachable (so far) in a problem. Reference
// equality of *Node implies value equality of the wrapped mdp.State.
type StateRegistry struct {
	problem mdp.Problem
	buckets map[uint64][]*Node
	size    int
}

// New creates an empty registry over problem. The heuristic used to
// initialize newly interned states is problem.Heuristic.
func New(problem mdp.Problem) *StateRegistry {
	return &StateRegistry{
		problem: problem,
		buckets: make(map[uint64][]*Node, 256),
	}
}

// Intern returns the canonical Node for s: the existing node if one equal
// to s is already present, else a freshly inserted one with Value seeded
// from the problem's heuristic. Intern(Intern(x).State) == Intern(x) and
// Intern(x) == Intern(y) iff x.Equal(y).
func (r *StateRegistry) Intern(s mdp.State) *Node {
	h := s.Hash()
	for _, node := range r.buckets[h] {
		if node.State.Equal(s) {
			return node
		}
	}

	node := newNode(s, r.problem.Heuristic(s))
	r.buckets[h] = append(r.buckets[h], node)
	r.size++
	return node
}

// Lookup returns the canonical Node for s without inserting, and false if
// no such node has been interned yet.
func (r *StateRegistry) Lookup(s mdp.State) (*Node, bool) {
	for _, node := range r.buckets[s.Hash()] {
		if node.State.Equal(s) {
			return node, true
		}
	}
	return nil, false
}

// Size returns the number of distinct states currently interned.
func (r *StateRegistry) Size() int {
	return r.size
}

// Each calls fn for every interned node, in bucket-then-chain order. Order
// is not guaranteed to be stable across runs with different insertion
// histories and must not be relied on by solvers for reproducibility; use
// the problem's own Actions() order and registry insertion order for that.
func (r *StateRegistry) Each(fn func(*Node)) {
	for _, chain := range r.buckets {
		for _, node := range chain {
			fn(node)
		}
	}
}

// Reset clears value, best action, residual, and labels on every interned
// node, reseeding value from the heuristic. A solver that resets and then
// resolves should reproduce a fresh problem's policy (modulo tie-breaks),
// an idempotence property a well-behaved registry should have.
func (r *StateRegistry) Reset() {
	r.Each(func(n *Node) {
		n.Value = r.problem.Heuristic(n.State)
		n.BestAction = nil
		n.Residual = 0
		n.FlaresDepth = -1
		n.Labels = newLabelSet()
		n.extra = nil
	})
}
