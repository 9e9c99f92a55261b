package registry

import "github.com/bits-and-blooms/bitset"

// Label bit positions for the small dense bit-set carried on every
// registry.Node: Solved, Closed, SolvedFlares, DeadEnd (FLARES' depth is
// kept in Node.FlaresDepth, not as flags). Backed by bits-and-blooms/bitset rather than a hand-rolled mask
// so the set can grow (e.g. per-depth FLARES flags) without redefining the
// storage type.
const (
	// Solved asserts V(s) is within epsilon of V*(s) under the current
	// policy's reachable set (LRTDP, HDP, labeled SSiPP).
	Solved uint = iota
	// Closed marks a state visited during the current DFS/SCC pass
	// (check_solved, Tarjan search); cleared when the pass completes.
	Closed
	// SolvedFlares marks a state solved under FLARES' depth-bounded
	// relaxation of SOLVED. FlaresDepth records the depth at which it was
	// declared solved.
	SolvedFlares
	// DeadEnd marks a state with no applicable action, or whose value has
	// saturated at the problem's dead-end cost.
	DeadEnd

	// numBuiltinLabels is the first bit index available for solver-private
	// flags. THTS does not use this bit-set: its tree nodes keep their
	// solved flags as plain bool fields.
	numBuiltinLabels
)

func newLabelSet() *bitset.BitSet {
	return bitset.New(numBuiltinLabels)
}
