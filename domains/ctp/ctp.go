// Package ctp implements the Canadian Traveler Problem: an agent
// navigates a weighted graph toward a goal vertex, but some
// edges are stochastically blocked and their true status is unknown until
// the agent is standing at one of their endpoints. State shape (current
// location plus a per-edge OPEN/BLOCKED/UNKNOWN status matrix) and the
// reachable/potentiallyReachable BFS queries are grounded directly on the
// original mdp-lib's CTPState.cpp; CTPProblem's transition and cost model
// was not present in the retrieved source, so the edge-reveal and
// blocked-edge semantics below follow the standard CTP formulation the
// solver literature (including this library's UCT/HOP/THTS family) is
// benchmarked against.
package ctp

import (
	"fmt"
	"sort"

	"github.com/mejrpete/mdp-lib/mdp"
)

// EdgeStatus is the traversability of a road.
type EdgeStatus uint8

const (
	Unknown EdgeStatus = iota
	Open
	Blocked
)

// Graph is an undirected weighted road network over n vertices.
type Graph struct {
	n         int
	weight    [][]float64
	hasEdge   [][]bool
	blockProb [][]float64
}

// NewGraph builds an empty n-vertex graph.
func NewGraph(n int) *Graph {
	g := &Graph{n: n}
	g.weight = make([][]float64, n)
	g.hasEdge = make([][]bool, n)
	g.blockProb = make([][]float64, n)
	for i := range g.weight {
		g.weight[i] = make([]float64, n)
		g.hasEdge[i] = make([]bool, n)
		g.blockProb[i] = make([]float64, n)
	}
	return g
}

// AddEdge adds an undirected road between u and v with the given travel
// weight and probability of being blocked.
func (g *Graph) AddEdge(u, v int, weight, blockProb float64) {
	g.hasEdge[u][v] = true
	g.hasEdge[v][u] = true
	g.weight[u][v] = weight
	g.weight[v][u] = weight
	g.blockProb[u][v] = blockProb
	g.blockProb[v][u] = blockProb
}

// Neighbors returns the vertices adjacent to v, in ascending order.
func (g *Graph) Neighbors(v int) []int {
	var out []int
	for u := 0; u < g.n; u++ {
		if g.hasEdge[v][u] {
			out = append(out, u)
		}
	}
	sort.Ints(out)
	return out
}

// statusKey canonicalizes an (i,j) edge pair so status is stored once per
// undirected edge regardless of traversal direction.
func statusKey(i, j int) (int, int) {
	if i < j {
		return i, j
	}
	return j, i
}

// Action travels the edge between From and To, which must be adjacent.
type Action struct {
	From, To int
}

func (a Action) Hash() uint64 { return uint64(a.From)<<32 | uint64(uint32(a.To)) }
func (a Action) Equal(other mdp.Action) bool {
	o, ok := other.(Action)
	return ok && o == a
}

// State is the agent's location plus the currently-known status of every
// edge (unknown edges not yet adjacent to any visited vertex remain
// EdgeStatus Unknown).
type State struct {
	Location int
	status   map[[2]int]EdgeStatus
}

func newState(location int) State {
	return State{Location: location, status: map[[2]int]EdgeStatus{}}
}

func (s State) statusOf(i, j int) EdgeStatus {
	a, b := statusKey(i, j)
	return s.status[[2]int{a, b}]
}

func (s State) withStatus(i, j int, st EdgeStatus) State {
	next := State{Location: s.Location, status: make(map[[2]int]EdgeStatus, len(s.status)+1)}
	for k, v := range s.status {
		next.status[k] = v
	}
	a, b := statusKey(i, j)
	next.status[[2]int{a, b}] = st
	return next
}

func (s State) withLocation(loc int) State {
	next := State{Location: loc, status: s.status}
	return next
}

func (s State) Hash() uint64 {
	h := uint64(s.Location) + 1
	keys := make([][2]int, 0, len(s.status))
	for k := range s.status {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})
	for _, k := range keys {
		h = h*1000003 + uint64(k[0])*31 + uint64(k[1])
		h = h*1000003 + uint64(s.status[k])
	}
	return h
}

func (s State) Equal(other mdp.State) bool {
	o, ok := other.(State)
	if !ok || o.Location != s.Location || len(o.status) != len(s.status) {
		return false
	}
	for k, v := range s.status {
		if o.status[k] != v {
			return false
		}
	}
	return true
}

func (s State) String() string {
	return fmt.Sprintf("loc=%d known=%d", s.Location, len(s.status))
}

// reachable does a BFS over edges known Open from s.Location, mirroring
// CTPState::reachable.
func (s State) reachable(g *Graph, target int) bool {
	if s.Location == target {
		return true
	}
	visited := map[int]bool{s.Location: true}
	queue := []int{s.Location}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Neighbors(cur) {
			if s.statusOf(cur, next) != Open || visited[next] {
				continue
			}
			if next == target {
				return true
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// potentiallyReachable does the same BFS but also allows Unknown edges,
// mirroring CTPState::potentiallyReachable.
func (s State) potentiallyReachable(g *Graph, target int) bool {
	if s.Location == target {
		return true
	}
	visited := map[int]bool{s.Location: true}
	queue := []int{s.Location}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Neighbors(cur) {
			if s.statusOf(cur, next) == Blocked || visited[next] {
				continue
			}
			if next == target {
				return true
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// Problem is a CTP MDP instance on Roads, from Start to Goal.
type Problem struct {
	Roads     *Graph
	Start     int
	goalLoc   int
	ProbeCost float64 // cost charged when an edge resolves Blocked

	actions []mdp.Action
}

// New builds a CTP Problem.
func New(roads *Graph, start, goal int, probeCost float64) *Problem {
	p := &Problem{Roads: roads, Start: start, goalLoc: goal, ProbeCost: probeCost}
	for u := 0; u < roads.n; u++ {
		for _, v := range roads.Neighbors(u) {
			p.actions = append(p.actions, Action{From: u, To: v})
		}
	}
	return p
}

func (p *Problem) InitialState() mdp.State { return newState(p.Start) }
func (p *Problem) Actions() []mdp.Action   { return p.actions }
func (p *Problem) DeadEndCost() float64    { return 1e6 }

// Applicable requires the edge to touch the agent's current location and
// not be known Blocked.
func (p *Problem) Applicable(s mdp.State, a mdp.Action) bool {
	st := s.(State)
	act := a.(Action)
	if act.From != st.Location || !p.Roads.hasEdge[act.From][act.To] {
		return false
	}
	return st.statusOf(act.From, act.To) != Blocked
}

func (p *Problem) Goal(s mdp.State) bool {
	return s.(State).Location == p.goalLoc
}

func (p *Problem) Cost(s mdp.State, a mdp.Action) float64 {
	st := s.(State)
	act := a.(Action)
	if st.statusOf(act.From, act.To) == Open {
		return p.Roads.weight[act.From][act.To]
	}
	// Unknown edge: the expected cost of attempting it, weighted by the same
	// block probability Transition branches on -- the edge's weight if it
	// turns out Open, ProbeCost if it turns out Blocked.
	pBlock := p.Roads.blockProb[act.From][act.To]
	return (1-pBlock)*p.Roads.weight[act.From][act.To] + pBlock*p.ProbeCost
}

// Transition resolves an Unknown edge's status (weighted by its block
// probability) before moving: if the edge is Open, the agent advances to
// the far endpoint; if Blocked, the agent stays put having paid ProbeCost.
// An edge already known Open moves deterministically.
func (p *Problem) Transition(s mdp.State, a mdp.Action) []mdp.Successor {
	st := s.(State)
	act := a.(Action)

	if p.Goal(s) {
		return []mdp.Successor{{State: st, Probability: 1.0}}
	}

	switch st.statusOf(act.From, act.To) {
	case Open:
		return []mdp.Successor{{State: st.withLocation(act.To), Probability: 1.0}}
	case Blocked:
		return []mdp.Successor{{State: st, Probability: 1.0}}
	default:
		pBlock := p.Roads.blockProb[act.From][act.To]
		openState := st.withStatus(act.From, act.To, Open).withLocation(act.To)
		blockedState := st.withStatus(act.From, act.To, Blocked)
		successors := []mdp.Successor{}
		if pBlock < 1 {
			successors = append(successors, mdp.Successor{State: openState, Probability: 1 - pBlock})
		}
		if pBlock > 0 {
			successors = append(successors, mdp.Successor{State: blockedState, Probability: pBlock})
		}
		return successors
	}
}

// Heuristic is the shortest-path distance to Goal over edges not known
// Blocked, treating Unknown edges as passable at their nominal weight:
// admissible since the true optimal policy can never do better than a
// world where every Unknown edge turns out Open.
func (p *Problem) Heuristic(s mdp.State) float64 {
	st := s.(State)
	if !st.potentiallyReachable(p.Roads, p.goalLoc) {
		return p.DeadEndCost()
	}

	dist := make(map[int]float64, p.Roads.n)
	dist[st.Location] = 0
	visited := make(map[int]bool)
	for {
		cur, curDist, found := minUnvisited(dist, visited)
		if !found {
			break
		}
		visited[cur] = true
		if cur == p.goalLoc {
			return curDist
		}
		for _, next := range p.Roads.Neighbors(cur) {
			if st.statusOf(cur, next) == Blocked {
				continue
			}
			nd := curDist + p.Roads.weight[cur][next]
			if existing, ok := dist[next]; !ok || nd < existing {
				dist[next] = nd
			}
		}
	}
	if d, ok := dist[p.goalLoc]; ok {
		return d
	}
	return p.DeadEndCost()
}

func minUnvisited(dist map[int]float64, visited map[int]bool) (int, float64, bool) {
	best := -1
	bestDist := 0.0
	for v, d := range dist {
		if visited[v] {
			continue
		}
		if best == -1 || d < bestDist {
			best, bestDist = v, d
		}
	}
	return best, bestDist, best != -1
}
