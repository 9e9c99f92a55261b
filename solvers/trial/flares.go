package trial

import (
	"math"
	"math/rand"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// FLARESConfig bounds a FLARES run. Depth is the horizon t within which a
// node can be declared SolvedFlares (a relaxation of Solved that only
// guarantees convergence t steps ahead, not all the way to a goal).
type FLARESConfig struct {
	Epsilon   float64
	Depth     int
	MaxTrials int
	MaxDepth  int
	Rng       *rand.Rand
}

// DefaultFLARESConfig mirrors DefaultLRTDPConfig with a 20-step solved
// horizon, a typical depth at which FLARES' relaxation starts paying off.
func DefaultFLARESConfig(rng *rand.Rand) FLARESConfig {
	return FLARESConfig{Epsilon: 0.001, Depth: 20, MaxTrials: 1_000_000, MaxDepth: 1000, Rng: rng}
}

// FLARESResult reports how FLARES terminated.
type FLARESResult struct {
	Trials int
	Solved bool
}

// FLARES runs LRTDP-style trials, but a trial may stop early once it
// reaches a node already labeled SolvedFlares at a depth greater than or
// equal to the remaining steps needed, rather than only at Solved or a
// goal: a depth-relaxed labeled RTDP restoring the original mdp-lib's
// FLARESSolver rather than treating it as plain LRTDP. The labeling pass is the same checkSolved DFS as LRTDP,
// generalized to accept convergence within cfg.Depth steps as sufficient
// to label SolvedFlares (with FlaresDepth recording how far the guarantee
// reaches) even when full Solved convergence has not been reached.
func FLARES(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, cfg FLARESConfig) FLARESResult {
	result := FLARESResult{}

	for trial := 0; cfg.MaxTrials == 0 || trial < cfg.MaxTrials; trial++ {
		if isEffectivelySolved(root, cfg.Depth) {
			result.Solved = true
			return result
		}
		result.Trials++
		runFlaresTrial(problem, reg, root, cfg)
		checkSolvedFlares(problem, reg, root, cfg.Epsilon, cfg.Depth)
	}

	result.Solved = isEffectivelySolved(root, cfg.Depth)
	return result
}

func isEffectivelySolved(node *registry.Node, depth int) bool {
	if node.Labels.Test(registry.Solved) {
		return true
	}
	return node.Labels.Test(registry.SolvedFlares) && node.FlaresDepth >= depth
}

func runFlaresTrial(problem mdp.Problem, reg *registry.StateRegistry, node *registry.Node, cfg FLARESConfig) {
	cur := node
	for depth := 0; cfg.MaxDepth == 0 || depth < cfg.MaxDepth; depth++ {
		if problem.Goal(cur.State) || cur.Labels.Test(registry.DeadEnd) || isEffectivelySolved(cur, cfg.Depth) {
			return
		}
		bellman.BellmanUpdate(problem, reg, cur)
		if cur.BestAction == nil {
			return
		}
		next := bellman.RandomSuccessor(problem, cur.State, cur.BestAction, cfg.Rng)
		cur = reg.Intern(next)
	}
}

// checkSolvedFlares is checkSolved generalized with a remaining-depth
// budget: a node is accepted into the solved set once its residual has
// converged and either it is within cfg.Depth steps of the DFS root (pure
// FLARES, a hard horizon) or every one of its descendants has itself
// already converged all the way to a goal (in which case it earns full
// Solved rather than the depth-bounded SolvedFlares label).
func checkSolvedFlares(problem mdp.Problem, reg *registry.StateRegistry, s *registry.Node, epsilon float64, depth int) bool {
	type frame struct {
		node  *registry.Node
		depth int
	}

	rv := true
	visited := map[*registry.Node]bool{}
	order := []*registry.Node{}
	minDepthSeen := map[*registry.Node]int{}

	stack := []frame{{s, 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := top.node

		if d, ok := minDepthSeen[node]; ok && d <= top.depth {
			continue
		}
		minDepthSeen[node] = top.depth
		if visited[node] {
			continue
		}
		visited[node] = true
		order = append(order, node)

		if problem.Goal(node.State) || node.Labels.Test(registry.DeadEnd) {
			continue
		}

		bellman.BellmanUpdate(problem, reg, node)
		if residualAbove(node, epsilon) {
			rv = false
		}

		if top.depth >= depth {
			// Horizon reached: do not expand further, but this branch
			// alone does not disqualify solving at the depth-bounded
			// label.
			continue
		}
		if node.BestAction == nil {
			continue
		}
		for _, succ := range problem.Transition(node.State, node.BestAction) {
			child := reg.Intern(succ.State)
			if !isEffectivelySolved(child, depth) {
				stack = append(stack, frame{child, top.depth + 1})
			}
		}
	}

	for _, node := range order {
		if rv {
			remaining := depth - minDepthSeen[node]
			if remaining > node.FlaresDepth {
				node.FlaresDepth = remaining
			}
			node.Labels.Set(registry.SolvedFlares)
			if minDepthSeen[node] == 0 {
				// s itself converged with its whole explored subtree
				// within depth: a conservative full Solved label, since
				// no expansion beyond the horizon was required to verify
				// it.
				node.Labels.Set(registry.Solved)
			}
		}
	}
	return rv
}

// LabelFunction selects the monotone map from a node's distance to the
// probability of declaring it solved. Step recovers FLARES' hard horizon;
// the others decay smoothly, so a node just past the horizon still has
// some chance of earning the label.
type LabelFunction int

const (
	LabelStep LabelFunction = iota
	LabelLinear
	LabelExponential
	LabelLogistic
)

// DistanceFunction selects what "distance" means during the labeling DFS:
// transition count from the DFS root, negative log trajectory probability,
// or plausibility (the number of non-most-likely outcomes taken along the
// path, an outcome-rank measure).
type DistanceFunction int

const (
	DistanceStepCount DistanceFunction = iota
	DistanceTrajProb
	DistancePlausibility
)

// HorizonFunction perturbs the effective labeling depth per trial: Fixed
// always uses Depth, Exponential samples a depth with mean Depth, and
// Bernoulli alternates between Depth and twice Depth with equal
// probability.
type HorizonFunction int

const (
	HorizonFixed HorizonFunction = iota
	HorizonExponential
	HorizonBernoulli
)

// SoftFLARESConfig replaces FLARES' hard depth cutoff with a probabilistic
// one: after a converged labeling DFS, each visited node is declared
// solved with probability Label(distance), where the distance metric and
// the per-trial effective depth are themselves configurable. When
// MinProbability > 0, expansion additionally prunes any branch whose
// cumulative reach probability from the DFS root has fallen under it.
type SoftFLARESConfig struct {
	Epsilon        float64
	Depth          int
	Label          LabelFunction
	Distance       DistanceFunction
	Horizon        HorizonFunction
	MinProbability float64
	MaxTrials      int
	MaxDepth       int
	Rng            *rand.Rand
}

// DefaultSoftFLARESConfig uses step-count distance under a fixed 20-step
// horizon with a linear label decay and no probability pruning, the
// configuration closest to plain FLARES.
func DefaultSoftFLARESConfig(rng *rand.Rand) SoftFLARESConfig {
	return SoftFLARESConfig{
		Epsilon:   0.001,
		Depth:     20,
		Label:     LabelLinear,
		Distance:  DistanceStepCount,
		Horizon:   HorizonFixed,
		MaxTrials: 1_000_000,
		MaxDepth:  1000,
		Rng:       rng,
	}
}

// effectiveDepth draws this trial's labeling horizon.
func (cfg SoftFLARESConfig) effectiveDepth() int {
	switch cfg.Horizon {
	case HorizonExponential:
		d := int(cfg.Rng.ExpFloat64() * float64(cfg.Depth))
		if d < 1 {
			d = 1
		}
		return d
	case HorizonBernoulli:
		if cfg.Rng.Float64() < 0.5 {
			return 2 * cfg.Depth
		}
		return cfg.Depth
	default:
		return cfg.Depth
	}
}

// labelProbability is the monotone solved-declaration probability at
// distance d under effective depth t. Every function is 1 at d = 0 and
// non-increasing in d; Linear reaches 0 at 2t, Step at t.
func (cfg SoftFLARESConfig) labelProbability(d float64, t int) float64 {
	ft := float64(t)
	switch cfg.Label {
	case LabelLinear:
		p := 1 - d/(2*ft)
		if p < 0 {
			return 0
		}
		return p
	case LabelExponential:
		return math.Exp(-math.Ln2 * d / ft)
	case LabelLogistic:
		return 1 / (1 + math.Exp((d-ft)*4/ft))
	default: // LabelStep
		if d <= ft {
			return 1
		}
		return 0
	}
}

// SoftFLARESResult reports how Soft-FLARES terminated.
type SoftFLARESResult struct {
	Trials int
	Solved bool
}

// SoftFLARES runs FLARES-style greedy trials but replaces the hard
// depth-threshold labeling with a probabilistic one: after a labeling DFS
// in which every residual converged, each visited node is declared
// SolvedFlares with probability cfg.Label(distance) under this trial's
// effective depth (drawn from cfg.Horizon). When the DFS covered the
// entire greedy envelope without any horizon or probability pruning, the
// label is upgraded to full Solved, so on small problems SoftFLARES
// degenerates gracefully into LRTDP.
func SoftFLARES(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, cfg SoftFLARESConfig) SoftFLARESResult {
	result := SoftFLARESResult{}

	for trial := 0; cfg.MaxTrials == 0 || trial < cfg.MaxTrials; trial++ {
		if isEffectivelySolved(root, cfg.Depth) {
			result.Solved = true
			return result
		}
		result.Trials++
		teff := cfg.effectiveDepth()
		runSoftFlaresTrial(problem, reg, root, cfg)
		checkSolvedSoft(problem, reg, root, cfg, teff)
	}

	result.Solved = isEffectivelySolved(root, cfg.Depth)
	return result
}

// runSoftFlaresTrial walks one greedy trajectory, stopping at goals, dead
// ends, and any node already carrying a soft or hard solved label.
func runSoftFlaresTrial(problem mdp.Problem, reg *registry.StateRegistry, node *registry.Node, cfg SoftFLARESConfig) {
	cur := node
	for depth := 0; cfg.MaxDepth == 0 || depth < cfg.MaxDepth; depth++ {
		if problem.Goal(cur.State) || cur.Labels.Test(registry.DeadEnd) ||
			cur.Labels.Test(registry.Solved) || cur.Labels.Test(registry.SolvedFlares) {
			return
		}
		bellman.BellmanUpdate(problem, reg, cur)
		if cur.BestAction == nil {
			return
		}
		next := bellman.RandomSuccessor(problem, cur.State, cur.BestAction, cfg.Rng)
		cur = reg.Intern(next)
	}
}

// softFrame carries everything the three distance metrics need: transition
// count, cumulative trajectory probability, and how many non-most-likely
// outcomes the path took.
type softFrame struct {
	node  *registry.Node
	depth int
	prob  float64
	plaus int
}

func (cfg SoftFLARESConfig) distance(f softFrame) float64 {
	switch cfg.Distance {
	case DistanceTrajProb:
		return -math.Log2(f.prob)
	case DistancePlausibility:
		return float64(f.plaus)
	default:
		return float64(f.depth)
	}
}

// checkSolvedSoft is checkSolved generalized along both FLARES axes at
// once: expansion stops where the label probability has decayed to zero
// (distance > 2*teff, or past teff under a Step label) or where the
// branch's reach probability fell under cfg.MinProbability; labeling is
// then a coin flip per node against cfg.Label's value at that node's
// smallest observed distance.
func checkSolvedSoft(problem mdp.Problem, reg *registry.StateRegistry, s *registry.Node, cfg SoftFLARESConfig, teff int) bool {
	rv := true
	pruned := false
	order := []*registry.Node{}
	minDist := map[*registry.Node]float64{}

	cutoff := 2 * float64(teff)
	if cfg.Label == LabelStep {
		cutoff = float64(teff)
	}

	stack := []softFrame{{s, 0, 1.0, 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := top.node
		d := cfg.distance(top)

		if prev, ok := minDist[node]; ok && prev <= d {
			continue
		}
		if _, ok := minDist[node]; !ok {
			order = append(order, node)
		}
		minDist[node] = d

		if problem.Goal(node.State) || node.Labels.Test(registry.DeadEnd) {
			continue
		}

		bellman.BellmanUpdate(problem, reg, node)
		if residualAbove(node, cfg.Epsilon) {
			rv = false
		}
		if node.BestAction == nil {
			continue
		}
		if d >= cutoff {
			pruned = true
			continue
		}

		succs := problem.Transition(node.State, node.BestAction)
		likeliest := 0.0
		for _, succ := range succs {
			if succ.Probability > likeliest {
				likeliest = succ.Probability
			}
		}
		for _, succ := range succs {
			nextProb := top.prob * succ.Probability
			if cfg.MinProbability > 0 && nextProb < cfg.MinProbability {
				pruned = true
				continue
			}
			child := reg.Intern(succ.State)
			if child.Labels.Test(registry.Solved) {
				continue
			}
			plaus := top.plaus
			if succ.Probability < likeliest {
				plaus++
			}
			stack = append(stack, softFrame{child, top.depth + 1, nextProb, plaus})
		}
	}

	if rv {
		for _, node := range order {
			if !pruned {
				node.Labels.Set(registry.Solved)
				continue
			}
			if cfg.Rng.Float64() < cfg.labelProbability(minDist[node], teff) {
				node.Labels.Set(registry.SolvedFlares)
				remaining := teff - int(minDist[node])
				if remaining > node.FlaresDepth {
					node.FlaresDepth = remaining
				}
			}
		}
	} else {
		for i := len(order) - 1; i >= 0; i-- {
			node := order[i]
			if !problem.Goal(node.State) && !node.Labels.Test(registry.DeadEnd) {
				bellman.BellmanUpdate(problem, reg, node)
			}
		}
	}
	return rv
}
