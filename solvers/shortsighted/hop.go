package shortsighted

import (
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/dp"
)

// HOPConfig bounds a Hindsight Optimization run (Yoon, Fern & Givan 2008).
type HOPConfig struct {
	NumSamples int
	Horizon    int
	Rng        *rand.Rand
}

// DefaultHOPConfig samples 100 determinizations, each looking 30 steps
// ahead.
func DefaultHOPConfig(rng *rand.Rand) HOPConfig {
	return HOPConfig{NumSamples: 100, Horizon: 30, Rng: rng}
}

// determinizedProblem replays problem's Transition outcome chosen in
// advance for each (state, action) pair it is asked about, so that solving
// it with ordinary Value Iteration is equivalent to planning against one
// sampled future of all the nondeterminism in the original problem. This is
// the sampled single-outcome determinization HOP repeatedly draws and solves.
type determinizedProblem struct {
	mdp.Problem
	root   mdp.State
	rng    *rand.Rand
	chosen map[uint64]mdp.State
}

func newDeterminization(problem mdp.Problem, root mdp.State, rng *rand.Rand) *determinizedProblem {
	return &determinizedProblem{Problem: problem, root: root, rng: rng, chosen: map[uint64]mdp.State{}}
}

// InitialState overrides the wrapped problem's so Value Iteration (which
// enumerates reachable states from InitialState via mdp.GenerateAll) starts
// its search from the state HOP was actually asked to plan from, not from
// the underlying problem's global start state.
func (d *determinizedProblem) InitialState() mdp.State { return d.root }

func (d *determinizedProblem) key(s mdp.State, a mdp.Action) uint64 {
	return s.Hash()*1000003 + a.Hash()
}

func (d *determinizedProblem) Transition(s mdp.State, a mdp.Action) []mdp.Successor {
	k := d.key(s, a)
	if chosen, ok := d.chosen[k]; ok {
		return []mdp.Successor{{State: chosen, Probability: 1.0}}
	}
	outcome := bellman.RandomSuccessor(d.Problem, s, a, d.rng)
	d.chosen[k] = outcome
	return []mdp.Successor{{State: outcome, Probability: 1.0}}
}

// HOP picks the next action at root by sampling cfg.NumSamples future
// determinizations of problem in parallel (via golang.org/x/sync/errgroup,
// a direct requirement in go.mod, adopted here as its concurrent
// fan-out primitive), solving each exactly with Value Iteration, and
// averaging the resulting root Q-value of each action across samples --
// the action with the lowest average hindsight-optimal cost is returned.
// Each sample gets its own registry, so no goroutine ever shares registry
// state with another; only the final averaging step (single-goroutine,
// after errgroup.Wait returns) touches shared memory.
func HOP(problem mdp.Problem, root mdp.State, cfg HOPConfig) mdp.Action {
	type sampleResult struct {
		qByAction map[uint64]float64
	}
	results := make([]sampleResult, cfg.NumSamples)

	var g errgroup.Group
	for i := 0; i < cfg.NumSamples; i++ {
		i := i
		seed := cfg.Rng.Int63()
		g.Go(func() error {
			localRng := rand.New(rand.NewSource(seed))
			det := newDeterminization(problem, root, localRng)
			reg := registry.New(det)
			reg.Intern(root)

			if _, err := dp.ValueIteration(det, reg, dp.ValueIterationConfig{Epsilon: 0.01, MaxSweeps: cfg.Horizon}); err != nil {
				return err
			}

			qs := make(map[uint64]float64, len(problem.Actions()))
			for _, a := range problem.Actions() {
				if !problem.Applicable(root, a) {
					continue
				}
				qs[a.Hash()] = bellman.QValue(det, reg, root, a)
			}
			results[i] = sampleResult{qByAction: qs}
			return nil
		})
	}
	_ = g.Wait() // a failed determinization sample just contributes no votes

	totals := map[uint64]float64{}
	counts := map[uint64]int{}
	actionsByHash := map[uint64]mdp.Action{}
	for _, a := range problem.Actions() {
		if problem.Applicable(root, a) {
			actionsByHash[a.Hash()] = a
		}
	}

	for _, r := range results {
		for hash, q := range r.qByAction {
			totals[hash] += q
			counts[hash]++
		}
	}

	var best mdp.Action
	bestAvg := 0.0
	first := true
	for hash, total := range totals {
		if counts[hash] == 0 {
			continue
		}
		avg := total / float64(counts[hash])
		if first || avg < bestAvg {
			bestAvg = avg
			best = actionsByHash[hash]
			first = false
		}
	}
	return best
}
