package dp

import (
	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// LAOStarConfig bounds an LAO* run. Weight is the weighted-Bellman-update
// tradeoff of the weighted LAO* variant: Weight=1 is ordinary
// LAO*, Weight<1 mixes the heuristic into every sweep's updates, biasing
// the envelope's values toward it.
type LAOStarConfig struct {
	Epsilon   float64
	MaxSweeps int
	Weight    float64
}

// DefaultLAOStarConfig mirrors DefaultValueIterationConfig with Weight=1
// (unweighted LAO*).
func DefaultLAOStarConfig() LAOStarConfig {
	return LAOStarConfig{Epsilon: 0.001, MaxSweeps: 1000, Weight: 1.0}
}

// LAOStarResult reports the final envelope size and convergence state.
type LAOStarResult struct {
	EnvelopeSize int
	Sweeps       int
	Converged    bool
}

// LAOStar builds its envelope with one bellman.Reachable call from root,
// following each node's best action where one is set and every applicable
// action where none is (so on a fresh registry the envelope is every state
// reachable from root), then sweeps weighted Bellman updates over that
// envelope until the max residual is below cfg.Epsilon or cfg.MaxSweeps
// sweeps have run, and labels the envelope Solved if it converged. The
// envelope is not grown leaf by leaf from the best partial policy: with the
// unbounded envelopeHorizon every tip is a goal or an already-Solved node,
// so the expansion adds no new states and the loop ends after one pass.
func LAOStar(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, cfg LAOStarConfig) LAOStarResult {
	result := LAOStarResult{}

	for {
		// Step 1: collect the envelope along the current greedy policy.
		// envelopeHorizon is effectively unbounded, so no tip is a horizon
		// cut-off.
		envelope, tips := bellman.Reachable(problem, reg, root, envelopeHorizon)
		newStates := 0
		for _, tip := range tips {
			if problem.Goal(tip.State) || tip.Labels.Test(registry.Solved) {
				continue
			}
			newStates++
			bellman.WeightedBellmanUpdate(problem, reg, tip, cfg.Weight)
		}

		// Step 2: converge values over the envelope (a restricted,
		// envelope-only value iteration sweep).
		converged := false
		for sweep := 0; cfg.MaxSweeps == 0 || sweep < cfg.MaxSweeps; sweep++ {
			maxResidual := 0.0
			for _, node := range envelope {
				if problem.Goal(node.State) {
					continue
				}
				bellman.WeightedBellmanUpdate(problem, reg, node, cfg.Weight)
				if node.Residual > maxResidual {
					maxResidual = node.Residual
				}
			}
			result.Sweeps++
			if maxResidual < cfg.Epsilon {
				converged = true
				break
			}
		}

		result.EnvelopeSize = len(envelope)
		if newStates == 0 && converged {
			result.Converged = true
			markEnvelopeSolved(envelope)
			return result
		}
		if newStates == 0 && !converged {
			// Values did not converge but the envelope is stable; report
			// what we have rather than loop forever re-expanding nothing.
			return result
		}
	}
}

// envelopeHorizon is effectively unbounded: LAO*'s envelope is the full set
// of states reachable under the greedy policy, not a depth-limited
// short-sighted slice (that restriction belongs to the solvers in
// solvers/shortsighted).
const envelopeHorizon = 1 << 30

func markEnvelopeSolved(envelope []*registry.Node) {
	for _, node := range envelope {
		node.Labels.Set(registry.Solved)
	}
}

// WeightedLAOStar runs LAOStar with an explicit weight below 1, biasing
// the envelope's values toward the heuristic. It is a
// thin alias kept distinct from LAOStar so callers and telemetry can
// distinguish the two algorithms by name even though they share one
// implementation.
func WeightedLAOStar(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node, weight float64) LAOStarResult {
	cfg := DefaultLAOStarConfig()
	cfg.Weight = weight
	return LAOStar(problem, reg, root, cfg)
}
