// Package dp implements the dynamic-programming solver family: ordinary
// Value Iteration and the LAO*/weighted-LAO*/lexicographic-LAO* envelope
// search algorithms. All three share the same registry/bellman kernel
// and differ only in which states they update and in what order.
package dp

import (
	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// ValueIterationConfig bounds a Value Iteration run.
type ValueIterationConfig struct {
	Epsilon   float64 // residual convergence threshold
	MaxSweeps int     // 0 means unbounded
	// OnSweep, if set, is called after every sweep with the sweep index
	// (1-based), the sweep's max residual, and the root node, letting a
	// caller stream progress (e.g. to telemetry.Reporter) without this
	// package depending on anything beyond the registry it already uses.
	OnSweep func(sweep int, maxResidual float64, root *registry.Node)
	// Root, if set, is reported to OnSweep every sweep. Optional: solvers
	// that don't care about progress reporting can leave it nil.
	Root *registry.Node
}

// DefaultValueIterationConfig matches the original mdp-lib's VISolver
// defaults (1000 sweeps, 0.001 residual).
func DefaultValueIterationConfig() ValueIterationConfig {
	return ValueIterationConfig{Epsilon: 0.001, MaxSweeps: 1000}
}

// ValueIterationResult reports how a run terminated.
type ValueIterationResult struct {
	Sweeps      int
	Converged   bool
	MaxResidual float64
}

// ValueIteration performs synchronous sweeps over every state reachable
// from problem's initial state (enumerated once via mdp.GenerateAll),
// applying bellman.BellmanUpdate to each until the largest residual in a
// sweep drops below cfg.Epsilon or cfg.MaxSweeps is reached.
func ValueIteration(problem mdp.Problem, reg *registry.StateRegistry, cfg ValueIterationConfig) (ValueIterationResult, error) {
	states, err := mdp.GenerateAll(problem, 0)
	if err != nil {
		return ValueIterationResult{}, err
	}

	nodes := make([]*registry.Node, len(states))
	for i, s := range states {
		nodes[i] = reg.Intern(s)
	}

	result := ValueIterationResult{}
	for sweep := 0; cfg.MaxSweeps == 0 || sweep < cfg.MaxSweeps; sweep++ {
		maxResidual := 0.0
		for _, node := range nodes {
			bellman.BellmanUpdate(problem, reg, node)
			if node.Residual > maxResidual {
				maxResidual = node.Residual
			}
		}
		result.Sweeps++
		result.MaxResidual = maxResidual
		if cfg.OnSweep != nil {
			cfg.OnSweep(result.Sweeps, maxResidual, cfg.Root)
		}
		if maxResidual < cfg.Epsilon {
			result.Converged = true
			break
		}
	}
	return result, nil
}
