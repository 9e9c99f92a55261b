// Package metareasoning implements a metareasoning simulator: a harness
// that decides, at each real step, whether to act now using the
// planner's current (possibly unconverged) policy or to invest further
// planning (a "NOP") before acting, under seven candidate decision
// rules. Grounded directly on the original mdp-lib's
// MetareasoningSimulator.h. Every rule here requires Gamma < 1
// (discounted values), since an undiscounted SSP has no meaningful
// notion of "the value after t planning steps" converging to anything
// but the single optimum.
package metareasoning

import (
	"math"
	"math/rand"

	"github.com/mejrpete/mdp-lib/bellman"
	"github.com/mejrpete/mdp-lib/mdp"
)

// ActionSelectionRule is one of the seven metareasoning policies from the
// original mdp-lib's ActionSelectionRule enum.
type ActionSelectionRule int

const (
	// Assumption1 assumes the policy is fixed after one more action (real
	// or NOP) and compares Q(s, NOP) against Q(s, current-plan-action).
	Assumption1 ActionSelectionRule = iota
	// Assumption1MultipleNOPs generalizes Assumption1 to a run of several
	// NOPs chosen to minimize total cost before the policy stabilizes.
	Assumption1MultipleNOPs
	// Assumption2 compares Q(s, NOP) against Q(s, current) using the
	// fully-converged optimal value function rather than the
	// time-indexed intermediate estimate Assumption1 uses.
	Assumption2
	// ChangeAction takes NOP only if one more planning step would change
	// which action the planner recommends.
	ChangeAction
	// QValueImprovement compares the current plan's action against the
	// truly optimal action and only considers NOP when they disagree.
	QValueImprovement
	// NoMeta always acts immediately on the current plan's best action
	// (the baseline: no metareasoning at all).
	NoMeta
	// Optimal solves an explicit metareasoning MDP whose state is the
	// joint (real state, planning clock) pair and whose actions are "act
	// on the current plan" and "NOP": acting advances the clock by
	// NumPlanningStepsPerAction and transitions the real state under the
	// plan's recommendation, NOPing pays CostNOP and only advances the
	// clock. The MDP is solved exactly by backward induction over the
	// precomputed snapshots, bottoming out in the converged value
	// function once the clock can buy no further improvement.
	Optimal
)

// Config configures one Simulator run.
type Config struct {
	Problem                   mdp.Problem
	Gamma                     float64 // must be < 1
	Tolerance                 float64
	NumPlanningStepsPerAction int
	NumPlanningStepsPerNOP    int
	CostNOP                   float64
	TryAllActions             bool
	Rule                      ActionSelectionRule
	MaxPlanningSteps          int
}

// DefaultConfig mirrors the original mdp-lib's constructor defaults.
func DefaultConfig(problem mdp.Problem) Config {
	return Config{
		Problem:                   problem,
		Gamma:                     0.95,
		Tolerance:                 1e-6,
		NumPlanningStepsPerAction: 5,
		NumPlanningStepsPerNOP:    5,
		CostNOP:                   1.0,
		TryAllActions:             false,
		Rule:                      Assumption1,
		MaxPlanningSteps:          200,
	}
}

// planningSnapshot is the discounted-value-iteration state after a given
// number of synchronous sweeps: every visited state's current value and
// current greedy action (the time-indexed "intermediate policy" the
// original simulator calls EC[t] and stateValues_[t]).
type planningSnapshot struct {
	values  map[uint64]float64
	actions map[uint64]mdp.Action
}

// Simulator precomputes a sequence of planningSnapshots by running
// discounted value iteration sweep-by-sweep, then simulates a trajectory
// choosing between acting and NOPing at every real step according to
// Config.Rule.
type Simulator struct {
	cfg       Config
	snapshots []planningSnapshot
	states    []mdp.State

	// metaValues[t] is the optimal metareasoning value function at
	// planning time t, built lazily on first use of the Optimal rule.
	metaValues []map[uint64]float64
}

// New precomputes every planning snapshot up to cfg.MaxPlanningSteps (or
// until the residual across all states drops below cfg.Tolerance,
// whichever comes first), the Go analogue of
// precomputeAllExpectedPolicyCosts. Each snapshot's values double as the
// simulator's stand-in for the original's separately-tracked policyCosts_:
// since value iteration's running estimate already approximates the
// expected cost of its own implicit policy, and computing the original's
// exact by-policy expectation would require a second fixed-point solve per
// sweep, this Simulator uses the sweep's own value map for both roles
// (noted as an explicit simplification, not a literal translation).
func New(cfg Config) (*Simulator, error) {
	if cfg.Gamma >= 1.0 {
		panic("metareasoning: Gamma must be < 1")
	}

	states, err := mdp.GenerateAll(cfg.Problem, 0)
	if err != nil {
		return nil, err
	}

	values := make(map[uint64]float64, len(states))
	for _, s := range states {
		values[s.Hash()] = cfg.Problem.Heuristic(s)
	}

	sim := &Simulator{cfg: cfg, states: states}
	for t := 0; t < cfg.MaxPlanningSteps; t++ {
		nextValues := make(map[uint64]float64, len(states))
		actions := make(map[uint64]mdp.Action, len(states))
		maxResidual := 0.0

		for _, s := range states {
			if cfg.Problem.Goal(s) {
				nextValues[s.Hash()] = 0
				continue
			}
			best := math.Inf(1)
			var bestAction mdp.Action
			for _, a := range cfg.Problem.Actions() {
				if !cfg.Problem.Applicable(s, a) {
					continue
				}
				q := weightedQ(cfg.Problem, values, s, a, cfg.Gamma)
				if q < best {
					best = q
					bestAction = a
				}
			}
			if bestAction == nil {
				best = cfg.Problem.DeadEndCost()
			}
			residual := math.Abs(values[s.Hash()] - best)
			if residual > maxResidual {
				maxResidual = residual
			}
			nextValues[s.Hash()] = best
			actions[s.Hash()] = bestAction
		}

		values = nextValues
		snapshot := planningSnapshot{values: copyValues(values), actions: actions}
		sim.snapshots = append(sim.snapshots, snapshot)
		if maxResidual < cfg.Tolerance {
			break
		}
	}

	return sim, nil
}

func copyValues(m map[uint64]float64) map[uint64]float64 {
	cp := make(map[uint64]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func weightedQ(problem mdp.Problem, values map[uint64]float64, s mdp.State, a mdp.Action, gamma float64) float64 {
	q := problem.Cost(s, a)
	for _, succ := range problem.Transition(s, a) {
		q += gamma * succ.Probability * values[succ.State.Hash()]
	}
	return q
}

// optimalSnapshot returns the final (most-converged) snapshot, standing in
// for the original simulator's fully-converged V*.
func (sim *Simulator) optimalSnapshot() planningSnapshot {
	return sim.snapshots[len(sim.snapshots)-1]
}

// SimulateResult is what Simulate returns: total accumulated real cost and
// how much of it was spent on NOPs, exactly mirroring the original
// simulate()'s std::pair<double, double>.
type SimulateResult struct {
	TotalCost float64
	NOPCost   float64
	Steps     int
}

// Simulate runs one trajectory from start, repeatedly choosing between
// acting now (advancing the real state and the planning clock by
// NumPlanningStepsPerAction) or NOPing (leaving the real state unchanged,
// paying CostNOP, and advancing the planning clock by
// NumPlanningStepsPerNOP), per Config.Rule, until the real state satisfies
// Goal or the planning clock runs off the end of the precomputed
// snapshots.
func (sim *Simulator) Simulate(start mdp.State, sampleSuccessor func(mdp.State, mdp.Action) mdp.State) SimulateResult {
	result := SimulateResult{}
	cur := start
	t := 0

	for !sim.cfg.Problem.Goal(cur) && t < len(sim.snapshots) {
		action, isNOP, advance := sim.chooseAction(cur, t)
		if isNOP {
			result.TotalCost += sim.cfg.CostNOP
			result.NOPCost += sim.cfg.CostNOP
		} else if action != nil {
			result.TotalCost += sim.cfg.Problem.Cost(cur, action)
			cur = sampleSuccessor(cur, action)
		}
		t += advance
		result.Steps++
	}

	return result
}

// chooseAction applies Config.Rule at time t and returns the action to
// execute (nil if NOP), whether it chose NOP, and how many planning steps
// that choice consumes.
func (sim *Simulator) chooseAction(s mdp.State, t int) (mdp.Action, bool, int) {
	switch sim.cfg.Rule {
	case NoMeta:
		return sim.planAction(s, t), false, sim.cfg.NumPlanningStepsPerAction
	case Assumption1:
		return sim.assumption1(s, t)
	case Assumption1MultipleNOPs:
		return sim.assumption1MultipleNOPs(s, t)
	case Assumption2:
		return sim.assumption2(s, t)
	case ChangeAction:
		return sim.changeAction(s, t)
	case QValueImprovement:
		return sim.qValueImprovement(s, t)
	case Optimal:
		return sim.optimalMetareasoning(s, t)
	default:
		return sim.planAction(s, t), false, sim.cfg.NumPlanningStepsPerAction
	}
}

// planAction is getActionNoMetareasoning: the action the planner currently
// recommends at snapshot t (clamped to the last snapshot if t runs past
// the precomputed horizon).
func (sim *Simulator) planAction(s mdp.State, t int) mdp.Action {
	snap := sim.snapshotAt(t)
	return snap.actions[s.Hash()]
}

func (sim *Simulator) snapshotAt(t int) planningSnapshot {
	if t >= len(sim.snapshots) {
		return sim.optimalSnapshot()
	}
	return sim.snapshots[t]
}

// assumption1 implements getActionMetaAssumption1.
func (sim *Simulator) assumption1(s mdp.State, t int) (mdp.Action, bool, int) {
	dtNOP := sim.cfg.NumPlanningStepsPerNOP
	dtAction := sim.cfg.NumPlanningStepsPerAction

	current := sim.currentOrBestAction(s, t)
	qCurrent := sim.cfg.Problem.Cost(s, current) + expectedFutureValue(sim.cfg.Problem, sim.snapshotAt(t+dtAction), current, s)
	qNOP := sim.cfg.CostNOP + sim.snapshotAt(t + dtNOP).values[s.Hash()]

	if qNOP < qCurrent {
		return nil, true, dtNOP
	}
	return current, false, dtAction
}

// assumption1MultipleNOPs implements getActionMetaAssumption1MultipleNOPs:
// it searches for the smallest number of NOPs (up to a bound) that is
// either cheaper than taking the current action or leaves the policy
// unchanged from one more NOP to the next.
func (sim *Simulator) assumption1MultipleNOPs(s mdp.State, t int) (mdp.Action, bool, int) {
	current := sim.currentOrBestAction(s, t)
	qCurrent := sim.cfg.Problem.Cost(s, current) + expectedFutureValue(sim.cfg.Problem, sim.snapshotAt(t+sim.cfg.NumPlanningStepsPerAction), current, s)

	const maxNOPs = 20
	for n := 1; n <= maxNOPs; n++ {
		dt := n * sim.cfg.NumPlanningStepsPerNOP
		qNOPs := float64(n)*sim.cfg.CostNOP + sim.snapshotAt(t + dt).values[s.Hash()]
		if qNOPs < qCurrent {
			return nil, true, dt
		}
		prevAction := sim.snapshotAt(t + dt).actions[s.Hash()]
		nextAction := sim.snapshotAt(t + dt + sim.cfg.NumPlanningStepsPerNOP).actions[s.Hash()]
		if actionsEqual(prevAction, nextAction) {
			break
		}
	}
	return current, false, sim.cfg.NumPlanningStepsPerAction
}

// assumption2 implements getActionMetaAssumption2, using the fully
// converged final snapshot in place of a separately tracked V*.
func (sim *Simulator) assumption2(s mdp.State, t int) (mdp.Action, bool, int) {
	current := sim.currentOrBestAction(s, t)
	optimal := sim.optimalSnapshot()

	qCurrent := sim.cfg.Problem.Cost(s, current) + expectedFutureValue(sim.cfg.Problem, optimal, current, s)
	qNOP := sim.cfg.CostNOP + optimal.values[s.Hash()]

	if qNOP < qCurrent {
		return nil, true, sim.cfg.NumPlanningStepsPerNOP
	}
	return current, false, sim.cfg.NumPlanningStepsPerAction
}

// changeAction implements getActionMetaChangeBestAction.
func (sim *Simulator) changeAction(s mdp.State, t int) (mdp.Action, bool, int) {
	current := sim.planAction(s, t)
	future := sim.snapshotAt(t + sim.cfg.NumPlanningStepsPerNOP).actions[s.Hash()]
	if !actionsEqual(current, future) {
		return nil, true, sim.cfg.NumPlanningStepsPerNOP
	}
	return current, false, sim.cfg.NumPlanningStepsPerAction
}

// qValueImprovement implements getActionQValueImprovement.
func (sim *Simulator) qValueImprovement(s mdp.State, t int) (mdp.Action, bool, int) {
	optimal := sim.optimalSnapshot()
	current := sim.planAction(s, t)
	optimalAction := optimal.actions[s.Hash()]

	qCurrent := sim.cfg.Problem.Cost(s, current) + expectedFutureValue(sim.cfg.Problem, optimal, current, s)
	qOptimal := sim.cfg.Problem.Cost(s, optimalAction) + expectedFutureValue(sim.cfg.Problem, optimal, optimalAction, s)

	if math.Abs(qCurrent-qOptimal) < 1e-9 {
		return current, false, sim.cfg.NumPlanningStepsPerAction
	}

	qNOP := sim.cfg.CostNOP + qOptimal
	if qNOP < qCurrent {
		return nil, true, sim.cfg.NumPlanningStepsPerNOP
	}
	return current, false, sim.cfg.NumPlanningStepsPerAction
}

// planningSteps returns the clock advances for acting and NOPing, clamped
// to at least one snapshot each so the metareasoning MDP's planning clock
// always moves forward.
func (sim *Simulator) planningSteps() (dtAction, dtNOP int) {
	dtAction, dtNOP = sim.cfg.NumPlanningStepsPerAction, sim.cfg.NumPlanningStepsPerNOP
	if dtAction < 1 {
		dtAction = 1
	}
	if dtNOP < 1 {
		dtNOP = 1
	}
	return dtAction, dtNOP
}

// ensureMetaValues solves the metareasoning MDP by backward induction: for
// every planning time t (latest first) and every state, the value is the
// cheaper of NOPing (CostNOP plus the same state one NOP later) and acting
// on the plan's time-t recommendation (its cost plus the expected
// metareasoning value of the successors one action-advance later). Past
// the final snapshot no further planning improvement is possible, so the
// converged value function is the base case and NOP is never chosen there.
func (sim *Simulator) ensureMetaValues() {
	if sim.metaValues != nil {
		return
	}
	dtAction, dtNOP := sim.planningSteps()
	horizon := len(sim.snapshots)

	sim.metaValues = make([]map[uint64]float64, horizon)
	sim.metaValues[horizon-1] = sim.optimalSnapshot().values

	for t := horizon - 2; t >= 0; t-- {
		values := make(map[uint64]float64, len(sim.states))
		for _, s := range sim.states {
			if sim.cfg.Problem.Goal(s) {
				values[s.Hash()] = 0
				continue
			}
			_, qAct := sim.metaQAction(s, t, dtAction)
			qNOP := sim.cfg.CostNOP + sim.metaValueAt(s, t+dtNOP)
			values[s.Hash()] = math.Min(qAct, qNOP)
		}
		sim.metaValues[t] = values
	}
}

// metaValueAt reads the solved metareasoning value function, clamping the
// clock to the converged base case.
func (sim *Simulator) metaValueAt(s mdp.State, t int) float64 {
	if t >= len(sim.metaValues)-1 {
		return sim.optimalSnapshot().values[s.Hash()]
	}
	return sim.metaValues[t][s.Hash()]
}

// metaQAction is the acting branch at planning time t: the plan's current
// recommendation (or, under TryAllActions, the applicable action
// minimizing this same expression), costed against the metareasoning
// values one action-advance later. Returns the chosen action and its
// Q-value; a nil action with DeadEndCost when nothing is applicable.
func (sim *Simulator) metaQAction(s mdp.State, t, dtAction int) (mdp.Action, float64) {
	qFor := func(a mdp.Action) float64 {
		q := sim.cfg.Problem.Cost(s, a)
		for _, succ := range sim.cfg.Problem.Transition(s, a) {
			q += succ.Probability * sim.metaValueAt(succ.State, t+dtAction)
		}
		return q
	}

	if sim.cfg.TryAllActions {
		var best mdp.Action
		bestQ := math.Inf(1)
		for _, a := range sim.cfg.Problem.Actions() {
			if !sim.cfg.Problem.Applicable(s, a) {
				continue
			}
			if q := qFor(a); q < bestQ {
				bestQ = q
				best = a
			}
		}
		if best == nil {
			return nil, sim.cfg.Problem.DeadEndCost()
		}
		return best, bestQ
	}

	action := sim.planAction(s, t)
	if action == nil {
		return nil, sim.cfg.Problem.DeadEndCost()
	}
	return action, qFor(action)
}

// optimalMetareasoning implements getActionOptimalMetareasoning against
// the solved metareasoning MDP: NOP exactly when the NOP branch is
// strictly cheaper at the current (state, clock) pair.
func (sim *Simulator) optimalMetareasoning(s mdp.State, t int) (mdp.Action, bool, int) {
	sim.ensureMetaValues()
	dtAction, dtNOP := sim.planningSteps()

	if t >= len(sim.snapshots)-1 {
		return sim.planAction(s, t), false, dtAction
	}

	action, qAct := sim.metaQAction(s, t, dtAction)
	if action == nil {
		return nil, false, dtAction
	}
	qNOP := sim.cfg.CostNOP + sim.metaValueAt(s, t+dtNOP)
	if qNOP < qAct {
		return nil, true, dtNOP
	}
	return action, false, dtAction
}

// currentOrBestAction returns the action the current plan recommends, or
// (if Config.TryAllActions) the single applicable action with the lowest
// Q-value under the snapshot at t+NumPlanningStepsPerAction.
func (sim *Simulator) currentOrBestAction(s mdp.State, t int) mdp.Action {
	if !sim.cfg.TryAllActions {
		return sim.planAction(s, t)
	}

	snap := sim.snapshotAt(t + sim.cfg.NumPlanningStepsPerAction)
	var best mdp.Action
	bestQ := math.Inf(1)
	for _, a := range sim.cfg.Problem.Actions() {
		if !sim.cfg.Problem.Applicable(s, a) {
			continue
		}
		q := sim.cfg.Problem.Cost(s, a) + expectedFutureValue(sim.cfg.Problem, snap, a, s)
		if q < bestQ {
			bestQ = q
			best = a
		}
	}
	return best
}

func expectedFutureValue(problem mdp.Problem, snap planningSnapshot, a mdp.Action, s mdp.State) float64 {
	var v float64
	for _, succ := range problem.Transition(s, a) {
		v += succ.Probability * snap.values[succ.State.Hash()]
	}
	return v
}

func actionsEqual(a, b mdp.Action) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

// SampleRealSuccessor is a convenience sampleSuccessor implementation for
// Simulate, drawing from the real (undiscounted) problem's true
// transition distribution via bellman.RandomSuccessor.
func SampleRealSuccessor(problem mdp.Problem, rng *rand.Rand) func(mdp.State, mdp.Action) mdp.State {
	return func(s mdp.State, a mdp.Action) mdp.State {
		return bellman.RandomSuccessor(problem, s, a, rng)
	}
}
