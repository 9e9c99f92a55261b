package reduction

import (
	"math/rand"

	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// mklState augments a base domain state with how many exceptional
// (non-primary) outcomes a trajectory has already passed through, the
// state space the original mdp-lib's ReducedModel(base, reduction, k)
// plans over: (base-state, exceptions-used in {0..k}).
type mklState struct {
	Base           mdp.State
	ExceptionsUsed int
}

func (s mklState) Hash() uint64 {
	return s.Base.Hash()*1000003 + uint64(s.ExceptionsUsed)
}

func (s mklState) Equal(other mdp.State) bool {
	o, ok := other.(mklState)
	return ok && o.ExceptionsUsed == s.ExceptionsUsed && s.Base.Equal(o.Base)
}

// MklModel is the Mkl-reduced MDP itself: a solver planning against it sees
// only primary outcomes as long as the trajectory's exceptions-used count
// is below K; once the budget is spent, any remaining exceptional mass is
// collapsed into the primary outcomes' distribution (renormalized) so the
// model never hands back a dead transition. This differs from Model (in
// model.go), which always strips non-primary outcomes regardless of
// trajectory history -- MklModel is the version spec 4.7 describes as
// permitting "at most k exceptional outcomes along any trajectory" rather
// than forbidding them outright.
type MklModel struct {
	Base      mdp.Problem
	Reduction Reduction
	K         int
	start     mdp.State // root of the current planning episode; defaults to Base.InitialState()
}

// NewMklModel builds an Mkl reduction of base with exception budget k,
// rooted at base's own initial state.
func NewMklModel(base mdp.Problem, reduction Reduction, k int) *MklModel {
	return &MklModel{Base: base, Reduction: reduction, K: k}
}

// SetStart re-roots the model at s with a fresh exception budget, which
// ContinualPlan calls before every replanning episode so a solver's
// enumeration (mdp.GenerateAll, starting from InitialState) explores states
// reachable from the real current state rather than always from Base's
// original start.
func (m *MklModel) SetStart(s mdp.State) { m.start = s }

func (m *MklModel) InitialState() mdp.State {
	if m.start != nil {
		return mklState{Base: m.start, ExceptionsUsed: 0}
	}
	return mklState{Base: m.Base.InitialState(), ExceptionsUsed: 0}
}

func (m *MklModel) Actions() []mdp.Action { return m.Base.Actions() }

func (m *MklModel) Applicable(s mdp.State, a mdp.Action) bool {
	return m.Base.Applicable(s.(mklState).Base, a)
}

func (m *MklModel) Goal(s mdp.State) bool { return m.Base.Goal(s.(mklState).Base) }

func (m *MklModel) Heuristic(s mdp.State) float64 { return m.Base.Heuristic(s.(mklState).Base) }

func (m *MklModel) Cost(s mdp.State, a mdp.Action) float64 {
	return m.Base.Cost(s.(mklState).Base, a)
}

func (m *MklModel) DeadEndCost() float64 { return m.Base.DeadEndCost() }

// Transition implements the budgeted reduction: below the exception
// budget, every base outcome remains reachable, with non-primary ones
// incrementing ExceptionsUsed; once the budget is exhausted, only primary
// outcomes remain, renormalized, so the state stops growing its exception
// count and the remaining sub-trajectory is planned exactly as Model would
// plan it.
func (m *MklModel) Transition(s mdp.State, a mdp.Action) []mdp.Successor {
	ms := s.(mklState)
	full := m.Base.Transition(ms.Base, a)
	primary := m.Reduction.PrimaryOutcomes(m.Base, ms.Base, a)
	isPrimary := make(map[int]bool, len(primary))
	for _, idx := range primary {
		isPrimary[idx] = true
	}

	if ms.ExceptionsUsed >= m.K {
		var total float64
		out := make([]mdp.Successor, 0, len(primary))
		for idx, succ := range full {
			if !isPrimary[idx] {
				continue
			}
			out = append(out, mdp.Successor{
				State:       mklState{Base: succ.State, ExceptionsUsed: ms.ExceptionsUsed},
				Probability: succ.Probability,
			})
			total += succ.Probability
		}
		if total <= 0 {
			// No primary outcome survives the reduction at all: fall back
			// to the unreduced distribution rather than leave this
			// (state, action) with no successors.
			out = out[:0]
			for _, succ := range full {
				out = append(out, mdp.Successor{
					State:       mklState{Base: succ.State, ExceptionsUsed: ms.ExceptionsUsed},
					Probability: succ.Probability,
				})
			}
			return out
		}
		for i := range out {
			out[i].Probability /= total
		}
		return out
	}

	out := make([]mdp.Successor, 0, len(full))
	for idx, succ := range full {
		used := ms.ExceptionsUsed
		if !isPrimary[idx] {
			used++
		}
		out = append(out, mdp.Successor{
			State:       mklState{Base: succ.State, ExceptionsUsed: used},
			Probability: succ.Probability,
		})
	}
	return out
}

// Solve is the signature a caller passes to ContinualPlan to solve one
// reduced-model planning episode: it must intern root and leave
// root.BestAction set to the computed greedy action (as every solver in
// this repository already does).
type Solve func(problem mdp.Problem, reg *registry.StateRegistry, root *registry.Node) error

// ContinualPlanResult reports one continual-planning execution.
type ContinualPlanResult struct {
	Actions      []mdp.Action
	ExpectedCost float64
	ReachedGoal  bool
	Replans      int
}

// ContinualPlan implements the soundness argument for planning in a
// reduced model (spec 4.7): solve the Mkl reduction rooted at the current
// real state, then execute its greedy policy against the *real* base
// problem for as long as sampled outcomes stay within what the plan
// accounted for. Primary outcomes and exceptional ones within the
// exception budget follow the stored policy (those branches exist in the
// planned model, at a higher ExceptionsUsed count); an exceptional outcome
// past the budget -- or execution drifting onto a state the planning
// episode never reached -- triggers a replan from the current state with a
// fresh budget. Grounded on the original mdp-lib's continual-planning loop
// in testReduced.cpp, which this repository generalizes into a reusable
// driver rather than a one-off test harness.
func ContinualPlan(base mdp.Problem, reduction Reduction, k int, solve Solve, rng *rand.Rand, maxSteps int) (ContinualPlanResult, error) {
	result := ContinualPlanResult{}
	cur := base.InitialState()

	var reg *registry.StateRegistry
	exceptions := 0
	needPlan := true
	freshPlan := false

	for len(result.Actions) < maxSteps && !base.Goal(cur) {
		if needPlan {
			model := NewMklModel(base, reduction, k)
			model.SetStart(cur)
			reg = registry.New(model)
			root := reg.Intern(model.InitialState())

			if err := solve(model, reg, root); err != nil {
				return result, err
			}
			result.Replans++
			exceptions = 0
			needPlan = false
			freshPlan = true
		}

		node, ok := reg.Lookup(mklState{Base: cur, ExceptionsUsed: exceptions})
		if !ok || node.BestAction == nil {
			if freshPlan {
				// Even a plan rooted here has no action: dead end.
				return result, nil
			}
			needPlan = true
			continue
		}
		freshPlan = false
		action := node.BestAction

		full := base.Transition(cur, action)
		primary := reduction.PrimaryOutcomes(base, cur, action)
		isPrimary := make(map[int]bool, len(primary))
		for _, idx := range primary {
			isPrimary[idx] = true
		}

		outcomeIdx := sampleOutcomeIndex(full, rng)
		result.Actions = append(result.Actions, action)
		result.ExpectedCost += base.Cost(cur, action)
		cur = full[outcomeIdx].State

		if !isPrimary[outcomeIdx] {
			exceptions++
			if exceptions > k {
				needPlan = true
			}
		}
	}

	result.ReachedGoal = base.Goal(cur)
	return result, nil
}

// sampleOutcomeIndex draws an outcome index from successors using rng,
// returning the last index on floating-point slop, matching
// bellman.RandomSuccessor's tie-breaking.
func sampleOutcomeIndex(successors []mdp.Successor, rng *rand.Rand) int {
	r := rng.Float64()
	var cumulative float64
	for i, succ := range successors {
		cumulative += succ.Probability
		if r <= cumulative {
			return i
		}
	}
	return len(successors) - 1
}
