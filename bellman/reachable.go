package bellman

import (
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
)

// reachFrontier pairs a node with the number of transitions taken to reach
// it from root, used only to bound the BFS below.
type reachFrontier struct {
	node  *registry.Node
	depth int
}

// Reachable performs a breadth-first search from root following each
// state's best_action (falling back to every applicable action when
// best_action is unset) up to horizon transitions.
// It returns the full visited set and the subset of "tip" states: those at
// the horizon boundary, goals, or already labeled Solved.
//
// An explicit worklist is used instead of recursion so horizon does not
// bound call-stack depth on large reachable sets.
func Reachable(
	problem mdp.Problem,
	reg *registry.StateRegistry,
	root *registry.Node,
	horizon int,
) (visited []*registry.Node, tips []*registry.Node) {
	seen := map[*registry.Node]bool{root: true}
	visited = []*registry.Node{root}

	queue := []reachFrontier{{node: root, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if problem.Goal(cur.node.State) {
			tips = append(tips, cur.node)
			continue
		}
		if cur.node.Labels.Test(registry.Solved) {
			tips = append(tips, cur.node)
			continue
		}
		if cur.depth >= horizon {
			tips = append(tips, cur.node)
			continue
		}

		actionsToExpand := bestOrAllActions(problem, cur.node)
		for _, a := range actionsToExpand {
			for _, succ := range problem.Transition(cur.node.State, a) {
				child := reg.Intern(succ.State)
				if seen[child] {
					continue
				}
				seen[child] = true
				visited = append(visited, child)
				queue = append(queue, reachFrontier{node: child, depth: cur.depth + 1})
			}
		}
	}

	return visited, tips
}

// bestOrAllActions returns just the greedy action wrapped in a slice if one
// is set, otherwise every applicable action -- the "best_action-or-all"
// expansion rule Reachable uses.
func bestOrAllActions(problem mdp.Problem, node *registry.Node) []mdp.Action {
	if node.BestAction != nil {
		return []mdp.Action{node.BestAction}
	}

	var applicable []mdp.Action
	for _, a := range problem.Actions() {
		if problem.Applicable(node.State, a) {
			applicable = append(applicable, a)
		}
	}
	return applicable
}
