// Package optimizer rewrites a Scoobi computation graph to fixpoint under a
// fixed set of rules, following the same Rule/Engine split the teacher's
// dbsp rewrite engine used for its LinearChainRule passes: each Rule only
// answers "does this apply here" and "what does applying it produce", and
// a single Engine owns the fixpoint loop, so adding a rule never touches
// the loop itself.
package optimizer

import (
	"github.com/weih201/scoobi/pkg/graph"
)

// Substitute rewrites every node reachable from roots, replacing any node
// whose id appears in replacements with its mapped value and reconstructing
// every ancestor whose inputs changed as a result. Nodes untouched by the
// substitution, directly or transitively, are returned unchanged (same
// pointer), preserving sharing.
func Substitute(roots []graph.Node, replacements map[graph.ID]graph.Node) []graph.Node {
	memo := make(map[graph.ID]graph.Node)
	out := make([]graph.Node, len(roots))
	for i, r := range roots {
		out[i] = rewriteNode(r, replacements, memo)
	}
	return out
}

func rewriteNode(n graph.Node, replacements map[graph.ID]graph.Node, memo map[graph.ID]graph.Node) graph.Node {
	if r, ok := memo[n.ID()]; ok {
		return r
	}
	if r, ok := replacements[n.ID()]; ok {
		// A replacement may itself reference nodes that need rewriting
		// (e.g. a fusion rule producing a new ParallelDo over an
		// already-rewritten input), so recurse into it too, but guard
		// against mapping it back to itself.
		if r.ID() != n.ID() {
			r = rewriteNode(r, replacements, memo)
		}
		memo[n.ID()] = r
		return r
	}

	var result graph.Node
	switch x := n.(type) {
	case *graph.LoadNode:
		result = x

	case *graph.ParallelDoNode:
		in := rewriteNode(x.In, replacements, memo)
		var env graph.Node
		if x.Env != nil {
			env = rewriteNode(x.Env, replacements, memo)
		}
		if in == x.In && env == x.Env {
			result = x
		} else {
			nn, err := graph.NewParallelDo(in, env, x.Fn, x.Serde(), x.Label(),
				graph.WithGroupBarrier(x.GroupBarrier), graph.WithFuseBarrier(x.FuseBarrier))
			if err != nil {
				panic("optimizer: rewritten ParallelDo violates shape invariants: " + err.Error())
			}
			result = nn
		}

	case *graph.GroupByKeyNode:
		in := rewriteNode(x.In, replacements, memo)
		if in == x.In {
			result = x
		} else {
			nn, err := graph.NewGroupByKey(in, x.Serde(), x.Label())
			if err != nil {
				panic("optimizer: rewritten GroupByKey violates shape invariants: " + err.Error())
			}
			result = nn
		}

	case *graph.CombineNode:
		in := rewriteNode(x.In, replacements, memo)
		if in == x.In {
			result = x
		} else {
			nn, err := graph.NewCombine(in, x.Op, x.Serde(), x.Label())
			if err != nil {
				panic("optimizer: rewritten Combine violates shape invariants: " + err.Error())
			}
			result = nn
		}

	case *graph.FlattenNode:
		ins := make([]graph.Node, len(x.Ins))
		changed := false
		for i, in := range x.Ins {
			ins[i] = rewriteNode(in, replacements, memo)
			if ins[i] != in {
				changed = true
			}
		}
		if !changed {
			result = x
		} else {
			nn, err := graph.NewFlatten(ins, x.Serde(), x.Label())
			if err != nil {
				panic("optimizer: rewritten Flatten violates shape invariants: " + err.Error())
			}
			result = nn
		}

	case *graph.ReturnNode:
		result = x

	case *graph.OpNode:
		e1 := rewriteNode(x.E1, replacements, memo)
		e2 := rewriteNode(x.E2, replacements, memo)
		if e1 == x.E1 && e2 == x.E2 {
			result = x
		} else {
			nn, err := graph.NewOp(e1, e2, x.Fn, x.Serde(), x.Label())
			if err != nil {
				panic("optimizer: rewritten Op violates shape invariants: " + err.Error())
			}
			result = nn
		}

	case *graph.MaterialiseNode:
		in := rewriteNode(x.In, replacements, memo)
		if in == x.In {
			result = x
		} else {
			nn, err := graph.NewMaterialise(in, x.Serde(), x.Label())
			if err != nil {
				panic("optimizer: rewritten Materialise violates shape invariants: " + err.Error())
			}
			result = nn
		}

	default:
		panic("optimizer: unhandled node variant")
	}

	memo[n.ID()] = result
	return result
}
