package attr

import (
	"github.com/weih201/scoobi/pkg/graph"
)

// Attributes is the attribute grammar of spec.md §3/§4.2: a set of named,
// memoised functions over the node graph reachable from a fixed set of
// roots. It is built once per planner run and handed to the optimiser and
// the MSCR builder, which both need the same parent/reachability facts
// repeatedly as they rewrite and partition the graph.
type Attributes struct {
	table   *Table
	roots   []graph.Node
	parents map[graph.ID][]graph.Node
}

// New builds an Attributes over every node reachable from roots, computing
// the parent index once up front via a single graph.Walk.
func New(roots []graph.Node) *Attributes {
	parents := make(map[graph.ID][]graph.Node)
	graph.Walk(roots, func(n graph.Node) {
		for _, in := range graph.Inputs(n) {
			parents[in.ID()] = append(parents[in.ID()], n)
		}
	})
	return &Attributes{
		table:   NewTable(),
		roots:   roots,
		parents: parents,
	}
}

// Parents returns every node that directly uses n as an input, in the
// fixed set of roots this Attributes was built from.
func (a *Attributes) Parents(n graph.Node) []graph.Node {
	return a.table.Memo("parents", n, func() any {
		return append([]graph.Node(nil), a.parents[n.ID()]...)
	}).([]graph.Node)
}

// AllUses is an alias for Parents: every direct use-site of n, named
// separately because spec.md §3 distinguishes "all uses" from "uses as an
// environment" even though both are computed from the same parent index.
func (a *Attributes) AllUses(n graph.Node) []graph.Node {
	return a.Parents(n)
}

// UsesAsEnvironment returns the subset of n's direct uses where n is the
// environment argument of a ParallelDo, telling environment-sharing from
// input-sharing; the executor uses it to log environment pushes.
func (a *Attributes) UsesAsEnvironment(n graph.Node) []graph.Node {
	return a.table.Memo("usesAsEnvironment", n, func() any {
		var uses []graph.Node
		for _, p := range a.Parents(n) {
			pdo, ok := p.(*graph.ParallelDoNode)
			if !ok || pdo.Env == nil {
				continue
			}
			if pdo.Env.ID() == n.ID() {
				uses = append(uses, p)
			}
		}
		return uses
	}).([]graph.Node)
}

// ReachableInputs returns every node that n transitively depends on
// (n's ancestors), excluding n itself.
func (a *Attributes) ReachableInputs(n graph.Node) []graph.Node {
	return a.table.Memo("reachableInputs", n, func() any {
		var ancestors []graph.Node
		graph.Walk(graph.Inputs(n), func(m graph.Node) {
			ancestors = append(ancestors, m)
		})
		return ancestors
	}).([]graph.Node)
}

// ReachableOutputs returns every node in the root set that transitively
// depends on n (n's descendants), excluding n itself, found by a
// breadth-first walk over the parent index built at construction time.
func (a *Attributes) ReachableOutputs(n graph.Node) []graph.Node {
	return a.table.Memo("reachableOutputs", n, func() any {
		seen := make(map[graph.ID]bool)
		var out []graph.Node
		queue := append([]graph.Node(nil), a.parents[n.ID()]...)
		for len(queue) > 0 {
			m := queue[0]
			queue = queue[1:]
			if seen[m.ID()] {
				continue
			}
			seen[m.ID()] = true
			out = append(out, m)
			queue = append(queue, a.parents[m.ID()]...)
		}
		return out
	}).([]graph.Node)
}

// IsProcessNode reports whether n is one of the four process-node variants
// (ParallelDo, GroupByKey, Combine, Flatten). Trivial, but exposed here
// alongside the other attributes so callers that walk via Attributes never
// need to import pkg/graph's IsProcessNode directly.
func (a *Attributes) IsProcessNode(n graph.Node) bool {
	return graph.IsProcessNode(n)
}

// Bridge lookup for a node's materialised output belongs to job.Adapter,
// which tracks it by node id against the bridge it actually registered
// (job.Adapter.ResultBridge) — this package has no bridge-keyed attribute
// of its own to avoid keeping two divergent copies of the same mapping.
