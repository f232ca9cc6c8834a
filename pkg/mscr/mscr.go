// Package mscr builds MSCRs (Map-Shuffle-Combine-Reduce jobs) from an
// optimised computation graph and arranges them into the topologically
// ordered layers the executor runs one at a time (spec.md §4.4, §4.5).
package mscr

import (
	"fmt"

	"github.com/weih201/scoobi/internal/dag"
	"github.com/weih201/scoobi/pkg/attr"
	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/scoobierr"
)

// MSCR is a single MapReduce job: a mapper stage that feeds a shuffle
// (GroupByKey), an optional Combine over the shuffle's grouped output,
// and the set of nodes that consume its result. A GroupByKey-less MSCR is
// a map-only job, built for each process node no shuffle claimed (a
// ParallelDo or Flatten with no GroupByKey directly over it, or a Combine
// not fed by a GroupByKey).
type MSCR struct {
	// ID is a stable, human-readable identifier derived from the node
	// this MSCR is rooted at.
	ID string

	// Mapper is the node that performs this MSCR's map-side work: the
	// ParallelDo feeding GroupByKey (or the Flatten over several
	// ParallelDos that feeds it) when one is present, or the orphaned
	// process node itself for a map-only MSCR.
	Mapper graph.Node

	// GroupByKey is this MSCR's shuffle stage, nil for a map-only MSCR.
	GroupByKey *graph.GroupByKeyNode

	// Combine is the Combine consuming GroupByKey's grouped output, nil
	// if none is present.
	Combine *graph.CombineNode

	// Result is the node whose value this MSCR ultimately produces:
	// Combine if present, else GroupByKey, else Mapper.
	Result graph.Node

	// Outputs are the nodes that directly consume Result. Layering does
	// not read them; it derives dependencies from the Mapper's ancestors.
	Outputs []graph.Node
}

// Layer is one topologically-independent batch of MSCRs the executor can
// dispatch concurrently.
type Layer struct {
	MSCRs []*MSCR
}

// Build partitions an optimised graph into MSCRs and groups them into
// layers. roots must already satisfy the optimiser's invariants (every
// GroupByKey fed directly by a ParallelDo, every Combine fed directly by
// a GroupByKey). A GroupByKey fed by anything other than a ParallelDo or
// a Flatten of ParallelDos makes Build fail with an error matching
// scoobierr.ErrOptimiserInvariant.
func Build(roots []graph.Node) ([]Layer, error) {
	a := attr.New(roots)
	all := graph.All(roots)

	assigned := make(map[graph.ID]bool)
	var mscrs []*MSCR

	for _, n := range all {
		gbk, ok := n.(*graph.GroupByKeyNode)
		if !ok {
			continue
		}

		// spec.md §4.4: an MSCR's mapper is the maximal set of
		// ParallelDos whose outputs flow into the shuffle directly or
		// through a Flatten. mapper is kept as whichever single node
		// (a bare ParallelDo, or the Flatten sitting over several)
		// feeds gbk; mapperIDs is every ParallelDo actually doing map
		// work, marked assigned below.
		var mapper graph.Node
		var mapperIDs []graph.ID
		switch in := gbk.In.(type) {
		case *graph.ParallelDoNode:
			mapper = in
			mapperIDs = []graph.ID{in.ID()}
		case *graph.FlattenNode:
			if !allParallelDoBranches(in.Ins) {
				return nil, fmt.Errorf("mscr: GroupByKey %d is fed by a Flatten with a non-ParallelDo branch; graph was not optimised: %w", gbk.ID(), scoobierr.ErrOptimiserInvariant)
			}
			mapper = in
			mapperIDs = make([]graph.ID, len(in.Ins))
			for i, branch := range in.Ins {
				mapperIDs[i] = branch.ID()
			}
		default:
			return nil, fmt.Errorf("mscr: GroupByKey %d is not fed by a ParallelDo or a Flatten of ParallelDos; graph was not optimised: %w", gbk.ID(), scoobierr.ErrOptimiserInvariant)
		}

		var combine *graph.CombineNode
		for _, use := range a.AllUses(gbk) {
			if c, ok := use.(*graph.CombineNode); ok {
				combine = c
				break
			}
		}

		var result graph.Node = gbk
		if combine != nil {
			result = combine
		}

		mscrs = append(mscrs, &MSCR{
			ID:         fmt.Sprintf("mscr-%d", gbk.ID()),
			Mapper:     mapper,
			GroupByKey: gbk,
			Combine:    combine,
			Result:     result,
			Outputs:    a.AllUses(result),
		})

		for _, id := range mapperIDs {
			assigned[id] = true
		}
		assigned[mapper.ID()] = true
		assigned[gbk.ID()] = true
		if combine != nil {
			assigned[combine.ID()] = true
		}
	}

	for _, n := range all {
		if !graph.IsProcessNode(n) || assigned[n.ID()] {
			continue
		}
		// A process node the loop above never touched (a ParallelDo or
		// Flatten with no GroupByKey directly over it, or a Combine not
		// fed by a GroupByKey) stands on its own as a map-only job.
		mscrs = append(mscrs, &MSCR{
			ID:      fmt.Sprintf("mscr-%d", n.ID()),
			Mapper:  n,
			Result:  n,
			Outputs: a.AllUses(n),
		})
		assigned[n.ID()] = true
	}

	return layer(mscrs, a)
}

func allParallelDoBranches(ins []graph.Node) bool {
	for _, in := range ins {
		if _, ok := in.(*graph.ParallelDoNode); !ok {
			return false
		}
	}
	return true
}

func layer(mscrs []*MSCR, a *attr.Attributes) ([]Layer, error) {
	byID := make(map[string]*MSCR, len(mscrs))
	resultOwner := make(map[graph.ID]string, len(mscrs))
	for _, m := range mscrs {
		byID[m.ID] = m
		resultOwner[m.Result.ID()] = m.ID
	}

	g := dag.New()
	for _, m := range mscrs {
		g.AddNode(m.ID)
	}
	for _, m := range mscrs {
		for _, anc := range a.ReachableInputs(m.Mapper) {
			if owner, ok := resultOwner[anc.ID()]; ok && owner != m.ID {
				g.AddEdge(owner, m.ID)
			}
		}
	}

	ids, err := g.Layers()
	if err != nil {
		return nil, fmt.Errorf("mscr: %w", err)
	}

	layers := make([]Layer, len(ids))
	for i, layerIDs := range ids {
		layers[i].MSCRs = make([]*MSCR, len(layerIDs))
		for j, id := range layerIDs {
			layers[i].MSCRs[j] = byID[id]
		}
	}
	return layers, nil
}
