package optimizer

import (
	"context"
	"fmt"

	"github.com/weih201/scoobi/pkg/attr"
	"github.com/weih201/scoobi/pkg/graph"
)

// DefaultRules returns the five rewrite rules of spec.md §4.3, in the
// order the Engine tries them at each node.
func DefaultRules() []Rule {
	return []Rule{
		flattenNormalization{},
		sinkOfFlatten{},
		parallelDoFusion{},
		combineToParallelDo{},
		insertIdentityBeforeGroupByKey{},
	}
}

// flattenNormalization flattens nested Flatten nodes: a Flatten with a
// Flatten among its own inputs is rewritten to splice that inner
// Flatten's inputs directly into the outer one, so every Flatten reaching
// the MSCR builder has only non-Flatten inputs.
type flattenNormalization struct{}

func (flattenNormalization) Name() string { return "flatten-normalization" }

func (flattenNormalization) CanApply(n graph.Node, _ *attr.Attributes) bool {
	f, ok := n.(*graph.FlattenNode)
	if !ok {
		return false
	}
	for _, in := range f.Ins {
		if _, ok := in.(*graph.FlattenNode); ok {
			return true
		}
	}
	return false
}

func (flattenNormalization) Apply(n graph.Node, _ *attr.Attributes) (graph.Node, error) {
	f := n.(*graph.FlattenNode)
	var flat []graph.Node
	for _, in := range f.Ins {
		if inner, ok := in.(*graph.FlattenNode); ok {
			flat = append(flat, inner.Ins...)
		} else {
			flat = append(flat, in)
		}
	}
	return graph.NewFlatten(flat, f.Serde(), f.Label())
}

// sinkOfFlatten pushes a ParallelDo through its Flatten input, so a map
// applied to the concatenation of several Arrs becomes several maps
// concatenated instead: ParallelDo(Flatten(a, b)) becomes
// Flatten(ParallelDo(a), ParallelDo(b)). This lets each branch fuse with
// its own upstream producer independently.
type sinkOfFlatten struct{}

func (sinkOfFlatten) Name() string { return "sink-of-flatten" }

func (sinkOfFlatten) CanApply(n graph.Node, _ *attr.Attributes) bool {
	p, ok := n.(*graph.ParallelDoNode)
	if !ok {
		return false
	}
	if p.FuseBarrier {
		return false
	}
	_, ok = p.In.(*graph.FlattenNode)
	return ok
}

func (sinkOfFlatten) Apply(n graph.Node, _ *attr.Attributes) (graph.Node, error) {
	p := n.(*graph.ParallelDoNode)
	f := p.In.(*graph.FlattenNode)

	branches := make([]graph.Node, len(f.Ins))
	for i, in := range f.Ins {
		pd, err := graph.NewParallelDo(in, p.Env, p.Fn, p.Serde(), fmt.Sprintf("%s/%d", p.Label(), i),
			graph.WithGroupBarrier(p.GroupBarrier), graph.WithFuseBarrier(p.FuseBarrier))
		if err != nil {
			return nil, fmt.Errorf("optimizer: sink-of-flatten: %w", err)
		}
		branches[i] = pd
	}
	return graph.NewFlatten(branches, p.Serde(), p.Label())
}

// parallelDoFusion merges a ParallelDo directly over another ParallelDo's
// output into a single node, provided the inner node has no other
// consumer (fusing would otherwise duplicate its side effects) and the
// inner node sets neither GroupBarrier nor FuseBarrier. The outer node's
// barriers carry over to the fused node.
type parallelDoFusion struct{}

func (parallelDoFusion) Name() string { return "parallel-do-fusion" }

func (parallelDoFusion) CanApply(n graph.Node, a *attr.Attributes) bool {
	outer, ok := n.(*graph.ParallelDoNode)
	if !ok {
		return false
	}
	inner, ok := outer.In.(*graph.ParallelDoNode)
	if !ok {
		return false
	}
	if inner.GroupBarrier || inner.FuseBarrier {
		return false
	}
	return len(a.AllUses(inner)) <= 1
}

func (parallelDoFusion) Apply(n graph.Node, _ *attr.Attributes) (graph.Node, error) {
	outer := n.(*graph.ParallelDoNode)
	inner := outer.In.(*graph.ParallelDoNode)

	env := inner.Env
	paired := false
	switch {
	case inner.Env != nil && outer.Env != nil:
		p, err := graph.NewOp(inner.Env, outer.Env, graph.PairEnvironments(), outer.Serde(), outer.Label()+"+"+inner.Label()+"-env")
		if err != nil {
			return nil, err
		}
		env = p
		paired = true
	case outer.Env != nil:
		env = outer.Env
	}

	fused := fusedDoFn{inner: inner.Fn, outer: outer.Fn, paired: paired}
	return graph.NewParallelDo(inner.In, env, fused, outer.Serde(), outer.Label()+"+"+inner.Label(),
		graph.WithGroupBarrier(outer.GroupBarrier), graph.WithFuseBarrier(outer.FuseBarrier))
}

// fusedDoFn runs inner's Process for each input element, feeding every
// element it emits into outer's Process, so the pair behaves as a single
// pass over the data with no intermediate materialisation. When both fused
// nodes carried distinct environments, paired is true and the fused node's
// single Env node evaluates to the [2]any PairEnvironments() built; each
// half is unpacked back into its own broadcast value before the
// corresponding inner/outer call, so each function still sees only its own
// environment, exactly as it would unfused.
type fusedDoFn struct {
	inner  graph.DoFn
	outer  graph.DoFn
	paired bool
}

func (f fusedDoFn) innerCtx(ctx context.Context) context.Context {
	return f.split(ctx, 0)
}

func (f fusedDoFn) outerCtx(ctx context.Context) context.Context {
	return f.split(ctx, 1)
}

func (f fusedDoFn) split(ctx context.Context, half int) context.Context {
	if !f.paired {
		return ctx
	}
	v, ok := graph.EnvFromContext(ctx)
	if !ok {
		return ctx
	}
	pair := v.([2]any)
	return graph.WithEnv(ctx, pair[half])
}

func (f fusedDoFn) Setup(ctx context.Context) error {
	if err := f.inner.Setup(f.innerCtx(ctx)); err != nil {
		return err
	}
	return f.outer.Setup(f.outerCtx(ctx))
}

func (f fusedDoFn) Process(ctx context.Context, elem any, emit func(any) error) error {
	outerCtx := f.outerCtx(ctx)
	return f.inner.Process(f.innerCtx(ctx), elem, func(mid any) error {
		return f.outer.Process(outerCtx, mid, emit)
	})
}

func (f fusedDoFn) Cleanup(ctx context.Context, emit func(any) error) error {
	outerCtx := f.outerCtx(ctx)
	if err := f.inner.Cleanup(f.innerCtx(ctx), func(mid any) error {
		return f.outer.Process(outerCtx, mid, emit)
	}); err != nil {
		return err
	}
	return f.outer.Cleanup(outerCtx, emit)
}

// combineToParallelDo enforces the MSCR builder's assumption that a
// Combine always sits directly atop a GroupByKey (spec.md §4.4): when it
// doesn't, a GroupByKey is inserted between the Combine and its input.
// Despite its name, it does not rewrite a Combine into a ParallelDo; a
// Combine stays a Combine node.
type combineToParallelDo struct{}

func (combineToParallelDo) Name() string { return "combine-to-parallel-do" }

func (combineToParallelDo) CanApply(n graph.Node, _ *attr.Attributes) bool {
	c, ok := n.(*graph.CombineNode)
	if !ok {
		return false
	}
	_, ok = c.In.(*graph.GroupByKeyNode)
	return !ok
}

func (combineToParallelDo) Apply(n graph.Node, _ *attr.Attributes) (graph.Node, error) {
	c := n.(*graph.CombineNode)
	gbk, err := graph.NewGroupByKey(c.In, c.In.Serde(), c.Label()+"/gbk")
	if err != nil {
		return nil, fmt.Errorf("optimizer: combine-to-parallel-do: %w", err)
	}
	return graph.NewCombine(gbk, c.Op, c.Serde(), c.Label())
}

// insertIdentityBeforeGroupByKey enforces the MSCR builder's other
// assumption: a GroupByKey is always fed directly by a ParallelDo acting
// as its mapper stage, or by a Flatten whose every branch already is one
// (spec.md §4.4's "maximal set of mapper ParallelDos... directly or
// through a Flatten" — mscr.Build walks through that Flatten itself, so
// it is already a satisfied shuffle boundary and needs no identity). When
// a GroupByKey's input is anything else (a Load, a Flatten with a
// non-ParallelDo branch, ...), an identity ParallelDo is spliced in.
type insertIdentityBeforeGroupByKey struct{}

func (insertIdentityBeforeGroupByKey) Name() string { return "insert-identity-before-group-by-key" }

func (insertIdentityBeforeGroupByKey) CanApply(n graph.Node, _ *attr.Attributes) bool {
	g, ok := n.(*graph.GroupByKeyNode)
	if !ok {
		return false
	}
	if _, ok := g.In.(*graph.ParallelDoNode); ok {
		return false
	}
	if f, ok := g.In.(*graph.FlattenNode); ok {
		return !allParallelDos(f.Ins)
	}
	return true
}

func allParallelDos(ins []graph.Node) bool {
	for _, in := range ins {
		if _, ok := in.(*graph.ParallelDoNode); !ok {
			return false
		}
	}
	return true
}

func (insertIdentityBeforeGroupByKey) Apply(n graph.Node, _ *attr.Attributes) (graph.Node, error) {
	g := n.(*graph.GroupByKeyNode)
	id, err := graph.NewParallelDo(g.In, nil, graph.IdentityFn, g.In.Serde(), g.Label()+"/identity")
	if err != nil {
		return nil, fmt.Errorf("optimizer: insert-identity-before-group-by-key: %w", err)
	}
	return graph.NewGroupByKey(id, g.Serde(), g.Label())
}
