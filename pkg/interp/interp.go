// Package interp is a reference implementation of Scoobi's node semantics,
// evaluating a graph directly over host memory with no shuffle and no MSCR
// grouping. It plays two roles: it is the ground truth optimiser tests
// check against (optimising a graph must never change what Interp
// computes for it), and it is the actual evaluator behind the InMemory and
// Local job.Runtime backends (pkg/runtime/inmemory, pkg/runtime/local),
// which each drive one Interp per run or per job rather than compiling an
// MSCR down to a real mapper/shuffle/reducer pipeline.
package interp

import (
	"context"
	"fmt"
	"sync"

	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/values"
)

// Interp evaluates a graph, memoising each node's result so a node shared
// by multiple parents is computed once, matching the planner's identity
// semantics. A single Interp is safe for concurrent EvalArr/EvalExp calls;
// evaluation is serialised behind one lock, which is adequate for the
// in-memory runtime this package exists to back but not intended for
// high-throughput parallel use.
type Interp struct {
	ctx context.Context

	mu    sync.Mutex
	cache map[graph.ID]evalResult
}

type evalResult struct {
	arr    values.Iterable
	scalar any
	err    error
}

// New returns an Interp that evaluates DoFn/AssocOp/BinOp calls under ctx.
func New(ctx context.Context) *Interp {
	return &Interp{ctx: ctx, cache: make(map[graph.ID]evalResult)}
}

// EvalArr evaluates an Arr-shaped node to its materialised contents.
func (in *Interp) EvalArr(n graph.Node) (values.Iterable, error) {
	r := in.eval(n)
	return r.arr, r.err
}

// EvalExp evaluates an Exp-shaped node to its scalar value.
func (in *Interp) EvalExp(n graph.Node) (any, error) {
	r := in.eval(n)
	return r.scalar, r.err
}

func (in *Interp) eval(n graph.Node) evalResult {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.evalLocked(n)
}

func (in *Interp) evalLocked(n graph.Node) evalResult {
	if r, ok := in.cache[n.ID()]; ok {
		return r
	}
	r := graph.Accept[evalResult](n, in)
	in.cache[n.ID()] = r
	return r
}

// Seed pre-populates id's cached result, short-circuiting evaluation at
// that node instead of recursing into its inputs. The local runtime uses
// this to splice a value read back from a Bridge in for an
// MSCR boundary node, so Interp never has to re-derive across a job
// boundary what a previous layer already computed.
func (in *Interp) Seed(id graph.ID, arr values.Iterable) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.cache[id] = evalResult{arr: arr}
}

// VisitLoad implements graph.Visitor.
func (in *Interp) VisitLoad(n *graph.LoadNode) evalResult {
	splits, err := n.Source.InputSplits(in.ctx)
	if err != nil {
		return evalResult{err: fmt.Errorf("interp: load %d: %w", n.ID(), err)}
	}

	var out values.Iterable
	for _, split := range splits {
		it, err := n.Source.Open(in.ctx, split)
		if err != nil {
			return evalResult{err: fmt.Errorf("interp: load %d: %w", n.ID(), err)}
		}
		for {
			v, ok, err := it.Next()
			if err != nil {
				it.Close()
				return evalResult{err: fmt.Errorf("interp: load %d: %w", n.ID(), err)}
			}
			if !ok {
				break
			}
			out = append(out, v)
		}
		if err := it.Close(); err != nil {
			return evalResult{err: fmt.Errorf("interp: load %d: %w", n.ID(), err)}
		}
	}
	return evalResult{arr: out}
}

// VisitParallelDo implements graph.Visitor.
func (in *Interp) VisitParallelDo(n *graph.ParallelDoNode) evalResult {
	src := in.evalLocked(n.In)
	if src.err != nil {
		return evalResult{err: src.err}
	}

	ctx := in.ctx
	if n.Env != nil {
		env := in.evalLocked(n.Env)
		if env.err != nil {
			return evalResult{err: env.err}
		}
		ctx = graph.WithEnv(ctx, env.scalar)
	}

	if err := n.Fn.Setup(ctx); err != nil {
		return evalResult{err: fmt.Errorf("interp: parallel-do %d setup: %w", n.ID(), err)}
	}

	var out values.Iterable
	emit := func(v any) error { out = append(out, v); return nil }

	for _, elem := range src.arr {
		if err := n.Fn.Process(ctx, elem, emit); err != nil {
			return evalResult{err: fmt.Errorf("interp: parallel-do %d: %w", n.ID(), err)}
		}
	}
	if err := n.Fn.Cleanup(ctx, emit); err != nil {
		return evalResult{err: fmt.Errorf("interp: parallel-do %d cleanup: %w", n.ID(), err)}
	}
	return evalResult{arr: out}
}

// VisitGroupByKey implements graph.Visitor.
func (in *Interp) VisitGroupByKey(n *graph.GroupByKeyNode) evalResult {
	src := in.evalLocked(n.In)
	if src.err != nil {
		return evalResult{err: src.err}
	}

	groups := make(map[any]values.Iterable)
	var order []any
	for _, elem := range src.arr {
		kv, ok := elem.(values.KV)
		if !ok {
			return evalResult{err: fmt.Errorf("interp: group-by-key %d: element %v is not a values.KV", n.ID(), elem)}
		}
		if _, seen := groups[kv.Key]; !seen {
			order = append(order, kv.Key)
		}
		groups[kv.Key] = append(groups[kv.Key], kv.Value)
	}

	out := make(values.Iterable, 0, len(order))
	for _, k := range order {
		out = append(out, values.Group{Key: k, Values: groups[k]})
	}
	return evalResult{arr: out}
}

// VisitCombine implements graph.Visitor. An empty value-group produces no
// output element (spec.md Open Question: empty Combine groups are a
// no-op, not an error and not a zero value).
func (in *Interp) VisitCombine(n *graph.CombineNode) evalResult {
	src := in.evalLocked(n.In)
	if src.err != nil {
		return evalResult{err: src.err}
	}

	var out values.Iterable
	for _, elem := range src.arr {
		g, ok := elem.(values.Group)
		if !ok {
			return evalResult{err: fmt.Errorf("interp: combine %d: element %v is not a values.Group", n.ID(), elem)}
		}
		if len(g.Values) == 0 {
			continue
		}
		acc := g.Values[0]
		for _, v := range g.Values[1:] {
			var err error
			acc, err = n.Op.Combine(acc, v)
			if err != nil {
				return evalResult{err: fmt.Errorf("interp: combine %d: %w", n.ID(), err)}
			}
		}
		out = append(out, values.KV{Key: g.Key, Value: acc})
	}
	return evalResult{arr: out}
}

// VisitFlatten implements graph.Visitor.
func (in *Interp) VisitFlatten(n *graph.FlattenNode) evalResult {
	var out values.Iterable
	for _, branch := range n.Ins {
		r := in.evalLocked(branch)
		if r.err != nil {
			return evalResult{err: r.err}
		}
		out = append(out, r.arr...)
	}
	return evalResult{arr: out}
}

// VisitReturn implements graph.Visitor.
func (in *Interp) VisitReturn(n *graph.ReturnNode) evalResult {
	return evalResult{scalar: n.Value}
}

// VisitOp implements graph.Visitor.
func (in *Interp) VisitOp(n *graph.OpNode) evalResult {
	e1 := in.evalLocked(n.E1)
	if e1.err != nil {
		return evalResult{err: e1.err}
	}
	e2 := in.evalLocked(n.E2)
	if e2.err != nil {
		return evalResult{err: e2.err}
	}
	v, err := n.Fn.Apply(e1.scalar, e2.scalar)
	if err != nil {
		return evalResult{err: fmt.Errorf("interp: op %d: %w", n.ID(), err)}
	}
	return evalResult{scalar: v}
}

// VisitMaterialise implements graph.Visitor.
func (in *Interp) VisitMaterialise(n *graph.MaterialiseNode) evalResult {
	src := in.evalLocked(n.In)
	if src.err != nil {
		return evalResult{err: src.err}
	}
	return evalResult{scalar: src.arr}
}
