// Package executor drives one planner run end to end: optimise the graph,
// partition it into MSCRs, and run each topologically-ordered layer of
// MSCRs against a job.Runtime, skipping any MSCR whose output bridge is
// already filled from a previous run (spec.md §4.7).
package executor

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/weih201/scoobi/pkg/attr"
	"github.com/weih201/scoobi/pkg/bridge"
	"github.com/weih201/scoobi/pkg/config"
	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/job"
	"github.com/weih201/scoobi/pkg/mscr"
	"github.com/weih201/scoobi/pkg/optimizer"
	"github.com/weih201/scoobi/pkg/scoobierr"
	"github.com/weih201/scoobi/pkg/values"
)

// Executor runs a graph to completion against one job.Runtime.
type Executor struct {
	runtime job.Runtime
	cfg     *config.Config
	log     logr.Logger
}

// New returns an Executor that dispatches jobs to rt under cfg.
func New(rt job.Runtime, cfg *config.Config, log logr.Logger) *Executor {
	return &Executor{runtime: rt, cfg: cfg, log: log}
}

// resultReader is implemented by runtimes that can hand back a node's
// materialised value directly instead of through a Bridge — currently
// only pkg/runtime/inmemory.Runtime, which keeps every result in one
// shared interpreter and never writes one.
type resultReader interface {
	Result(ctx context.Context, node graph.Node) (values.Iterable, error)
}

// Execute implements spec.md §4.6's top-level operation, defined by
// structural recursion on node:
//
//   - Return(v) evaluates to v.
//   - Op(a, b, f) evaluates to f(execute(a), execute(b)).
//   - Materialise(in) runs the layers reaching in to completion, then
//     reads in's value back.
//   - any other, Arr-shaped root just runs its layers; the returned value
//     is nil.
//
// runID names this run's jobs and bridges; see ExecuteArr.
func (e *Executor) Execute(ctx context.Context, node graph.Node, runID string) (any, error) {
	switch n := node.(type) {
	case *graph.ReturnNode:
		return n.Value, nil
	case *graph.OpNode:
		v1, err := e.Execute(ctx, n.E1, runID)
		if err != nil {
			return nil, err
		}
		v2, err := e.Execute(ctx, n.E2, runID)
		if err != nil {
			return nil, err
		}
		v, err := n.Fn.Apply(v1, v2)
		if err != nil {
			return nil, fmt.Errorf("executor: op %d: %w", n.ID(), err)
		}
		return v, nil
	case *graph.MaterialiseNode:
		return e.materialise(ctx, n.In, runID)
	default:
		if node.Shape() != graph.Arr {
			return nil, fmt.Errorf("executor: %T is not a valid execute() root", node)
		}
		return nil, e.ExecuteArr(ctx, []graph.Node{node}, runID)
	}
}

// materialise runs in's layers to completion and reads its value back,
// through whichever of the two boundary-crossing mechanisms this run's
// runtime actually uses: a shared in-process interpreter (InMemory), or
// the Bridge the owning MSCR wrote its result to (Local, Cluster).
func (e *Executor) materialise(ctx context.Context, in graph.Node, runID string) (values.Iterable, error) {
	adapter, optimised, err := e.run(ctx, []graph.Node{in}, runID)
	if err != nil {
		return nil, err
	}
	target := optimised[0]

	if reader, ok := e.runtime.(resultReader); ok {
		return reader.Result(ctx, target)
	}

	b, ok := adapter.ResultBridge(target.ID())
	if !ok {
		return nil, fmt.Errorf("executor: materialise: node %d produced no bridge to read back", target.ID())
	}
	return b.ReadAsIterable(ctx, e.cfg)
}

// ExecuteArr optimises roots, partitions the result into layered MSCRs,
// and runs each layer to completion before starting the next. Jobs within
// a layer run concurrently unless cfg.ConcurrentJobs() is false. A job
// failure fails the whole layer (and the run) without cancelling its
// still-running siblings, so every sibling's outcome is known and
// reported even when one of them fails.
//
// runID names this run's jobs and bridges. Passing "" mints a fresh
// uuid, giving every invocation its own working set. Passing the same
// runID as a prior, failed invocation lets that prior run's completed
// bridges be recognised as already filled, so the skip-already-computed
// check in configure lets a retry resume past whatever already
// succeeded instead of redoing it.
func (e *Executor) ExecuteArr(ctx context.Context, roots []graph.Node, runID string) error {
	_, _, err := e.run(ctx, roots, runID)
	return err
}

// run is ExecuteArr's implementation, additionally returning the job
// adapter (so a caller can look up a bridge by node id) and roots'
// optimised counterparts in the same order, which Materialise needs to
// find its own read-back target.
func (e *Executor) run(ctx context.Context, roots []graph.Node, runID string) (*job.Adapter, []graph.Node, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	optimised, err := optimizer.NewEngine(optimizer.DefaultRules()).WithLogger(e.log).Optimize(roots)
	if err != nil {
		return nil, nil, fmt.Errorf("executor: optimise: %w", err)
	}

	layers, err := mscr.Build(optimised)
	if err != nil {
		return nil, nil, fmt.Errorf("executor: build mscrs: %w", err)
	}

	a := attr.New(optimised)
	reg := bridge.NewRegistry()
	adapter := job.NewAdapter(runID, e.cfg, reg, a)
	reporter := job.NewErrorReporter()

	for idx, l := range layers {
		if err := ctx.Err(); err != nil {
			return nil, nil, scoobierr.Wrap(scoobierr.ErrCancelled, "executor", err)
		}

		specs, err := e.configure(ctx, adapter, a, reg, idx, l)
		if err != nil {
			return nil, nil, err
		}
		if len(specs) == 0 {
			continue
		}

		if err := e.dispatch(ctx, specs, reg, reporter); err != nil {
			return nil, nil, scoobierr.Wrap(scoobierr.ErrJobFailure, fmt.Sprintf("layer %d", idx), err)
		}
	}
	return adapter, optimised, nil
}

// configure builds and skip-filters this layer's job specs sequentially,
// the way spec.md §4.6/§4.7 describes: each MSCR is turned into a Spec and
// checked against its bridge before any job in the layer is dispatched.
func (e *Executor) configure(ctx context.Context, adapter *job.Adapter, a *attr.Attributes, reg *bridge.Registry, layerIdx int, l mscr.Layer) ([]*job.Spec, error) {
	specs := make([]*job.Spec, 0, len(l.MSCRs))
	for _, m := range l.MSCRs {
		spec := adapter.Adapt(layerIdx, m, estimateInputBytes(ctx, a, m.Mapper))
		e.logEnvironmentPush(spec, a, m)

		if spec.OutputBridge != nil {
			filled, err := spec.OutputBridge.HasBeenFilled(e.cfg)
			if err != nil {
				return nil, scoobierr.Wrap(scoobierr.ErrIO, spec.ID, err)
			}
			if filled {
				reg.MarkFilled(spec.ID)
				e.log.V(1).Info("skipping already-computed MSCR", "job", spec.ID)
				continue
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// logEnvironmentPush reports spec.md §4.6's environment-push step. m's
// result is Arr-shaped, so it can only reach a ParallelDo's Exp-shaped
// environment slot through an intervening Materialise; for each such
// Materialise sitting directly on m's result, UsesAsEnvironment finds every
// later ParallelDo that broadcasts it. The value itself is already wired
// end to end through job.Adapter's boundary-input tracking and the local
// runtime's interp.Interp.Seed — this only makes the step observable instead of leaving it implicit in
// the ordinary boundary-input path.
func (e *Executor) logEnvironmentPush(spec *job.Spec, a *attr.Attributes, m *mscr.MSCR) {
	for _, use := range a.AllUses(m.Result) {
		mat, ok := use.(*graph.MaterialiseNode)
		if !ok {
			continue
		}
		for _, consumer := range a.UsesAsEnvironment(mat) {
			e.log.V(1).Info("environment push", "from", spec.ID, "into", consumer.Label())
		}
	}
}

// dispatch runs specs against e.runtime, concurrently unless
// cfg.ConcurrentJobs() is false, marking each job's bridge filled as it
// completes successfully.
func (e *Executor) dispatch(ctx context.Context, specs []*job.Spec, reg *bridge.Registry, reporter job.ErrorReporter) error {
	run := func(spec *job.Spec) error {
		if err := e.runtime.Submit(ctx, spec); err != nil {
			reporter.Push(err)
			e.log.Error(err, "job failed", "job", spec.ID)
			return err
		}
		if spec.OutputBridge != nil {
			reg.MarkFilled(spec.ID)
		}
		return nil
	}

	if !e.cfg.ConcurrentJobs() {
		var first error
		for _, spec := range specs {
			if err := run(spec); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	var g errgroup.Group
	for _, spec := range specs {
		g.Go(func() error { return run(spec) })
	}
	return g.Wait()
}

func estimateInputBytes(ctx context.Context, a *attr.Attributes, mapper graph.Node) int64 {
	var total int64 = -1
	for _, anc := range a.ReachableInputs(mapper) {
		load, ok := anc.(*graph.LoadNode)
		if !ok {
			continue
		}
		splits, err := load.Source.InputSplits(ctx)
		if err != nil {
			continue
		}
		if total < 0 {
			total = 0
		}
		for _, split := range splits {
			total += split.ByteSize()
		}
	}
	return total
}
