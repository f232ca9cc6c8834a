// Package inmemory implements the InMemory execution backend of spec.md
// §4.9: every MSCR in a run shares one reference interpreter instance, so
// a downstream MSCR that depends on an earlier one's result simply finds
// it already memoised — no shuffle files, no serialisation, and (per
// SPEC_FULL.md's resolution of spec.md's first Open Question) no Bridge
// at all.
package inmemory

import (
	"context"
	"fmt"

	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/interp"
	"github.com/weih201/scoobi/pkg/job"
	"github.com/weih201/scoobi/pkg/values"
)

// Runtime executes jobs directly against a shared *interp.Interp.
type Runtime struct {
	interp *interp.Interp
}

// New returns a Runtime backed by in, typically one Interp shared across
// an entire executor run.
func New(in *interp.Interp) *Runtime {
	return &Runtime{interp: in}
}

// Submit implements job.Runtime.
func (r *Runtime) Submit(ctx context.Context, spec *job.Spec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.interp.EvalArr(spec.MSCR.Result); err != nil {
		return fmt.Errorf("inmemory: %s: %w", spec.ID, err)
	}
	return nil
}

// Result returns node's materialised value straight from the shared
// interpreter's cache, computing it first if this run never reached it.
// InMemory mode never writes a Bridge, so this is the only way anything
// outside this package (pkg/executor's Materialise handling) can read a
// node's value back.
func (r *Runtime) Result(ctx context.Context, node graph.Node) (values.Iterable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	arr, err := r.interp.EvalArr(node)
	if err != nil {
		return nil, fmt.Errorf("inmemory: result %d: %w", node.ID(), err)
	}
	return arr, nil
}

var _ job.Runtime = (*Runtime)(nil)
