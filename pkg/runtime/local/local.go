// Package local implements the Local execution backend of spec.md §4.9:
// for each job it reads any upstream MSCR's result back from its Bridge,
// evaluates the current MSCR with a fresh reference interpreter, and
// commits the result to its own Bridge for a later layer to pick up. It
// does not partition, shuffle, or run a job's mapper/reducer stages across
// goroutines the way a real single-host batch framework would: the
// concurrency spec.md §5 asks for is the executor's, dispatching several
// jobs of the same layer in parallel (pkg/executor), and this runtime's
// only job-to-job isolation is that each Submit call gets its own Interp
// and reads/writes through the filesystem instead of shared memory. A
// runtime that itself parallelises within a single job's shuffle is left
// to pkg/runtime/cluster's external Submitter seam.
package local

import (
	"context"
	"fmt"

	"github.com/weih201/scoobi/pkg/config"
	"github.com/weih201/scoobi/pkg/interp"
	"github.com/weih201/scoobi/pkg/job"
	"github.com/weih201/scoobi/pkg/scoobierr"
)

// Runtime executes jobs against the local filesystem, one interpreter per
// job so concurrently dispatched jobs within a layer never share state.
type Runtime struct {
	cfg *config.Config
}

// New returns a Runtime that reads and writes bridges under cfg's working
// directory.
func New(cfg *config.Config) *Runtime {
	return &Runtime{cfg: cfg}
}

// Submit implements job.Runtime. It reads and writes bridges through
// spec.Config, this job's own clone, and falls back to the Runtime-wide
// cfg passed to New only when spec.Config is nil.
func (r *Runtime) Submit(ctx context.Context, spec *job.Spec) error {
	cfg := spec.Config
	if cfg == nil {
		cfg = r.cfg
	}

	in := interp.New(ctx)

	for _, boundary := range spec.Inputs {
		data, err := boundary.Bridge.ReadAsIterable(ctx, cfg)
		if err != nil {
			return scoobierr.Wrap(scoobierr.ErrIO, fmt.Sprintf("%s: read boundary input", spec.ID), err)
		}
		in.Seed(boundary.NodeID, data)
	}

	result, err := in.EvalArr(spec.MSCR.Result)
	if err != nil {
		return scoobierr.Wrap(scoobierr.ErrJobFailure, spec.ID, err)
	}

	if spec.OutputBridge != nil {
		if err := spec.OutputBridge.Write(ctx, cfg, result); err != nil {
			return scoobierr.Wrap(scoobierr.ErrIO, fmt.Sprintf("%s: write output", spec.ID), err)
		}
	}
	return nil
}

var _ job.Runtime = (*Runtime)(nil)
