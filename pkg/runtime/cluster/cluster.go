// Package cluster implements the Cluster execution backend of spec.md
// §4.9: rather than running an MSCR itself, it hands the job to an
// external batch-runtime Submitter (the collaborator identified by
// scoobi.uploadedlibjars and friends) and waits for it to report back.
// Building a concrete Submitter for any particular batch framework is out
// of scope here; this package only defines the seam the executor drives.
package cluster

import (
	"context"
	"fmt"

	"github.com/weih201/scoobi/pkg/job"
	"github.com/weih201/scoobi/pkg/scoobierr"
)

// Submitter hands a job.Spec to an external batch runtime and blocks
// until it completes.
type Submitter interface {
	Submit(ctx context.Context, spec *job.Spec) error
}

// Runtime delegates every job to an external Submitter.
type Runtime struct {
	submitter Submitter
}

// New returns a Runtime that delegates to submitter.
func New(submitter Submitter) *Runtime {
	return &Runtime{submitter: submitter}
}

// Submit implements job.Runtime.
func (r *Runtime) Submit(ctx context.Context, spec *job.Spec) error {
	if err := r.submitter.Submit(ctx, spec); err != nil {
		return scoobierr.Wrap(scoobierr.ErrJobFailure, fmt.Sprintf("%s: cluster submit", spec.ID), err)
	}
	return nil
}

var _ job.Runtime = (*Runtime)(nil)
