package cluster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weih201/scoobi/pkg/job"
	"github.com/weih201/scoobi/pkg/runtime/cluster"
	"github.com/weih201/scoobi/pkg/scoobierr"
)

type fakeSubmitter struct {
	err  error
	seen []*job.Spec
}

func (f *fakeSubmitter) Submit(_ context.Context, spec *job.Spec) error {
	f.seen = append(f.seen, spec)
	return f.err
}

func TestDelegatesToSubmitter(t *testing.T) {
	sub := &fakeSubmitter{}
	rt := cluster.New(sub)

	spec := &job.Spec{ID: "job-1"}
	assert.NoError(t, rt.Submit(context.Background(), spec))
	assert.Equal(t, []*job.Spec{spec}, sub.seen)
}

func TestWrapsSubmitterFailure(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("cluster unreachable")}
	rt := cluster.New(sub)

	err := rt.Submit(context.Background(), &job.Spec{ID: "job-1"})
	assert.True(t, errors.Is(err, scoobierr.ErrJobFailure))
}
