package scoobierr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weih201/scoobi/pkg/scoobierr"
)

func TestWrapMatchesSentinel(t *testing.T) {
	cause := errors.New("boom")
	err := scoobierr.Wrap(scoobierr.ErrJobFailure, "mscr-3 layer 1", cause)

	assert.True(t, errors.Is(err, scoobierr.ErrJobFailure))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, scoobierr.ErrIO))
	assert.Contains(t, err.Error(), "boom")
}
