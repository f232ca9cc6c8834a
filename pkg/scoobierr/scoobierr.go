// Package scoobierr defines the typed error hierarchy shared across the
// planner and executor: errors that carry one of the sentinels below can
// be classified with errors.Is, the way the teacher wraps its own
// operator errors with a small fixed set of ErrX sentinels rather than
// typed error structs. The executor, the runtimes and the MSCR builder
// attach sentinels; node constructors and the optimiser
// return plain errors, and no code in this module attaches ErrValidation.
package scoobierr

import "errors"

var (
	// ErrValidation marks a graph that violates a node constructor's
	// shape invariant, or a rewrite rule that would.
	ErrValidation = errors.New("scoobi: validation error")

	// ErrOptimiserInvariant marks a graph the MSCR builder received
	// without the optimiser having normalised it first.
	ErrOptimiserInvariant = errors.New("scoobi: optimiser invariant violated")

	// ErrJobFailure marks a submitted MSCR job that failed during
	// execution.
	ErrJobFailure = errors.New("scoobi: job failed")

	// ErrCancelled marks a run that was cancelled via its context before
	// completing.
	ErrCancelled = errors.New("scoobi: run cancelled")

	// ErrIO marks a failure reading or writing a bridge, sink, or source.
	ErrIO = errors.New("scoobi: I/O error")
)

// Wrap annotates err with msg and marks it as matching sentinel under
// errors.Is, without discarding err's own chain.
func Wrap(sentinel error, msg string, err error) error {
	return &wrapped{sentinel: sentinel, msg: msg, err: err}
}

type wrapped struct {
	sentinel error
	msg      string
	err      error
}

func (w *wrapped) Error() string {
	if w.err == nil {
		return w.msg
	}
	return w.msg + ": " + w.err.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.sentinel, w.err}
}
