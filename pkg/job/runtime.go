package job

import "context"

// Runtime executes a single job Spec and reports its outcome. The three
// concrete implementations (pkg/runtime/inmemory, /local, /cluster) share
// this interface so the executor's layer loop never branches on backend.
type Runtime interface {
	// Submit runs spec to completion, blocking until it finishes,
	// fails, or ctx is cancelled.
	Submit(ctx context.Context, spec *Spec) error
}
