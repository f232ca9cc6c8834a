package graph

import "context"

// DoFn is the user function attached to a ParallelDo node. Setup and
// Cleanup bracket a batch of Process calls the way a mapper or reducer
// task's lifecycle does: Setup once before the first element, Process once
// per element (emitting zero or more outputs), Cleanup once after the last
// element (it may still emit).
type DoFn interface {
	Setup(ctx context.Context) error
	Process(ctx context.Context, elem any, emit func(any) error) error
	Cleanup(ctx context.Context, emit func(any) error) error
}

// DoFunc adapts a plain element-to-elements function into a DoFn with
// no-op Setup/Cleanup, for the common case of a stateless mapper.
type DoFunc func(elem any) ([]any, error)

// Setup implements DoFn.
func (DoFunc) Setup(context.Context) error { return nil }

// Process implements DoFn.
func (f DoFunc) Process(_ context.Context, elem any, emit func(any) error) error {
	outs, err := f(elem)
	if err != nil {
		return err
	}
	for _, o := range outs {
		if err := emit(o); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup implements DoFn.
func (DoFunc) Cleanup(context.Context, func(any) error) error { return nil }

// envKey is the context key a ParallelDo's broadcast environment value, if
// any, is carried under. A DoFn reads it with EnvFromContext rather than
// through an extra Process parameter, so a DoFn with no environment need
// not care whether one exists.
type envKey struct{}

// WithEnv returns a context carrying val as the current ParallelDo's
// broadcast environment value.
func WithEnv(ctx context.Context, val any) context.Context {
	return context.WithValue(ctx, envKey{}, val)
}

// EnvFromContext returns the broadcast environment value set by WithEnv,
// if any.
func EnvFromContext(ctx context.Context) (any, bool) {
	v := ctx.Value(envKey{})
	return v, v != nil
}

// IdentityFn is the DoFn the optimiser splices in wherever a GroupByKey's
// input isn't already a ParallelDo (spec.md §4.3): it passes every element
// through unchanged, giving the MSCR builder a mapper stage to attach to.
var IdentityFn = DoFunc(func(elem any) ([]any, error) { return []any{elem}, nil })

// AssocOp is the associative reduction operator attached to a Combine
// node. Combine's operator must be associative because, after the
// shuffle, values within a key are framework-ordered and are folded
// pairwise in an unspecified order.
type AssocOp interface {
	Combine(a, b any) (any, error)
}

// AssocFunc adapts a plain binary function into an AssocOp.
type AssocFunc func(a, b any) (any, error)

// Combine implements AssocOp.
func (f AssocFunc) Combine(a, b any) (any, error) { return f(a, b) }

// BinOp is the scalar combinator attached to an Op node.
type BinOp interface {
	Apply(a, b any) (any, error)
}

// BinFunc adapts a plain binary function into a BinOp.
type BinFunc func(a, b any) (any, error)

// Apply implements BinOp.
func (f BinFunc) Apply(a, b any) (any, error) { return f(a, b) }

// PairEnvironments returns a BinOp that pairs two environment values into a
// [2]any, used by the optimiser's ParallelDo fusion rule to combine two
// fused nodes' environments into one.
func PairEnvironments() BinOp {
	return BinFunc(func(a, b any) (any, error) {
		return [2]any{a, b}, nil
	})
}
