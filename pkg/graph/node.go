// Package graph implements Scoobi's computation graph: an immutable,
// identity-tagged DAG of dataflow operators. Node identity and equality are
// defined by id alone, never by structural content, so the same node value
// can be shared by multiple parents without any special-casing by callers.
//
// The eight node variants form a closed union. Code that must handle every
// variant exhaustively should use Accept rather than a type switch, so the
// compiler has a chance to catch a missing case whenever a ninth variant is
// ever added.
package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/weih201/scoobi/pkg/source"
)

// ID uniquely and permanently identifies a Node. Ids are assigned in
// monotonically increasing order at construction time and are never reused,
// even for nodes produced by the optimiser to replace an earlier one.
type ID uint64

var nextID atomic.Uint64

// NewID allocates a fresh, globally unique node id.
func NewID() ID {
	return ID(nextID.Add(1))
}

// Node is the sealed interface implemented by all eight graph node variants.
type Node interface {
	// ID returns the node's identity. Two nodes are equal iff their ids
	// are equal; structural content plays no part in equality.
	ID() ID
	// Shape reports whether this node produces a distributed sequence
	// (Arr) or a scalar (Exp).
	Shape() Shape
	// Serde describes how this node's output elements are encoded at a
	// shuffle boundary.
	Serde() source.Serde
	// Label is a human-readable debug tag, purely for diagnostics; it
	// plays no role in identity, equality, or planning.
	Label() string

	sealed()
}

// base is embedded by every node variant to provide identity and the
// serialiser descriptor without repeating the boilerplate eight times.
type base struct {
	id    ID
	serde source.Serde
	label string
}

func newBase(serde source.Serde, label string) base {
	return base{id: NewID(), serde: serde, label: label}
}

func (b base) ID() ID                 { return b.id }
func (b base) Serde() source.Serde    { return b.serde }
func (b base) Label() string          { return b.label }
func (b base) sealed()                {}

// LoadNode reads a distributed collection from an external DataSource.
type LoadNode struct {
	base
	Source AnySource
}

// Shape implements Node.
func (*LoadNode) Shape() Shape { return Arr }

// NewLoad constructs a Load node over src, type-erasing its element type T
// so it can sit in the same heterogeneous graph as every other node.
func NewLoad[T any](src source.DataSource[T], label string) *LoadNode {
	return &LoadNode{
		base:   newBase(src.Serde(), label),
		Source: erase(src),
	}
}

// ParallelDoNode applies Fn to each element of In, optionally consuming Env
// as a broadcast environment value. GroupBarrier forbids fusing this node
// with a downstream ParallelDo; FuseBarrier forbids duplicating it across
// multiple branches (see pkg/optimizer).
type ParallelDoNode struct {
	base
	In           Node
	Env          Node // Exp-shaped, nil if this ParallelDo has no environment
	Fn           DoFn
	GroupBarrier bool
	FuseBarrier  bool
}

// Shape implements Node.
func (*ParallelDoNode) Shape() Shape { return Arr }

// ParallelDoOption configures a ParallelDoNode at construction time.
type ParallelDoOption func(*ParallelDoNode)

// WithGroupBarrier sets the node's group barrier flag.
func WithGroupBarrier(v bool) ParallelDoOption {
	return func(n *ParallelDoNode) { n.GroupBarrier = v }
}

// WithFuseBarrier sets the node's fuse barrier flag.
func WithFuseBarrier(v bool) ParallelDoOption {
	return func(n *ParallelDoNode) { n.FuseBarrier = v }
}

// NewParallelDo constructs a ParallelDo node. env may be nil for a
// ParallelDo with no broadcast environment; if non-nil it must be
// Exp-shaped. in must be Arr-shaped.
func NewParallelDo(in Node, env Node, fn DoFn, serde source.Serde, label string, opts ...ParallelDoOption) (*ParallelDoNode, error) {
	if in.Shape() != Arr {
		return nil, fmt.Errorf("graph: ParallelDo main input must be Arr-shaped, got %s", in.Shape())
	}
	if env != nil && env.Shape() != Exp {
		return nil, fmt.Errorf("graph: ParallelDo environment must be Exp-shaped, got %s", env.Shape())
	}
	n := &ParallelDoNode{
		base: newBase(serde, label),
		In:   in,
		Env:  env,
		Fn:   fn,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// GroupByKeyNode shuffles an Arr of (K, V) pairs into an Arr of
// (K, Iterable[V]) groups.
type GroupByKeyNode struct {
	base
	In Node
}

// Shape implements Node.
func (*GroupByKeyNode) Shape() Shape { return Arr }

// NewGroupByKey constructs a GroupByKey node. in must be Arr-shaped.
func NewGroupByKey(in Node, serde source.Serde, label string) (*GroupByKeyNode, error) {
	if in.Shape() != Arr {
		return nil, fmt.Errorf("graph: GroupByKey input must be Arr-shaped, got %s", in.Shape())
	}
	return &GroupByKeyNode{base: newBase(serde, label), In: in}, nil
}

// CombineNode reduces each value-group of In with an associative operator.
type CombineNode struct {
	base
	In Node
	Op AssocOp
}

// Shape implements Node.
func (*CombineNode) Shape() Shape { return Arr }

// NewCombine constructs a Combine node. in must be Arr-shaped; after
// optimisation it is always a GroupByKey (see pkg/optimizer), but the
// constructor itself only enforces the shape.
func NewCombine(in Node, op AssocOp, serde source.Serde, label string) (*CombineNode, error) {
	if in.Shape() != Arr {
		return nil, fmt.Errorf("graph: Combine input must be Arr-shaped, got %s", in.Shape())
	}
	return &CombineNode{base: newBase(serde, label), In: in, Op: op}, nil
}

// FlattenNode concatenates a list of same-typed Arr inputs.
type FlattenNode struct {
	base
	Ins []Node
}

// Shape implements Node.
func (*FlattenNode) Shape() Shape { return Arr }

// NewFlatten constructs a Flatten node over a non-empty list of Arr-shaped
// inputs.
func NewFlatten(ins []Node, serde source.Serde, label string) (*FlattenNode, error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("graph: Flatten requires at least one input")
	}
	for i, in := range ins {
		if in.Shape() != Arr {
			return nil, fmt.Errorf("graph: Flatten input %d must be Arr-shaped, got %s", i, in.Shape())
		}
	}
	return &FlattenNode{base: newBase(serde, label), Ins: append([]Node(nil), ins...)}, nil
}

// ReturnNode is a constant scalar value.
type ReturnNode struct {
	base
	Value any
}

// Shape implements Node.
func (*ReturnNode) Shape() Shape { return Exp }

// NewReturn constructs a Return node wrapping a constant value.
func NewReturn(value any, serde source.Serde, label string) *ReturnNode {
	return &ReturnNode{base: newBase(serde, label), Value: value}
}

// OpNode combines two scalars with a user function.
type OpNode struct {
	base
	E1, E2 Node
	Fn     BinOp
}

// Shape implements Node.
func (*OpNode) Shape() Shape { return Exp }

// NewOp constructs an Op node. e1 and e2 must both be Exp-shaped.
func NewOp(e1, e2 Node, fn BinOp, serde source.Serde, label string) (*OpNode, error) {
	if e1.Shape() != Exp {
		return nil, fmt.Errorf("graph: Op first operand must be Exp-shaped, got %s", e1.Shape())
	}
	if e2.Shape() != Exp {
		return nil, fmt.Errorf("graph: Op second operand must be Exp-shaped, got %s", e2.Shape())
	}
	return &OpNode{base: newBase(serde, label), E1: e1, E2: e2, Fn: fn}, nil
}

// MaterialiseNode collects an entire Arr into a single Iterable scalar.
type MaterialiseNode struct {
	base
	In Node
}

// Shape implements Node.
func (*MaterialiseNode) Shape() Shape { return Exp }

// NewMaterialise constructs a Materialise node. in must be Arr-shaped.
func NewMaterialise(in Node, serde source.Serde, label string) (*MaterialiseNode, error) {
	if in.Shape() != Arr {
		return nil, fmt.Errorf("graph: Materialise input must be Arr-shaped, got %s", in.Shape())
	}
	return &MaterialiseNode{base: newBase(serde, label), In: in}, nil
}

// IsProcessNode reports whether n is one of the four variants that can root
// a persisted Bridge: ParallelDo, GroupByKey, Combine, Flatten.
func IsProcessNode(n Node) bool {
	switch n.(type) {
	case *ParallelDoNode, *GroupByKeyNode, *CombineNode, *FlattenNode:
		return true
	default:
		return false
	}
}

// Inputs returns every direct input edge of n, in a fixed order (main input
// before environment where both exist). Load, Return have no inputs.
func Inputs(n Node) []Node {
	switch x := n.(type) {
	case *LoadNode:
		return nil
	case *ParallelDoNode:
		if x.Env != nil {
			return []Node{x.In, x.Env}
		}
		return []Node{x.In}
	case *GroupByKeyNode:
		return []Node{x.In}
	case *CombineNode:
		return []Node{x.In}
	case *FlattenNode:
		return append([]Node(nil), x.Ins...)
	case *ReturnNode:
		return nil
	case *OpNode:
		return []Node{x.E1, x.E2}
	case *MaterialiseNode:
		return []Node{x.In}
	default:
		panic(fmt.Sprintf("graph: unhandled node variant %T", n))
	}
}
