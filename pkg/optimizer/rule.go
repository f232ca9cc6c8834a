package optimizer

import (
	"github.com/weih201/scoobi/pkg/attr"
	"github.com/weih201/scoobi/pkg/graph"
)

// Rule is one rewrite step of the optimiser. CanApply must be a pure
// function of n and the current attribute set; Apply produces the node
// that should stand in place of n once the rule fires. Engine takes care
// of substituting the replacement throughout the graph and reconstructing
// every ancestor whose inputs changed.
type Rule interface {
	// Name identifies the rule for diagnostics and for the applied-rule
	// trace an Engine.Optimize call can report.
	Name() string
	// CanApply reports whether the rule fires at n.
	CanApply(n graph.Node, a *attr.Attributes) bool
	// Apply returns the node that replaces n. Only called when CanApply
	// returned true for the same (n, a).
	Apply(n graph.Node, a *attr.Attributes) (graph.Node, error)
}
