package optimizer

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/weih201/scoobi/pkg/attr"
	"github.com/weih201/scoobi/pkg/graph"
)

// maxIterations bounds the fixpoint loop so a rule bug that keeps
// reporting CanApply forever fails loudly instead of hanging the planner.
const maxIterations = 10000

// Engine drives a fixed set of Rules to a fixpoint over a graph, the way
// the teacher's rewrite loop repeatedly re-scans a graph for its
// LinearChainRule until nothing more applies.
type Engine struct {
	rules []Rule
	log   logr.Logger
}

// NewEngine returns an Engine that applies rules, in order, at each node.
func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules, log: logr.Discard()}
}

// WithLogger attaches a logger the Engine emits a V(1) trace line to on
// every rule application, and returns the receiver for chaining.
func (e *Engine) WithLogger(log logr.Logger) *Engine {
	e.log = log
	return e
}

// Optimize rewrites roots to a fixpoint under e's rules and returns the
// resulting root set. It reports an error if the max iteration bound is
// exceeded (an optimiser bug) or if a rule's Apply fails.
func (e *Engine) Optimize(roots []graph.Node) ([]graph.Node, error) {
	current := roots
	for iter := 0; ; iter++ {
		if iter >= maxIterations {
			return nil, fmt.Errorf("optimizer: exceeded %d rewrite iterations without reaching a fixpoint", maxIterations)
		}

		a := attr.New(current)
		nodes := graph.All(current)

		var (
			applied     bool
			ruleName    string
			replacement graph.Node
			target      graph.Node
		)
		for _, n := range nodes {
			for _, r := range e.rules {
				if !r.CanApply(n, a) {
					continue
				}
				repl, err := r.Apply(n, a)
				if err != nil {
					return nil, fmt.Errorf("optimizer: rule %q failed on node %d: %w", r.Name(), n.ID(), err)
				}
				applied = true
				ruleName = r.Name()
				replacement = repl
				target = n
				break
			}
			if applied {
				break
			}
		}

		if !applied {
			return current, nil
		}

		e.log.V(1).Info("applied rewrite rule", "rule", ruleName, "node", target.ID(), "iteration", iter)
		current = Substitute(current, map[graph.ID]graph.Node{target.ID(): replacement})
	}
}
