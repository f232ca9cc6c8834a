// Package attr implements Scoobi's attribute grammar: a memoised function
// from (attribute name, node id) to a value, shared by the optimiser and
// MSCR builder to avoid recomputing graph-wide traversals (parents, uses,
// reachability) on every rewrite pass.
package attr

import (
	"fmt"
	"sync"

	"github.com/weih201/scoobi/pkg/graph"
)

type key struct {
	attr string
	id   graph.ID
}

// Table is a lock-guarded memoisation cache keyed by (attribute name, node
// id), with a recursion guard that fails fast if an attribute's compute
// function tries to re-enter itself for the same node — a programmer error
// (a cyclic attribute definition), never a legitimate outcome.
//
// The lock is held only around map bookkeeping, not around the compute
// call itself, which is safe as long as every Memo call for a given Table
// comes from a single goroutine at a time: every current caller (the
// optimiser's fixpoint loop, mscr.Build, and the executor's sequential
// layer-configure phase) satisfies that. Table does not implement the
// concurrent case: two goroutines racing to compute the same (attr, id)
// pair will not block on each other, and the second one in sees
// inProgress already set and panics with "recursive evaluation" instead of
// waiting for the first one's result. If a future caller needs to share
// one Table across goroutines, Memo's lock needs to move to cover the
// compute call (or a per-key sync.Once), not just the map bookkeeping.
type Table struct {
	mu         sync.Mutex
	values     map[key]any
	inProgress map[key]bool
}

// NewTable creates an empty attribute table. A Table lives for the
// duration of one planner run and is discarded afterward.
func NewTable() *Table {
	return &Table{
		values:     make(map[key]any),
		inProgress: make(map[key]bool),
	}
}

// Memo returns the memoised value of attribute `name` on node `n`,
// computing it via `compute` on first access. Panics if compute
// re-enters Memo for the same (name, n.ID()) pair before returning.
func (t *Table) Memo(name string, n graph.Node, compute func() any) any {
	k := key{attr: name, id: n.ID()}

	t.mu.Lock()
	if v, ok := t.values[k]; ok {
		t.mu.Unlock()
		return v
	}
	if t.inProgress[k] {
		t.mu.Unlock()
		panic(fmt.Sprintf("attr: recursive evaluation of attribute %q on node %d", name, n.ID()))
	}
	t.inProgress[k] = true
	t.mu.Unlock()

	v := compute()

	t.mu.Lock()
	delete(t.inProgress, k)
	t.values[k] = v
	t.mu.Unlock()

	return v
}
