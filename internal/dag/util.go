// Copyright 2024 rg0now. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dag

import "sort"

// New creates an empty graph.
func New() *Graph {
	return &Graph{byLabel: map[string]int{}, edges: map[string]map[string]bool{}}
}

// Roots returns the nodes of the DAG that have no incoming edge.
func (g *Graph) Roots() []string {
	roots := make([]string, 0, len(g.Nodes))

	for _, j := range g.Nodes {
		isRoot := true
		for _, i := range g.Nodes {
			if g.HasEdge(i, j) {
				isRoot = false
				break
			}
		}
		if isRoot {
			roots = append(roots, j)
		}
	}
	return roots
}

// Layers partitions the graph into the coarsest sequence of independent
// sets compatible with the dependency order: layer 0 holds every node with
// no unsatisfied dependency, layer 1 holds every remaining node whose
// dependencies are all satisfied by layer 0, and so on (Kahn's algorithm,
// peeled one whole ready-set at a time instead of one node at a time).
// Within a layer, labels are sorted for a deterministic tie-break. Layers
// returns an error if the graph contains a cycle.
func (g *Graph) Layers() ([][]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n] = 0
	}
	for _, from := range g.Nodes {
		for to := range g.edges[from] {
			indegree[to]++
		}
	}

	remaining := len(g.Nodes)
	var layers [][]string

	for remaining > 0 {
		ready := make([]string, 0)
		for _, n := range g.Nodes {
			if indegree[n] == 0 {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			return nil, &CycleError{}
		}
		sort.Strings(ready)

		layer := make([]string, 0, len(ready))
		for _, n := range ready {
			layer = append(layer, n)
			// Mark consumed so it is not picked up again in a later pass
			// of this same loop iteration.
			indegree[n] = -1
		}
		for _, n := range ready {
			for to := range g.edges[n] {
				if indegree[to] > 0 {
					indegree[to]--
				}
			}
		}

		layers = append(layers, layer)
		remaining -= len(ready)
	}

	return layers, nil
}

// CycleError is returned by Layers when the graph is not a DAG.
type CycleError struct{}

func (e *CycleError) Error() string { return "dag: graph contains a cycle" }
