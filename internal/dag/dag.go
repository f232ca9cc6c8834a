// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dag implements a generic labelled directed acyclic graph and a
// Kahn-style layering algorithm over it. The MSCR builder uses it to turn
// the "depends on" relation between MSCRs into the ordered sequence of
// layers the executor runs.
package dag

import "sort"

// Graph is a directed acyclic graph over string labels.
type Graph struct {
	Nodes   []string
	byLabel map[string]int
	edges   map[string]map[string]bool
}

// AddNode registers label as a node. Returns false if the label already exists.
func (g *Graph) AddNode(label string) bool {
	if _, ok := g.byLabel[label]; ok {
		return false
	}
	g.byLabel[label] = len(g.Nodes)
	g.Nodes = append(g.Nodes, label)
	g.edges[label] = map[string]bool{}
	return true
}

// HasNode reports whether label has been added to the graph.
func (g *Graph) HasNode(label string) bool {
	_, ok := g.byLabel[label]
	return ok
}

// AddEdge records that to depends on from (from must be available before to).
func (g *Graph) AddEdge(from, to string) {
	g.edges[from][to] = true
}

// DelEdge removes a previously added dependency edge.
func (g *Graph) DelEdge(from, to string) {
	delete(g.edges[from], to)
}

// HasEdge reports whether to depends directly on from.
func (g *Graph) HasEdge(from, to string) bool {
	return g.edges[from] != nil && g.edges[from][to]
}

// Edges returns the labels that depend directly on from, sorted by
// insertion order for determinism.
func (g *Graph) Edges(from string) []string {
	edges := make([]string, 0, 16)
	for k := range g.edges[from] {
		edges = append(edges, k)
	}
	sort.Slice(edges, func(i, j int) bool { return g.byLabel[edges[i]] < g.byLabel[edges[j]] })
	return edges
}
