// Package visualize renders a planner run's layered MSCR plan as a
// Graphviz DOT or Mermaid diagram, so a developer can see how a pipeline
// was partitioned and scheduled without reading through job logs.
package visualize

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"

	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/mscr"
)

// Graph is the visualization graph of one planner run's MSCR plan.
type Graph struct {
	Title  string
	Layers []LayerNode
	Edges  []Edge
}

// LayerNode is one topologically independent batch of MSCRs, the unit the
// executor dispatches together.
type LayerNode struct {
	Index int
	MSCRs []MSCRNode
}

// MSCRNode describes a single MSCR for display.
type MSCRNode struct {
	ID         string
	MapperName string
	HasShuffle bool
	HasCombine bool
	ResultName string
}

// Edge is a dependency from an upstream MSCR's result to a downstream
// MSCR that consumes it as a boundary input.
type Edge struct {
	FromMSCR string
	ToMSCR   string
}

// BuildGraph converts a planner run's layered MSCR plan (mscr.Build's
// output) into a Graph.
func BuildGraph(title string, layers []mscr.Layer) *Graph {
	g := &Graph{Title: title}
	resultOwner := make(map[graph.ID]string)

	for i, l := range layers {
		ln := LayerNode{Index: i}
		for _, m := range l.MSCRs {
			ln.MSCRs = append(ln.MSCRs, MSCRNode{
				ID:         m.ID,
				MapperName: m.Mapper.Label(),
				HasShuffle: m.GroupByKey != nil,
				HasCombine: m.Combine != nil,
				ResultName: m.Result.Label(),
			})
			resultOwner[m.Result.ID()] = m.ID
		}
		g.Layers = append(g.Layers, ln)
	}

	for _, l := range layers {
		for _, m := range l.MSCRs {
			seen := make(map[graph.ID]bool)
			var visit func(n graph.Node)
			visit = func(n graph.Node) {
				if seen[n.ID()] {
					return
				}
				seen[n.ID()] = true
				if owner, ok := resultOwner[n.ID()]; ok && owner != m.ID {
					g.Edges = append(g.Edges, Edge{FromMSCR: owner, ToMSCR: m.ID})
					return
				}
				for _, in := range graph.Inputs(n) {
					visit(in)
				}
			}
			for _, in := range graph.Inputs(m.Mapper) {
				visit(in)
			}
		}
	}
	return g
}

// BuildDotGraph creates a dot.Graph from the visualization graph. This
// unified graph can then be rendered in different formats (DOT, Mermaid).
func BuildDotGraph(g *Graph) *dot.Graph {
	dg := dot.NewGraph(dot.Directed)
	dg.Attr("rankdir", "TB")
	dg.Attr("newrank", "true")
	dg.Attr("label", g.Title)
	dg.Attr("labelloc", "t")
	dg.Attr("fontsize", "16")

	nodes := make(map[string]dot.Node, 0)
	for _, l := range g.Layers {
		for _, m := range l.MSCRs {
			node := dg.Node(m.ID).
				Attr("label", mscrLabel(l.Index, m)).
				Attr("shape", "box").
				Attr("style", "filled,rounded").
				Attr("fillcolor", mscrColor(m)).
				Attr("color", "darkblue").
				Attr("fontname", "helvetica")
			nodes[m.ID] = node
		}
	}

	for _, e := range g.Edges {
		from, fromOK := nodes[e.FromMSCR]
		to, toOK := nodes[e.ToMSCR]
		if fromOK && toOK {
			dg.Edge(from, to).
				Attr("fontname", "helvetica").
				Attr("fontsize", "10")
		}
	}
	return dg
}

func mscrLabel(layer int, m MSCRNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "layer %d: %s\n%s", layer, m.ID, m.MapperName)
	if m.HasShuffle {
		b.WriteString(" -> shuffle")
	}
	if m.HasCombine {
		b.WriteString(" -> combine")
	}
	fmt.Fprintf(&b, " -> %s", m.ResultName)
	return b.String()
}

func mscrColor(m MSCRNode) string {
	switch {
	case m.HasCombine:
		return "lightyellow"
	case m.HasShuffle:
		return "lightblue"
	default:
		return "lightgreen"
	}
}
