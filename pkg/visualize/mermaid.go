package visualize

import (
	"fmt"

	"github.com/emicklei/dot"
)

// MermaidGenerator generates Mermaid flowchart diagrams.
type MermaidGenerator struct{}

// Generate creates a Mermaid flowchart from the graph using the dot library.
func (m *MermaidGenerator) Generate(g *Graph) string {
	dotGraph := BuildDotGraph(g)

	// dot's Mermaid renderer expects the "shape" attribute, when set, to
	// be one of its own dot.MermaidShape* values rather than the plain
	// DOT shape string ("box") BuildDotGraph sets for Graphviz output;
	// left in place it type-asserts and panics. Clear it here so Mermaid
	// falls back to its default node shape.
	for _, n := range dotGraph.FindNodes() {
		n.Delete("shape")
	}

	// Generate Mermaid flowchart with left-to-right orientation.
	mermaid := dot.MermaidFlowchart(dotGraph, dot.MermaidLeftToRight)

	// Wrap in markdown code block.
	return fmt.Sprintf("```mermaid\n%s\n```\n", mermaid)
}
