package graph

import "fmt"

// Visitor maps each of the eight node variants to a value of type T. It is
// the exhaustive alternative to a type switch: adding a ninth variant means
// adding a ninth method here, and every existing implementation fails to
// compile until it is updated.
type Visitor[T any] interface {
	VisitLoad(*LoadNode) T
	VisitParallelDo(*ParallelDoNode) T
	VisitGroupByKey(*GroupByKeyNode) T
	VisitCombine(*CombineNode) T
	VisitFlatten(*FlattenNode) T
	VisitReturn(*ReturnNode) T
	VisitOp(*OpNode) T
	VisitMaterialise(*MaterialiseNode) T
}

// Accept dispatches n to the matching method of v.
func Accept[T any](n Node, v Visitor[T]) T {
	switch x := n.(type) {
	case *LoadNode:
		return v.VisitLoad(x)
	case *ParallelDoNode:
		return v.VisitParallelDo(x)
	case *GroupByKeyNode:
		return v.VisitGroupByKey(x)
	case *CombineNode:
		return v.VisitCombine(x)
	case *FlattenNode:
		return v.VisitFlatten(x)
	case *ReturnNode:
		return v.VisitReturn(x)
	case *OpNode:
		return v.VisitOp(x)
	case *MaterialiseNode:
		return v.VisitMaterialise(x)
	default:
		panic(fmt.Sprintf("graph: unhandled node variant %T", n))
	}
}

// Walk visits every node reachable from roots exactly once, in
// post-order (a node's inputs are visited before the node itself), and
// calls fn on each. Shared nodes are only visited once regardless of how
// many parents reference them.
func Walk(roots []Node, fn func(Node)) {
	seen := make(map[ID]bool)
	var visit func(Node)
	visit = func(n Node) {
		if seen[n.ID()] {
			return
		}
		seen[n.ID()] = true
		for _, in := range Inputs(n) {
			visit(in)
		}
		fn(n)
	}
	for _, r := range roots {
		visit(r)
	}
}

// All returns every node reachable from roots, in post-order, each exactly
// once.
func All(roots []Node) []Node {
	var nodes []Node
	Walk(roots, func(n Node) { nodes = append(nodes, n) })
	return nodes
}
