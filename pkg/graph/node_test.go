package graph_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/source"
)

func TestGraph(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "graph suite")
}

type sliceSource struct{ items []int }

func (s sliceSource) InputSplits(context.Context) ([]source.Split, error) {
	return []source.Split{constSplit(len(s.items))}, nil
}
func (s sliceSource) Reader(context.Context, source.Split) (source.Iterator[int], error) {
	return source.NewSliceIterator(s.items), nil
}
func (s sliceSource) Serde() source.Serde { return source.NamedSerde("int") }

type constSplit int

func (c constSplit) ByteSize() int64 { return int64(c) * 8 }

var _ = Describe("Node construction", func() {
	It("assigns unique, monotonically increasing ids", func() {
		load := graph.NewLoad[int](sliceSource{items: []int{1, 2, 3}}, "load")
		ret := graph.NewReturn(1, source.NamedSerde("int"), "ret")
		Expect(ret.ID()).To(BeNumerically(">", load.ID()))
	})

	It("rejects a ParallelDo whose main input is Exp-shaped", func() {
		ret := graph.NewReturn(1, source.NamedSerde("int"), "ret")
		_, err := graph.NewParallelDo(ret, nil, graph.DoFunc(func(e any) ([]any, error) { return []any{e}, nil }), source.NamedSerde("int"), "pdo")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a ParallelDo whose environment is Arr-shaped", func() {
		load := graph.NewLoad[int](sliceSource{items: []int{1}}, "load")
		_, err := graph.NewParallelDo(load, load, graph.DoFunc(func(e any) ([]any, error) { return []any{e}, nil }), source.NamedSerde("int"), "pdo")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an Op node with an Arr-shaped operand", func() {
		load := graph.NewLoad[int](sliceSource{items: []int{1}}, "load")
		ret := graph.NewReturn(1, source.NamedSerde("int"), "ret")
		_, err := graph.NewOp(load, ret, graph.PairEnvironments(), source.NamedSerde("int"), "op")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an empty Flatten", func() {
		_, err := graph.NewFlatten(nil, source.NamedSerde("int"), "flat")
		Expect(err).To(HaveOccurred())
	})

	It("classifies process nodes correctly", func() {
		load := graph.NewLoad[int](sliceSource{items: []int{1}}, "load")
		gbk, err := graph.NewGroupByKey(load, source.NamedSerde("int"), "gbk")
		Expect(err).NotTo(HaveOccurred())

		Expect(graph.IsProcessNode(gbk)).To(BeTrue())
		Expect(graph.IsProcessNode(load)).To(BeFalse())
	})

	It("walks a shared subgraph exactly once per node", func() {
		load := graph.NewLoad[int](sliceSource{items: []int{1, 2}}, "load")
		id := graph.DoFunc(func(e any) ([]any, error) { return []any{e}, nil })
		p1, err := graph.NewParallelDo(load, nil, id, source.NamedSerde("int"), "p1")
		Expect(err).NotTo(HaveOccurred())

		flat, err := graph.NewFlatten([]graph.Node{p1, p1}, source.NamedSerde("int"), "flat")
		Expect(err).NotTo(HaveOccurred())

		visited := 0
		graph.Walk([]graph.Node{flat}, func(graph.Node) { visited++ })
		// load, p1, flat = 3 distinct nodes even though p1 is referenced twice.
		Expect(visited).To(Equal(3))
	})
})
