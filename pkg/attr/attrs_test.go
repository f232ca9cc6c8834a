package attr_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/weih201/scoobi/pkg/attr"
	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/source"
)

func TestAttr(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "attr suite")
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

var identity = graph.DoFunc(func(e any) ([]any, error) { return []any{e}, nil })

var _ = Describe("Attributes", func() {
	var (
		load *graph.LoadNode
		env  *graph.ReturnNode
		pdo  *graph.ParallelDoNode
		flat *graph.FlattenNode
		a    *attr.Attributes
	)

	BeforeEach(func() {
		load = graph.NewLoad[int](sliceSource{items: []int{1, 2, 3}}, "load")
		env = graph.NewReturn(10, source.NamedSerde("int"), "env")

		var err error
		pdo, err = graph.NewParallelDo(load, env, identity, source.NamedSerde("int"), "pdo")
		Expect(err).NotTo(HaveOccurred())

		flat, err = graph.NewFlatten([]graph.Node{pdo}, source.NamedSerde("int"), "flat")
		Expect(err).NotTo(HaveOccurred())

		a = attr.New([]graph.Node{flat})
	})

	It("reports parents", func() {
		Expect(a.Parents(load)).To(ConsistOf(graph.Node(pdo)))
		Expect(a.Parents(pdo)).To(ConsistOf(graph.Node(flat)))
		Expect(a.Parents(flat)).To(BeEmpty())
	})

	It("distinguishes environment uses from ordinary uses", func() {
		Expect(a.UsesAsEnvironment(env)).To(ConsistOf(graph.Node(pdo)))
		Expect(a.UsesAsEnvironment(load)).To(BeEmpty())
	})

	It("computes reachable inputs transitively", func() {
		Expect(a.ReachableInputs(flat)).To(ConsistOf(graph.Node(load), graph.Node(env), graph.Node(pdo)))
		Expect(a.ReachableInputs(load)).To(BeEmpty())
	})

	It("computes reachable outputs transitively", func() {
		Expect(a.ReachableOutputs(load)).To(ConsistOf(graph.Node(pdo), graph.Node(flat)))
		Expect(a.ReachableOutputs(flat)).To(BeEmpty())
	})

	It("classifies process nodes", func() {
		Expect(a.IsProcessNode(pdo)).To(BeTrue())
		Expect(a.IsProcessNode(load)).To(BeFalse())
	})
})
