package optimizer_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/interp"
	"github.com/weih201/scoobi/pkg/optimizer"
	"github.com/weih201/scoobi/pkg/source"
)

// recordEnvFn is a DoFn that records whatever broadcast environment value
// it sees in context on every Process call, for asserting that a fused
// ParallelDo still delivers each half of a paired environment to the right
// original function.
type recordEnvFn struct{ seen *any }

func (recordEnvFn) Setup(context.Context) error { return nil }

func (f recordEnvFn) Process(ctx context.Context, elem any, emit func(any) error) error {
	if v, ok := graph.EnvFromContext(ctx); ok {
		*f.seen = v
	}
	return emit(elem)
}

func (recordEnvFn) Cleanup(context.Context, func(any) error) error { return nil }

func TestOptimizer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "optimizer suite")
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

var sumOp = graph.AssocFunc(func(a, b any) (any, error) { return a.(int) + b.(int), nil })

func load() *graph.LoadNode {
	return graph.NewLoad[int](sliceSource{items: []int{1, 2, 3}}, "load")
}

var _ = Describe("flatten normalization", func() {
	It("splices a nested Flatten into its parent", func() {
		l1, l2, l3 := load(), load(), load()
		inner, err := graph.NewFlatten([]graph.Node{l2, l3}, source.NamedSerde("int"), "inner")
		Expect(err).NotTo(HaveOccurred())
		outer, err := graph.NewFlatten([]graph.Node{l1, inner}, source.NamedSerde("int"), "outer")
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{outer})
		Expect(err).NotTo(HaveOccurred())

		f := out[0].(*graph.FlattenNode)
		Expect(f.Ins).To(HaveLen(3))
		for _, in := range f.Ins {
			_, isFlatten := in.(*graph.FlattenNode)
			Expect(isFlatten).To(BeFalse())
		}
	})
})

var _ = Describe("sink of flatten", func() {
	It("pushes a ParallelDo through a Flatten", func() {
		l1, l2 := load(), load()
		flat, err := graph.NewFlatten([]graph.Node{l1, l2}, source.NamedSerde("int"), "flat")
		Expect(err).NotTo(HaveOccurred())
		pdo, err := graph.NewParallelDo(flat, nil, identity, source.NamedSerde("int"), "pdo")
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{pdo})
		Expect(err).NotTo(HaveOccurred())

		f := out[0].(*graph.FlattenNode)
		Expect(f.Ins).To(HaveLen(2))
		for _, in := range f.Ins {
			_, isPdo := in.(*graph.ParallelDoNode)
			Expect(isPdo).To(BeTrue())
		}
	})

	It("never fires on a ParallelDo with a FuseBarrier", func() {
		l1, l2 := load(), load()
		flat, err := graph.NewFlatten([]graph.Node{l1, l2}, source.NamedSerde("int"), "flat")
		Expect(err).NotTo(HaveOccurred())
		pdo, err := graph.NewParallelDo(flat, nil, identity, source.NamedSerde("int"), "pdo", graph.WithFuseBarrier(true))
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{pdo})
		Expect(err).NotTo(HaveOccurred())

		result := out[0].(*graph.ParallelDoNode)
		_, stillFlatten := result.In.(*graph.FlattenNode)
		Expect(stillFlatten).To(BeTrue())
	})
})

var _ = Describe("GroupByKey fed by a Flatten of ParallelDos", func() {
	It("reaches a fixpoint instead of looping between sink-of-flatten and insert-identity", func() {
		l1, l2 := load(), load()
		p1, err := graph.NewParallelDo(l1, nil, identity, source.NamedSerde("int"), "p1")
		Expect(err).NotTo(HaveOccurred())
		p2, err := graph.NewParallelDo(l2, nil, identity, source.NamedSerde("int"), "p2")
		Expect(err).NotTo(HaveOccurred())
		flat, err := graph.NewFlatten([]graph.Node{p1, p2}, source.NamedSerde("int"), "flat")
		Expect(err).NotTo(HaveOccurred())
		g, err := graph.NewGroupByKey(flat, source.NamedSerde("int"), "g")
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{g})
		Expect(err).NotTo(HaveOccurred())

		result := out[0].(*graph.GroupByKeyNode)
		f, isFlatten := result.In.(*graph.FlattenNode)
		Expect(isFlatten).To(BeTrue())
		Expect(f.Ins).To(HaveLen(2))
		for _, in := range f.Ins {
			_, isPdo := in.(*graph.ParallelDoNode)
			Expect(isPdo).To(BeTrue())
		}
	})
})

var _ = Describe("ParallelDo fusion", func() {
	It("fuses two chained ParallelDos with a single consumer into one", func() {
		l := load()
		p1, err := graph.NewParallelDo(l, nil, identity, source.NamedSerde("int"), "p1")
		Expect(err).NotTo(HaveOccurred())
		p2, err := graph.NewParallelDo(p1, nil, identity, source.NamedSerde("int"), "p2")
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{p2})
		Expect(err).NotTo(HaveOccurred())

		fused := out[0].(*graph.ParallelDoNode)
		Expect(fused.In.ID()).To(Equal(l.ID()))
	})

	It("pairs distinct environments instead of dropping one", func() {
		l := load()
		env1 := graph.NewReturn(10, source.NamedSerde("int"), "env1")
		env2 := graph.NewReturn(100, source.NamedSerde("int"), "env2")

		var seenInner, seenOuter any

		p1, err := graph.NewParallelDo(l, env1, recordEnvFn{seen: &seenInner}, source.NamedSerde("int"), "p1")
		Expect(err).NotTo(HaveOccurred())
		p2, err := graph.NewParallelDo(p1, env2, recordEnvFn{seen: &seenOuter}, source.NamedSerde("int"), "p2")
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{p2})
		Expect(err).NotTo(HaveOccurred())

		fused := out[0].(*graph.ParallelDoNode)
		_, isPairOp := fused.Env.(*graph.OpNode)
		Expect(isPairOp).To(BeTrue())

		i := interp.New(context.Background())
		_, err = i.EvalArr(fused)
		Expect(err).NotTo(HaveOccurred())
		Expect(seenInner).To(Equal(10))
		Expect(seenOuter).To(Equal(100))
	})

	It("does not fuse across a GroupBarrier", func() {
		l := load()
		p1, err := graph.NewParallelDo(l, nil, identity, source.NamedSerde("int"), "p1", graph.WithGroupBarrier(true))
		Expect(err).NotTo(HaveOccurred())
		p2, err := graph.NewParallelDo(p1, nil, identity, source.NamedSerde("int"), "p2")
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{p2})
		Expect(err).NotTo(HaveOccurred())

		result := out[0].(*graph.ParallelDoNode)
		Expect(result.In.ID()).To(Equal(p1.ID()))
	})
})

var _ = Describe("Combine to ParallelDo", func() {
	It("inserts a GroupByKey beneath a Combine that lacks one", func() {
		l := load()
		c, err := graph.NewCombine(l, sumOp, source.NamedSerde("int"), "c")
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{c})
		Expect(err).NotTo(HaveOccurred())

		result := out[0].(*graph.CombineNode)
		_, isGBK := result.In.(*graph.GroupByKeyNode)
		Expect(isGBK).To(BeTrue())
	})
})

var _ = Describe("insert identity before GroupByKey", func() {
	It("inserts a ParallelDo when GroupByKey is fed by a non-ParallelDo", func() {
		l := load()
		g, err := graph.NewGroupByKey(l, source.NamedSerde("int"), "g")
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{g})
		Expect(err).NotTo(HaveOccurred())

		result := out[0].(*graph.GroupByKeyNode)
		_, isPdo := result.In.(*graph.ParallelDoNode)
		Expect(isPdo).To(BeTrue())
	})

	It("leaves a GroupByKey already fed by a ParallelDo unchanged", func() {
		l := load()
		p, err := graph.NewParallelDo(l, nil, identity, source.NamedSerde("int"), "p")
		Expect(err).NotTo(HaveOccurred())
		g, err := graph.NewGroupByKey(p, source.NamedSerde("int"), "g")
		Expect(err).NotTo(HaveOccurred())

		out, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{g})
		Expect(err).NotTo(HaveOccurred())

		Expect(out[0].ID()).To(Equal(g.ID()))
	})
})

var _ = Describe("Optimize", func() {
	It("reaches a fixpoint: a second pass is a no-op", func() {
		l := load()
		g, err := graph.NewGroupByKey(l, source.NamedSerde("int"), "g")
		Expect(err).NotTo(HaveOccurred())
		c, err := graph.NewCombine(g, sumOp, source.NamedSerde("int"), "c")
		Expect(err).NotTo(HaveOccurred())

		e := optimizer.NewEngine(optimizer.DefaultRules())
		once, err := e.Optimize([]graph.Node{c})
		Expect(err).NotTo(HaveOccurred())

		twice, err := e.Optimize(once)
		Expect(err).NotTo(HaveOccurred())

		Expect(twice[0].ID()).To(Equal(once[0].ID()))
	})
})
