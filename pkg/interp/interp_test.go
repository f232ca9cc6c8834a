package interp_test

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/interp"
	"github.com/weih201/scoobi/pkg/optimizer"
	"github.com/weih201/scoobi/pkg/source"
	"github.com/weih201/scoobi/pkg/values"
)

type lineSource struct{ lines []string }

func (s lineSource) InputSplits(context.Context) ([]source.Split, error) {
	return []source.Split{constSplit(len(s.lines))}, nil
}
func (s lineSource) Reader(context.Context, source.Split) (source.Iterator[string], error) {
	return source.NewSliceIterator(s.lines), nil
}
func (s lineSource) Serde() source.Serde { return source.NamedSerde("string") }

type constSplit int

func (c constSplit) ByteSize() int64 { return int64(c) * 64 }

func wordPairs(elem any) ([]any, error) {
	return []any{values.KV{Key: elem.(string), Value: 1}}, nil
}

func sumInts(a, b any) (any, error) {
	return a.(int) + b.(int), nil
}

func sortByKey(it values.Iterable) values.Iterable {
	out := append(values.Iterable(nil), it...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].(values.KV).Key.(string) < out[j].(values.KV).Key.(string)
	})
	return out
}

func buildWordCount(t *testing.T) (graph.Node, values.KV, values.KV) {
	t.Helper()
	load := graph.NewLoad[string](lineSource{lines: []string{"a", "b", "a", "a", "b"}}, "load")
	pdo, err := graph.NewParallelDo(load, nil, graph.DoFunc(wordPairs), source.NamedSerde("kv"), "split")
	require.NoError(t, err)
	gbk, err := graph.NewGroupByKey(pdo, source.NamedSerde("group"), "gbk")
	require.NoError(t, err)
	combine, err := graph.NewCombine(gbk, graph.AssocFunc(sumInts), source.NamedSerde("kv"), "combine")
	require.NoError(t, err)
	return combine, values.KV{Key: "a", Value: 3}, values.KV{Key: "b", Value: 2}
}

func TestWordCountSemantics(t *testing.T) {
	root, a, b := buildWordCount(t)

	in := interp.New(context.Background())
	got, err := in.EvalArr(root)
	require.NoError(t, err)

	assert.Equal(t, values.Iterable{a, b}, sortByKey(got))
}

func TestOptimizationPreservesSemantics(t *testing.T) {
	root, _, _ := buildWordCount(t)

	before := interp.New(context.Background())
	wantArr, err := before.EvalArr(root)
	require.NoError(t, err)

	optimised, err := optimizer.NewEngine(optimizer.DefaultRules()).Optimize([]graph.Node{root})
	require.NoError(t, err)

	after := interp.New(context.Background())
	gotArr, err := after.EvalArr(optimised[0])
	require.NoError(t, err)

	if diff := cmp.Diff(sortByKey(wantArr), sortByKey(gotArr)); diff != "" {
		t.Fatalf("optimisation changed semantics (-want +got):\n%s", diff)
	}
}

func TestEmptyGroupIsSkippedNotZeroed(t *testing.T) {
	load := graph.NewLoad[string](lineSource{lines: []string{}}, "load")
	pdo, err := graph.NewParallelDo(load, nil, graph.DoFunc(wordPairs), source.NamedSerde("kv"), "split")
	require.NoError(t, err)
	gbk, err := graph.NewGroupByKey(pdo, source.NamedSerde("group"), "gbk")
	require.NoError(t, err)
	combine, err := graph.NewCombine(gbk, graph.AssocFunc(sumInts), source.NamedSerde("kv"), "combine")
	require.NoError(t, err)

	in := interp.New(context.Background())
	// The shuffle's output is seeded with one key whose group is empty.
	in.Seed(gbk.ID(), values.Iterable{values.Group{Key: "a", Values: values.Iterable{}}})
	got, err := in.EvalArr(combine)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFlattenConcatenatesInOrder(t *testing.T) {
	l1 := graph.NewLoad[string](lineSource{lines: []string{"a"}}, "l1")
	l2 := graph.NewLoad[string](lineSource{lines: []string{"b"}}, "l2")
	flat, err := graph.NewFlatten([]graph.Node{l1, l2}, source.NamedSerde("string"), "flat")
	require.NoError(t, err)

	in := interp.New(context.Background())
	got, err := in.EvalArr(flat)
	require.NoError(t, err)
	assert.Equal(t, values.Iterable{"a", "b"}, got)
}

func TestEnvironmentIsVisibleToParallelDo(t *testing.T) {
	load := graph.NewLoad[string](lineSource{lines: []string{"a", "b"}}, "load")
	env := graph.NewReturn(10, source.NamedSerde("int"), "env")

	withEnv := doFnWithEnv{}
	pdo, err := graph.NewParallelDo(load, env, withEnv, source.NamedSerde("kv"), "pdo")
	require.NoError(t, err)

	in := interp.New(context.Background())
	got, err := in.EvalArr(pdo)
	require.NoError(t, err)
	assert.Equal(t, values.Iterable{10, 10}, got)
}

type doFnWithEnv struct{}

func (doFnWithEnv) Setup(context.Context) error { return nil }

func (doFnWithEnv) Process(ctx context.Context, _ any, emit func(any) error) error {
	env, _ := graph.EnvFromContext(ctx)
	return emit(env)
}

func (doFnWithEnv) Cleanup(context.Context, func(any) error) error { return nil }
