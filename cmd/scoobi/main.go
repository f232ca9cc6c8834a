/*
Copyright 2022 The l7mp/stunner team.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command scoobi runs a small word-count pipeline through the planner
// core, a demonstration of the same optimise/partition/execute path a real
// application drives through pkg/executor directly.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/weih201/scoobi/internal/buildinfo"
	"github.com/weih201/scoobi/pkg/config"
	"github.com/weih201/scoobi/pkg/executor"
	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/interp"
	"github.com/weih201/scoobi/pkg/mscr"
	"github.com/weih201/scoobi/pkg/runtime/inmemory"
	"github.com/weih201/scoobi/pkg/runtime/local"
	"github.com/weih201/scoobi/pkg/scoobilog"
	"github.com/weih201/scoobi/pkg/source"
	"github.com/weih201/scoobi/pkg/values"
	"github.com/weih201/scoobi/pkg/visualize"
)

var (
	version    = "dev"
	commitHash = "n/a"
	buildDate  = "<unknown>"
)

func main() {
	cfg := config.New()
	cfg.BindFlags(flag.CommandLine)
	inputPath := flag.String("input", "", "path to a text file to word-count; a small built-in sample is used when empty")
	dotPath := flag.String("visualize-dot", "", "write the run's MSCR plan as a Graphviz DOT file to this path instead of executing it")
	development := flag.Bool("development", true, "use a human-readable console log encoder instead of JSON")
	flag.Parse()

	log := scoobilog.New(scoobilog.Options{Development: *development})

	info := buildinfo.BuildInfo{Version: version, CommitHash: commitHash, BuildDate: buildDate}
	log.Info(fmt.Sprintf("starting scoobi %s", info.String()))

	lines, err := readLines(*inputPath)
	if err != nil {
		log.Error(err, "unable to read input")
		os.Exit(1)
	}

	root := buildWordCount(lines)

	if *dotPath != "" {
		if err := writeDotPlan([]graph.Node{root}, *dotPath); err != nil {
			log.Error(err, "unable to write visualization")
			os.Exit(1)
		}
		log.Info("wrote MSCR plan", "path", *dotPath)
		return
	}

	ctx := context.Background()
	query, err := graph.NewMaterialise(root, root.Serde(), "final-counts")
	if err != nil {
		log.Error(err, "unable to build materialise query")
		os.Exit(1)
	}

	switch cfg.Mode() {
	case config.InMemory:
		exec := executor.New(inmemory.New(interp.New(ctx)), cfg, log)
		result, err := exec.Execute(ctx, query, "")
		if err != nil {
			log.Error(err, "run failed")
			os.Exit(1)
		}
		printCounts(result.(values.Iterable))

	case config.Local:
		exec := executor.New(local.New(cfg), cfg, log)
		result, err := exec.Execute(ctx, query, "")
		if err != nil {
			log.Error(err, "run failed")
			os.Exit(1)
		}
		printCounts(result.(values.Iterable))

	case config.Cluster:
		log.Info("cluster mode requires a pkg/runtime/cluster.Submitter for the target batch framework; none is wired into this command")
		os.Exit(1)

	default:
		log.Info("unrecognised execution mode", "mode", cfg.Mode())
		os.Exit(1)
	}
}

func readLines(path string) ([]string, error) {
	if path == "" {
		return []string{
			"the quick brown fox jumps over the lazy dog",
			"the dog barks at the fox",
		}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func printCounts(result values.Iterable) {
	for _, elem := range result {
		kv := elem.(values.KV)
		fmt.Printf("%v\t%v\n", kv.Key, kv.Value)
	}
}

type lineSource struct{ lines []string }

func (s lineSource) InputSplits(context.Context) ([]source.Split, error) {
	return []source.Split{lineSplit(len(s.lines))}, nil
}

func (s lineSource) Reader(context.Context, source.Split) (source.Iterator[string], error) {
	return source.NewSliceIterator(s.lines), nil
}

func (s lineSource) Serde() source.Serde { return source.NamedSerde("line") }

type lineSplit int

func (l lineSplit) ByteSize() int64 { return int64(l) * 64 }

// buildWordCount assembles the canonical word-count graph: split each line
// into (word, 1) pairs, group by word, and sum the counts per key.
func buildWordCount(lines []string) graph.Node {
	load := graph.NewLoad[string](lineSource{lines: lines}, "lines")

	splitWords := graph.DoFunc(func(e any) ([]any, error) {
		fields := strings.Fields(e.(string))
		out := make([]any, 0, len(fields))
		for _, w := range fields {
			out = append(out, values.KV{Key: strings.ToLower(w), Value: 1})
		}
		return out, nil
	})
	pdo, err := graph.NewParallelDo(load, nil, splitWords, source.NamedSerde("kv"), "split-words")
	if err != nil {
		panic(err)
	}

	gbk, err := graph.NewGroupByKey(pdo, source.NamedSerde("group"), "group-by-word")
	if err != nil {
		panic(err)
	}

	sumCounts := graph.AssocFunc(func(a, b any) (any, error) {
		return a.(int) + b.(int), nil
	})
	combine, err := graph.NewCombine(gbk, sumCounts, source.NamedSerde("kv"), "sum-counts")
	if err != nil {
		panic(err)
	}

	return combine
}

func writeDotPlan(roots []graph.Node, path string) error {
	layers, err := mscr.Build(roots)
	if err != nil {
		return err
	}
	g := visualize.BuildGraph("scoobi word count", layers)
	dotSource := (&visualize.DotGenerator{}).Generate(g)
	return os.WriteFile(path, []byte(dotSource), 0o644)
}
