// Package job adapts one MSCR into a concrete unit of submitted work: a
// Spec naming its inputs, output, and reducer count, and a Runtime
// interface the executor drives without knowing which backend (in-memory,
// local filesystem-backed, or an external cluster) actually runs it.
package job

import (
	"path/filepath"
	"strconv"

	"github.com/weih201/scoobi/pkg/attr"
	"github.com/weih201/scoobi/pkg/bridge"
	"github.com/weih201/scoobi/pkg/config"
	"github.com/weih201/scoobi/pkg/graph"
	"github.com/weih201/scoobi/pkg/mscr"
)

// BoundaryInput identifies a node whose value a Runtime should read back
// from a Bridge instead of recomputing, because it is the Result of an
// MSCR from an earlier layer.
type BoundaryInput struct {
	NodeID graph.ID
	Bridge bridge.Bridge
}

// Spec is everything a Runtime needs to execute one MSCR.
type Spec struct {
	// ID names the job, encoding the run, layer, and MSCR it belongs to
	// for log correlation (spec.md §4.6).
	ID string

	// MSCR is the unit of work this Spec was adapted from.
	MSCR *mscr.MSCR

	// OutputDir is the temporary directory this job's output is written
	// under before being committed to a Bridge.
	OutputDir string

	// ReducerCount is the reducer parallelism computed for this job's
	// shuffle, meaningless for a map-only MSCR.
	ReducerCount int

	// Inputs are the upstream MSCR results this job depends on, read
	// back from a Bridge rather than recomputed. Empty in config.InMemory
	// mode, where a shared interpreter cache plays this role instead.
	Inputs []BoundaryInput

	// OutputBridge is where this job's result is written once it
	// completes, read back by any downstream MSCR in a later layer. Nil
	// when running in config.InMemory mode, where results never leave
	// process memory.
	OutputBridge bridge.Bridge

	// Config is this job's own clone of the run's configuration (spec.md
	// §5: "Configuration objects handed to concurrently executing jobs are
	// per-job clones; no sharing"). A Runtime reads WorkingDir and other
	// tuning values off this rather than a config shared with its
	// siblings, so nothing dispatched concurrently within a layer holds a
	// pointer another goroutine could mutate.
	Config *config.Config
}

// Adapter turns MSCRs into Specs, threading run-wide identity and
// configuration into every job name and reducer-count decision. It must
// see every MSCR of a run in layer order: Adapt records each job's output
// bridge against its Result node id so a later layer's Adapt call can
// wire it back in as a BoundaryInput.
type Adapter struct {
	runID string
	cfg   *config.Config
	reg   *bridge.Registry
	attrs *attr.Attributes

	resultBridges map[graph.ID]bridge.Bridge
}

// NewAdapter returns an Adapter for one planner run identified by runID,
// resolving boundary dependencies against attrs (built over the same
// optimised graph mscr.Build partitioned).
func NewAdapter(runID string, cfg *config.Config, reg *bridge.Registry, attrs *attr.Attributes) *Adapter {
	return &Adapter{
		runID:         runID,
		cfg:           cfg,
		reg:           reg,
		attrs:         attrs,
		resultBridges: make(map[graph.ID]bridge.Bridge),
	}
}

// Adapt builds the Spec for m within layer layerIdx. inputBytes is the
// caller's best estimate of m's total mapper input size (the sum of its
// upstream Load splits' ByteSize, or a prior layer's output size), used
// only by the reducer-count heuristic; -1 means unknown.
func (a *Adapter) Adapt(layerIdx int, m *mscr.MSCR, inputBytes int64) *Spec {
	id := a.runID + "-layer" + strconv.Itoa(layerIdx) + "-" + m.ID

	var outBridge bridge.Bridge
	if a.cfg.Mode() != config.InMemory {
		b := bridge.NewFileBridge(id)
		a.reg.Register(b)
		outBridge = b
	}

	var inputs []BoundaryInput
	for _, anc := range a.attrs.ReachableInputs(m.Mapper) {
		if b, ok := a.resultBridges[anc.ID()]; ok {
			inputs = append(inputs, BoundaryInput{NodeID: anc.ID(), Bridge: b})
		}
	}

	spec := &Spec{
		ID:           id,
		MSCR:         m,
		OutputDir:    filepath.Join(a.cfg.WorkingDir(), "tmp-out-"+id),
		ReducerCount: ReducerCount(a.cfg, inputBytes),
		Inputs:       inputs,
		OutputBridge: outBridge,
		Config:       a.cfg.Clone(),
	}

	if outBridge != nil {
		a.resultBridges[m.Result.ID()] = outBridge
	}
	return spec
}

// ResultBridge returns the bridge id's owning MSCR wrote its result to, if
// any Adapt call in this run has recorded one. Used by the executor to
// read a Materialise target's value back once its layers have finished,
// in any mode where results live in a Bridge rather than a shared
// interpreter.
func (a *Adapter) ResultBridge(id graph.ID) (bridge.Bridge, bool) {
	b, ok := a.resultBridges[id]
	return b, ok
}

// ReducerCount implements the heuristic of spec.md §4.6:
// max(minReducers, min(maxReducers, ceil(inputBytes/bytesPerReducer))).
// A non-positive inputBytes (size unknown) falls back to minReducers.
func ReducerCount(cfg *config.Config, inputBytes int64) int {
	if inputBytes <= 0 {
		return cfg.MinReducers()
	}
	bpr := cfg.BytesPerReducer()
	if bpr <= 0 {
		bpr = 1
	}
	n := int((inputBytes + bpr - 1) / bpr)
	if n < cfg.MinReducers() {
		n = cfg.MinReducers()
	}
	if n > cfg.MaxReducers() {
		n = cfg.MaxReducers()
	}
	return n
}
