// Package config implements the scoobi.* tuning surface of the planner
// core: execution mode, working directory, concurrency switch, and the
// reducer-count heuristic bounds. Values are held as a flat string map,
// the way the teacher's own CLI driver keeps its tuning knobs in a flag.FlagSet
// rather than reaching for a config-file library — see DESIGN.md for why no
// third-party loader is used here.
package config

import (
	"flag"
	"fmt"
	"math"
	"strconv"
)

// Mode selects the execution backend a job.Adapter submits MSCRs to.
type Mode string

const (
	// InMemory executes MSCRs in-process over host-memory iterables.
	InMemory Mode = "InMemory"
	// Local executes MSCRs against the local filesystem, each job with a
	// fresh reference interpreter of its own.
	Local Mode = "Local"
	// Cluster hands MSCRs to an external batch-runtime submitter.
	Cluster Mode = "Cluster"
)

// Recognised configuration keys, matching spec.md §6 verbatim.
const (
	KeyMode            = "scoobi.mode"
	KeyWorkingDir      = "scoobi.workingdir"
	KeyConcurrentJobs  = "scoobi.concurrentJobs"
	KeyReducersMax     = "scoobi.reducers.max"
	KeyReducersMin     = "scoobi.reducers.min"
	KeyBytesPerReducer = "scoobi.reducers.bytesperreducer"
	KeyUploadedLibJars = "scoobi.uploadedlibjars"
)

const (
	defaultWorkingDir      = "/tmp/scoobi"
	defaultReducersMin     = 1
	defaultBytesPerReducer = 1 << 30 // 1 GiB
)

// Config is a key-value map of tuning parameters, as described in
// spec.md §6. The zero value is not usable; construct one with New.
type Config struct {
	values map[string]string
}

// New returns a Config with every recognised key set to its documented
// default.
func New() *Config {
	c := &Config{values: make(map[string]string)}
	c.values[KeyMode] = string(Local)
	c.values[KeyWorkingDir] = defaultWorkingDir
	c.values[KeyConcurrentJobs] = "true"
	c.values[KeyReducersMax] = strconv.Itoa(math.MaxInt32)
	c.values[KeyReducersMin] = strconv.Itoa(defaultReducersMin)
	c.values[KeyBytesPerReducer] = strconv.FormatInt(defaultBytesPerReducer, 10)
	return c
}

// BindFlags registers one flag per recognised key on fs, defaulting each to
// c's current value, mirroring the way the teacher's main.go binds its own
// zap.Options onto flag.CommandLine before calling flag.Parse.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	bind := func(name, key, usage string) {
		fs.Func(name, fmt.Sprintf("%s (default %q)", usage, c.values[key]), func(v string) error {
			c.values[key] = v
			return nil
		})
	}
	bind("mode", KeyMode, "execution backend: InMemory, Local, or Cluster")
	bind("workingdir", KeyWorkingDir, "base directory for temporary outputs")
	bind("concurrent-jobs", KeyConcurrentJobs, "run independent MSCRs within a layer concurrently")
	bind("reducers-max", KeyReducersMax, "upper bound on reducer count")
	bind("reducers-min", KeyReducersMin, "lower bound on reducer count")
	bind("bytes-per-reducer", KeyBytesPerReducer, "target input bytes per reducer")
}

// Get returns the raw string value of key and whether it was set, the
// escape hatch for collaborator-only keys like scoobi.uploadedlibjars that
// the core never interprets itself.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set stores a raw string value for key.
func (c *Config) Set(key, value string) {
	c.values[key] = value
}

// Mode returns the configured execution backend.
func (c *Config) Mode() Mode {
	return Mode(c.values[KeyMode])
}

// WorkingDir returns the base directory for temporary outputs.
func (c *Config) WorkingDir() string {
	return c.values[KeyWorkingDir]
}

// ConcurrentJobs reports whether MSCRs within a layer should run in
// parallel.
func (c *Config) ConcurrentJobs() bool {
	return c.values[KeyConcurrentJobs] == "true"
}

// MaxReducers returns the configured upper reducer-count bound.
func (c *Config) MaxReducers() int {
	return c.mustInt(KeyReducersMax)
}

// MinReducers returns the configured lower reducer-count bound.
func (c *Config) MinReducers() int {
	return c.mustInt(KeyReducersMin)
}

// BytesPerReducer returns the target input bytes per reducer.
func (c *Config) BytesPerReducer() int64 {
	v, err := strconv.ParseInt(c.values[KeyBytesPerReducer], 10, 64)
	if err != nil {
		return defaultBytesPerReducer
	}
	return v
}

func (c *Config) mustInt(key string) int {
	v, err := strconv.Atoi(c.values[key])
	if err != nil {
		panic(fmt.Sprintf("config: invalid integer value for %s: %v", key, c.values[key]))
	}
	return v
}

// Clone returns an independent copy of c, used by the executor to hand
// each concurrently configured job its own configuration object (spec.md
// §4.6, §5: "Configuration objects handed to concurrently executing jobs
// are per-job clones; no sharing").
func (c *Config) Clone() *Config {
	values := make(map[string]string, len(c.values))
	for k, v := range c.values {
		values[k] = v
	}
	return &Config{values: values}
}
