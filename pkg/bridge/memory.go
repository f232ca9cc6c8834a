package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/weih201/scoobi/pkg/config"
	"github.com/weih201/scoobi/pkg/values"
)

// MemoryBridge holds its contents in a process-local slice (spec.md §4.9,
// Open Question 1): no shuffle files, no cross-process visibility, content
// only ever filled and read within one process. The InMemory runtime does
// not use bridges; job.Adapter assigns none in that mode.
type MemoryBridge struct {
	id string

	mu     sync.Mutex
	filled bool
	data   values.Iterable
}

// NewMemoryBridge returns a MemoryBridge identified by id.
func NewMemoryBridge(id string) *MemoryBridge {
	return &MemoryBridge{id: id}
}

func (b *MemoryBridge) ID() string { return b.id }

func (b *MemoryBridge) HasBeenFilled(*config.Config) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filled, nil
}

func (b *MemoryBridge) ReadAsIterable(_ context.Context, _ *config.Config) (values.Iterable, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.filled {
		return nil, fmt.Errorf("bridge: %s has not been filled", b.id)
	}
	return b.data, nil
}

func (b *MemoryBridge) Write(_ context.Context, _ *config.Config, data values.Iterable) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data
	b.filled = true
	return nil
}
