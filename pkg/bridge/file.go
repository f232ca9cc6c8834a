package bridge

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weih201/scoobi/pkg/config"
	"github.com/weih201/scoobi/pkg/values"
)

// FileBridge persists its contents under <workingdir>/bridges/<id>.gob, the
// bridge implementation used by the Local runtime: a marker file lets
// HasBeenFilled recognise output left over from a previous, interrupted
// run without reading the whole payload back in.
type FileBridge struct {
	id string
}

// NewFileBridge returns a FileBridge identified by id.
func NewFileBridge(id string) *FileBridge {
	return &FileBridge{id: id}
}

func (b *FileBridge) ID() string { return b.id }

func (b *FileBridge) path(cfg *config.Config) string {
	return filepath.Join(cfg.WorkingDir(), "bridges", b.id+".gob")
}

func (b *FileBridge) donePath(cfg *config.Config) string {
	return b.path(cfg) + ".done"
}

func (b *FileBridge) HasBeenFilled(cfg *config.Config) (bool, error) {
	_, err := os.Stat(b.donePath(cfg))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bridge: stat %s: %w", b.id, err)
	}
	return true, nil
}

func (b *FileBridge) ReadAsIterable(_ context.Context, cfg *config.Config) (values.Iterable, error) {
	f, err := os.Open(b.path(cfg))
	if err != nil {
		return nil, fmt.Errorf("bridge: open %s: %w", b.id, err)
	}
	defer f.Close()

	var data values.Iterable
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("bridge: decode %s: %w", b.id, err)
	}
	return data, nil
}

func (b *FileBridge) Write(_ context.Context, cfg *config.Config, data values.Iterable) error {
	dir := filepath.Dir(b.path(cfg))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bridge: mkdir %s: %w", b.id, err)
	}

	f, err := os.Create(b.path(cfg))
	if err != nil {
		return fmt.Errorf("bridge: create %s: %w", b.id, err)
	}
	if err := gob.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		return fmt.Errorf("bridge: encode %s: %w", b.id, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("bridge: close %s: %w", b.id, err)
	}

	if err := os.WriteFile(b.donePath(cfg), nil, 0o644); err != nil {
		return fmt.Errorf("bridge: mark done %s: %w", b.id, err)
	}
	return nil
}
