package bridge_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weih201/scoobi/pkg/bridge"
	"github.com/weih201/scoobi/pkg/config"
	"github.com/weih201/scoobi/pkg/values"
)

func TestMemoryBridgeRoundTrip(t *testing.T) {
	cfg := config.New()
	b := bridge.NewMemoryBridge("b1")

	filled, err := b.HasBeenFilled(cfg)
	require.NoError(t, err)
	assert.False(t, filled)

	err = b.Write(context.Background(), cfg, values.Iterable{1, 2, 3})
	require.NoError(t, err)

	filled, err = b.HasBeenFilled(cfg)
	require.NoError(t, err)
	assert.True(t, filled)

	data, err := b.ReadAsIterable(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, values.Iterable{1, 2, 3}, data)
}

func TestFileBridgeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	cfg.Set(config.KeyWorkingDir, dir)

	b := bridge.NewFileBridge("layer0-mscr0")

	filled, err := b.HasBeenFilled(cfg)
	require.NoError(t, err)
	assert.False(t, filled)

	err = b.Write(context.Background(), cfg, values.Iterable{"a", "b"})
	require.NoError(t, err)

	filled, err = b.HasBeenFilled(cfg)
	require.NoError(t, err)
	assert.True(t, filled)

	data, err := b.ReadAsIterable(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, values.Iterable{"a", "b"}, data)

	_, err = os.Stat(filepath.Join(dir, "bridges", "layer0-mscr0.gob"))
	require.NoError(t, err)
}

func TestFileBridgeRoundTripsKVAndGroupElements(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	cfg.Set(config.KeyWorkingDir, dir)

	b := bridge.NewFileBridge("layer0-mscr1")

	in := values.Iterable{
		values.KV{Key: "a", Value: 1},
		values.Group{Key: "a", Values: values.Iterable{1, 2}},
	}
	err := b.Write(context.Background(), cfg, in)
	require.NoError(t, err)

	got, err := b.ReadAsIterable(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestRegistryTracksFilled(t *testing.T) {
	reg := bridge.NewRegistry()
	b := bridge.NewMemoryBridge("b1")
	reg.Register(b)

	got, ok := reg.Lookup("b1")
	require.True(t, ok)
	assert.Same(t, b, got)

	assert.False(t, reg.IsFilled("b1"))
	reg.MarkFilled("b1")
	assert.True(t, reg.IsFilled("b1"))

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}
