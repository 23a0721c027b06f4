package statsarchive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pktsched/pktsched/pkg/compression"
)

func TestArchiver_ArchiveFetch(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalStorage(dir)
	require.NoError(t, err)

	archiver := NewArchiver(backend, compression.NewGzipCompressor(compression.LevelFastest))

	snap := Snapshot{
		TreeName: "edge-router",
		Sequence: 7,
		TSC:      123456,
		Nodes: []NodeStatsSnapshot{
			{Name: "leaf-a", Policy: "leaf", Blocked: false, Usage: [4]uint64{1, 2, 3, 4}},
		},
	}

	ctx := context.Background()
	require.NoError(t, archiver.Archive(ctx, snap))

	got, err := archiver.Fetch(ctx, "edge-router", 7)
	require.NoError(t, err)
	assert.Equal(t, snap.TreeName, got.TreeName)
	assert.Equal(t, snap.Sequence, got.Sequence)
	assert.Equal(t, snap.Nodes, got.Nodes)
}

func TestArchiver_NilCompressorDefaultsToNoOp(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalStorage(dir)
	require.NoError(t, err)

	archiver := NewArchiver(backend, nil)
	ctx := context.Background()
	require.NoError(t, archiver.Archive(ctx, Snapshot{TreeName: "t", Sequence: 1}))

	got, err := archiver.Fetch(ctx, "t", 1)
	require.NoError(t, err)
	assert.Equal(t, "t", got.TreeName)
}
