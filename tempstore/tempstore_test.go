package tempstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lineforge/extsort/internal/xlog"
	"github.com/lineforge/extsort/tempstore"
	"github.com/stretchr/testify/require"
)

func TestChunkAndMergePathNaming(t *testing.T) {
	dir := t.TempDir()
	reg, err := tempstore.New(dir, xlog.Discard())
	require.NoError(t, err)
	defer reg.Dispose()

	require.Equal(t, filepath.Join(dir, "chunk_000000"), reg.ChunkPath())
	require.Equal(t, filepath.Join(dir, "chunk_000001"), reg.ChunkPath())
	require.Equal(t, filepath.Join(dir, "merge_p1_i000000"), reg.MergePath(1, 0))
}

func TestDisposeRemovesCreatedFilesButNotCallerDir(t *testing.T) {
	dir := t.TempDir()
	reg, err := tempstore.New(dir, xlog.Discard())
	require.NoError(t, err)

	p := reg.ChunkPath()
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	reg.Dispose()

	_, err = os.Stat(p)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(dir)
	require.NoError(t, err, "caller-supplied directory must survive disposal")
}

func TestDisposeRemovesOwnedDirectory(t *testing.T) {
	reg, err := tempstore.New("", xlog.Discard())
	require.NoError(t, err)
	dir := reg.Dir()

	reg.Dispose()

	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}

func TestSecondRegistryCannotShareLockedDirectory(t *testing.T) {
	dir := t.TempDir()
	reg, err := tempstore.New(dir, xlog.Discard())
	require.NoError(t, err)
	defer reg.Dispose()

	_, err = tempstore.New(dir, xlog.Discard())
	require.Error(t, err)
}
