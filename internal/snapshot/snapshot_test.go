package snapshot_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/snapshot"
)

func openStore(t *testing.T) *snapshot.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	store, err := snapshot.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadRoundTrips(t *testing.T) {
	store := openStore(t)

	globalsIn := map[string]string{"x": "1", "greeting": "hi"}
	chunksIn := map[string]string{"main": "[]"}
	require.NoError(t, store.Save("demo", globalsIn, chunksIn))

	var globalsOut map[string]string
	var chunksOut map[string]string
	require.NoError(t, store.Load("demo", &globalsOut, &chunksOut))

	assert.Equal(t, globalsIn, globalsOut)
	assert.Equal(t, chunksIn, chunksOut)
}

func TestSaveOverwritesSameName(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Save("demo", map[string]string{"x": "1"}, map[string]string{}))
	require.NoError(t, store.Save("demo", map[string]string{"x": "2"}, map[string]string{}))

	var globals map[string]string
	var chunks map[string]string
	require.NoError(t, store.Load("demo", &globals, &chunks))
	assert.Equal(t, "2", globals["x"])

	names, err := store.List()
	require.NoError(t, err)
	assert.Len(t, names, 1, "overwriting an existing name must not create a second row")
}

func TestLoadUnknownNameErrors(t *testing.T) {
	store := openStore(t)
	var globals, chunks map[string]string
	err := store.Load("missing", &globals, &chunks)
	assert.Error(t, err)
}

func TestListReturnsAllSnapshotNames(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Save("a", map[string]string{}, map[string]string{}))
	require.NoError(t, store.Save("b", map[string]string{}, map[string]string{}))

	names, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestDeleteRemovesSnapshot(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Save("a", map[string]string{}, map[string]string{}))
	require.NoError(t, store.Delete("a"))

	var globals, chunks map[string]string
	err := store.Load("a", &globals, &chunks)
	assert.Error(t, err)
}
