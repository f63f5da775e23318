package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/parley/interview"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	doc := checkpointDoc(t)
	doc.Values["headcount"] = &interview.FieldValue{Raw: "twelve"}
	env, err := Capture(doc, sampleHistory())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, doc.ID, env))

	loaded, ok, err := store.Load(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	restored, history, err := loaded.Restore()
	require.NoError(t, err)
	assert.Equal(t, "twelve", restored.Value("headcount").Raw)
	assert.Len(t, history, 3)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, ids)

	require.NoError(t, store.Delete(ctx, doc.ID))
	_, ok, err = store.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing checkpoint is not an error.
	require.NoError(t, store.Delete(ctx, doc.ID))
}

func TestFileStoreMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := store.Load(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	env, err := Capture(checkpointDoc(t), nil)
	require.NoError(t, err)

	for _, id := range []string{"", "a/b", `a\b`, "..", "up..dir"} {
		assert.Error(t, store.Save(ctx, id, env), "id %q", id)
		_, _, loadErr := store.Load(ctx, id)
		assert.Error(t, loadErr, "id %q", id)
	}
}

func TestFileStoreOverwritesAtomically(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	doc := checkpointDoc(t)
	env, err := Capture(doc, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, doc.ID, env))

	doc.Values["headcount"] = &interview.FieldValue{Raw: "twelve"}
	env, err = Capture(doc, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, doc.ID, env))

	loaded, ok, err := store.Load(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	restored, _, err := loaded.Restore()
	require.NoError(t, err)
	assert.Equal(t, "twelve", restored.Value("headcount").Raw)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, doc.ID+".json", filepath.Base(entries[0].Name()))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	env, err := Capture(checkpointDoc(t), nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "one", env))

	_, ok, err := store.Load(ctx, "two")
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, ok, err := store.Load(ctx, "one")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, env.ID, loaded.ID)

	require.NoError(t, store.Delete(ctx, "one"))
	_, ok, err = store.Load(ctx, "one")
	require.NoError(t, err)
	assert.False(t, ok)
}
