package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/propgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behavior every CollapseStore shares.
func exerciseStore(t *testing.T, store propgrid.CollapseStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "view")
	require.Error(t, err)
	assert.True(t, propgrid.IsNotFoundError(err))

	first, err := store.Save(ctx, "view", propgrid.NewCollapsedNames("b", "a"))
	require.NoError(t, err)
	assert.Equal(t, "view", first.Key)

	loaded, err := store.Load(ctx, "view")
	require.NoError(t, err)
	assert.Equal(t, first.ID, loaded.ID)
	assert.Equal(t, []string{"a", "b"}, loaded.Names.Names())

	second, err := store.Save(ctx, "view", propgrid.NewCollapsedNames("c"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	loaded, err = store.Load(ctx, "view")
	require.NoError(t, err)
	assert.Equal(t, second.ID, loaded.ID)
	assert.Equal(t, []string{"c"}, loaded.Names.Names())

	_, err = store.Save(ctx, "other", propgrid.NewCollapsedNames())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "view"))
	require.NoError(t, store.Delete(ctx, "view"))
	_, err = store.Load(ctx, "view")
	assert.True(t, propgrid.IsNotFoundError(err))

	other, err := store.Load(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Names.Len())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)

	// loaded names are copies
	ctx := context.Background()
	_, err := store.Save(ctx, "k", propgrid.NewCollapsedNames("a"))
	require.NoError(t, err)
	snap, err := store.Load(ctx, "k")
	require.NoError(t, err)
	snap.Names.Add("b")
	again, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Names.Names())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "views.json")
	exerciseStore(t, NewFileStore(path))

	// a second store over the same file sees the saved state
	snap, err := NewFileStore(path).Load(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, "other", snap.Key)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background(), "view")
	require.Error(t, err)
	assert.True(t, propgrid.IsStorageError(err))
}
