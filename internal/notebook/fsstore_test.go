package notebook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	doc := NewDocument().AppendCell(CellCode)
	doc, err = doc.ReplaceCellSource(1, "print('hi')")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "analysis.ipynb", doc))

	got, err := store.Get(ctx, "analysis.ipynb")
	require.NoError(t, err)
	require.Equal(t, doc.CellCount(), got.CellCount())

	cell, err := got.CellAt(1)
	require.NoError(t, err)
	require.Equal(t, "print('hi')", cell.Source)
}

func TestDirStoreGetMissing(t *testing.T) {
	t.Parallel()

	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope.ipynb")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDirStoreListSorted(t *testing.T) {
	t.Parallel()

	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, path := range []string{"b.ipynb", "a.ipynb", "sub/c.ipynb"} {
		require.NoError(t, store.Save(ctx, path, NewDocument()))
	}

	items, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.ipynb", "b.ipynb", "sub/c.ipynb"}, items)
}

func TestDirStoreForcesExtension(t *testing.T) {
	t.Parallel()

	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "scratch", NewDocument()))

	items, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"scratch.ipynb"}, items)

	_, err = store.Get(ctx, "scratch")
	require.NoError(t, err)
}

func TestDirStoreRejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, path := range []string{"../outside.ipynb", "a/../../outside.ipynb", "  ", ""} {
		_, err := store.Get(ctx, path)
		require.ErrorIs(t, err, ErrInvalidPath, "path %q", path)
		require.ErrorIs(t, store.Save(ctx, path, NewDocument()), ErrInvalidPath, "path %q", path)
	}
}
