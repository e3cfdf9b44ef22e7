package heap

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagedb/engine/internal/bufferpool"
	"github.com/pagedb/engine/internal/storage"
)

func TestIterator_ScansAllTuplesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.db")
	pager, err := storage.Open(path)
	require.NoError(t, err)
	defer pager.Close()

	// A small pool forces frequent eviction while tuples are still
	// being inserted and later scanned.
	pool, err := bufferpool.New(pager, 3)
	require.NoError(t, err)

	table, err := Open(pool, pager)
	require.NoError(t, err)

	const n = 1000
	for i := 0; i < n; i++ {
		_, err := table.Insert([]byte(fmt.Sprintf("Tuple #%d", i)))
		require.NoError(t, err)
	}

	it, err := NewIterator(table)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		tuple, _, ok, err := it.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("Tuple #%d", i), string(tuple))
	}

	_, _, ok, err := it.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIterator_EmptyHeapYieldsNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.db")
	pager, err := storage.Open(path)
	require.NoError(t, err)
	defer pager.Close()

	pool, err := bufferpool.New(pager, 2)
	require.NoError(t, err)
	table, err := Open(pool, pager)
	require.NoError(t, err)

	it, err := NewIterator(table)
	require.NoError(t, err)

	_, _, ok, err := it.Next()
	require.NoError(t, err)
	require.False(t, ok)
}
