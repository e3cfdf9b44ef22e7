package bufferpool

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagedb/engine/internal/storage"
)

func newTestPool(t *testing.T, poolSize int) (*Pool, *storage.Pager) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heap.db")
	pager, err := storage.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pager.Close() })

	pool, err := New(pager, poolSize)
	require.NoError(t, err)
	return pool, pager
}

func TestPool_FetchPage_MissZeroFillsAndPins(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	frame, err := pool.FetchPage(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), frame.PageID)
	require.Equal(t, int32(1), frame.Pin.Get())
	require.False(t, frame.Dirty)
}

func TestPool_FetchPage_HitIncrementsPin(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	f1, err := pool.FetchPage(0)
	require.NoError(t, err)
	f2, err := pool.FetchPage(0)
	require.NoError(t, err)

	require.Same(t, f1, f2)
	require.Equal(t, int32(2), f1.Pin.Get())
}

func TestPool_UnpinPage_UnknownPageReturnsFalse(t *testing.T) {
	pool, _ := newTestPool(t, 4)
	require.False(t, pool.UnpinPage(7, false))
}

func TestPool_UnpinPage_DoubleUnpinReturnsFalse(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	_, err := pool.FetchPage(0)
	require.NoError(t, err)

	require.True(t, pool.UnpinPage(0, false))
	require.False(t, pool.UnpinPage(0, false))
}

func TestPool_Exhaustion_AllFramesPinned(t *testing.T) {
	pool, _ := newTestPool(t, 2)

	_, err := pool.FetchPage(0)
	require.NoError(t, err)
	_, err = pool.FetchPage(1)
	require.NoError(t, err)

	_, err = pool.FetchPage(2)
	require.ErrorIs(t, err, ErrNoFreeFrame)
}

func TestPool_Eviction_WritesBackDirtyVictim(t *testing.T) {
	pool, pager := newTestPool(t, 1)

	frame, err := pool.FetchPage(0)
	require.NoError(t, err)
	frame.Lock()
	frame.Page.Init(0, storage.NoPrevPage)
	_, ierr := frame.Page.InsertTuple([]byte("hello"))
	require.NoError(t, ierr)
	frame.Unlock()
	require.True(t, pool.UnpinPage(0, true))

	// Fetching a new page forces eviction of the only frame, which must
	// flush page 0 before it can be reused.
	_, err = pool.FetchPage(1)
	require.NoError(t, err)
	require.True(t, pool.UnpinPage(1, false))

	onDisk, err := pager.ReadPage(0)
	require.NoError(t, err)
	require.Equal(t, 1, onDisk.SlotCount())
	tuple, err := onDisk.ReadTuple(0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(tuple))
}

func TestPool_FlushPage_ClearsDirtyOnSuccess(t *testing.T) {
	pool, pager := newTestPool(t, 2)

	frame, err := pool.FetchPage(0)
	require.NoError(t, err)
	frame.Lock()
	frame.Page.Init(0, storage.NoPrevPage)
	frame.Unlock()
	require.True(t, pool.UnpinPage(0, true))

	require.NoError(t, pool.FlushPage(0))
	require.False(t, frame.Dirty)

	onDisk, err := pager.ReadPage(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), onDisk.PageID())
}

func TestPool_ConcurrentFetchUnpinSamePage(t *testing.T) {
	pool, _ := newTestPool(t, 4)

	const iterations = 2000
	var wg sync.WaitGroup
	wg.Add(2)

	worker := func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			frame, err := pool.FetchPage(0)
			require.NoError(t, err)
			require.True(t, pool.UnpinPage(frame.PageID, false))
		}
	}

	go worker()
	go worker()
	wg.Wait()

	frame, err := pool.FetchPage(0)
	require.NoError(t, err)
	require.Equal(t, int32(1), frame.Pin.Get())
	require.True(t, pool.UnpinPage(0, false))
}
