package replacer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRU_VictimIsOldestUnpinned(t *testing.T) {
	r := New()
	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(3)

	id, ok := r.Victim()
	require.True(t, ok)
	require.Equal(t, 1, id)

	id, ok = r.Victim()
	require.True(t, ok)
	require.Equal(t, 2, id)
}

func TestLRU_PinRemovesFromEvictableSet(t *testing.T) {
	r := New()
	r.Unpin(1)
	r.Unpin(2)
	r.Pin(1)

	id, ok := r.Victim()
	require.True(t, ok)
	require.Equal(t, 2, id)

	_, ok = r.Victim()
	require.False(t, ok)
}

func TestLRU_UnpinIsIdempotent(t *testing.T) {
	r := New()
	r.Unpin(1)
	r.Unpin(1)
	require.Equal(t, 1, r.Len())
}

func TestLRU_PinNoopWhenAbsent(t *testing.T) {
	r := New()
	r.Pin(42)
	require.Equal(t, 0, r.Len())
}

func TestLRU_VictimOnEmpty(t *testing.T) {
	r := New()
	_, ok := r.Victim()
	require.False(t, ok)
}
