package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableInsertGetDelete(t *testing.T) {
	tbl := NewTable[string](0)
	h := tbl.Insert("first")
	require.Equal(t, 1, tbl.Len())

	got := tbl.Get(h)
	require.NotNil(t, got)
	require.Equal(t, "first", *got)

	require.True(t, tbl.Delete(h))
	require.Equal(t, 0, tbl.Len())
	require.Nil(t, tbl.Get(h))
}

func TestTableStaleHandleIsSilentNoOp(t *testing.T) {
	tbl := NewTable[int](0)
	h := tbl.Insert(1)
	require.True(t, tbl.Delete(h))
	require.False(t, tbl.Delete(h), "deleting an already-deleted handle must be a no-op, not a panic")

	h2 := tbl.Insert(2)
	require.Equal(t, h.Index, h2.Index, "freed slot is reused")
	require.NotEqual(t, h.Version, h2.Version, "reused slot gets a new version")
	require.Nil(t, tbl.Get(h), "the stale handle to the old occupant must not resolve to the new occupant")
}

func TestTableRange(t *testing.T) {
	tbl := NewTable[int](0)
	tbl.Insert(10)
	h2 := tbl.Insert(20)
	tbl.Insert(30)
	tbl.Delete(h2)

	seen := map[int]bool{}
	tbl.Range(func(h Handle, v *int) bool {
		seen[*v] = true
		return true
	})
	require.Equal(t, map[int]bool{10: true, 30: true}, seen)
}
