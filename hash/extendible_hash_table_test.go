package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intHash(k int) uint64 { return uint64(k) }

func TestExtendibleHashTable_InsertFindRemove(t *testing.T) {
	ht := NewExtendibleHashTable[int, string](4, intHash)

	ht.Insert(1, "a")
	ht.Insert(2, "b")

	v, ok := ht.Find(1)
	require.True(t, ok)
	require.Equal(t, "a", v)

	v, ok = ht.Find(2)
	require.True(t, ok)
	require.Equal(t, "b", v)

	_, ok = ht.Find(3)
	require.False(t, ok)

	require.True(t, ht.Remove(1))
	_, ok = ht.Find(1)
	require.False(t, ok)
	require.False(t, ht.Remove(1))
}

func TestExtendibleHashTable_OverwriteExistingKey(t *testing.T) {
	ht := NewExtendibleHashTable[int, string](4, intHash)
	ht.Insert(5, "first")
	ht.Insert(5, "second")

	v, ok := ht.Find(5)
	require.True(t, ok)
	require.Equal(t, "second", v)
}

func TestExtendibleHashTable_GrowsDirectoryOnOverflow(t *testing.T) {
	ht := NewExtendibleHashTable[int, int](2, intHash)
	require.Equal(t, 0, ht.GlobalDepth())

	for i := 0; i < 50; i++ {
		ht.Insert(i, i*10)
	}

	for i := 0; i < 50; i++ {
		v, ok := ht.Find(i)
		require.True(t, ok)
		require.Equal(t, i*10, v)
	}

	require.Greater(t, ht.GlobalDepth(), 0)
	require.Greater(t, ht.NumBuckets(), 1)
}

func TestExtendibleHashTable_LocalDepthNeverExceedsGlobal(t *testing.T) {
	ht := NewExtendibleHashTable[int, int](2, intHash)
	for i := 0; i < 100; i++ {
		ht.Insert(i, i)
	}

	gd := ht.GlobalDepth()
	for i := 0; i < (1 << uint(gd)); i++ {
		require.LessOrEqual(t, ht.LocalDepth(i), gd)
	}
}
