package replacer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUKReplacer_EvictsFewerThanKAccessesFirst(t *testing.T) {
	r := NewLRUKReplacer(10, 2)

	r.RecordAccess(1)
	r.RecordAccess(2)
	r.RecordAccess(1) // frame 1 now has 2 accesses (k=2), frame 2 has 1

	r.SetEvictable(1, true)
	r.SetEvictable(2, true)

	victim, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, FrameID(2), victim, "frame with fewer than k accesses should be evicted first")
}

func TestLRUKReplacer_TieBreaksByOldestKthAccess(t *testing.T) {
	r := NewLRUKReplacer(10, 2)

	r.RecordAccess(1)
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.RecordAccess(2)
	// both frames now have exactly 2 (k) accesses; frame 1's pair is older.

	r.SetEvictable(1, true)
	r.SetEvictable(2, true)

	victim, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, FrameID(1), victim)
}

func TestLRUKReplacer_NonEvictableFramesAreSkipped(t *testing.T) {
	r := NewLRUKReplacer(10, 2)

	r.RecordAccess(1)
	r.RecordAccess(2)
	r.SetEvictable(2, true)

	victim, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, FrameID(2), victim)
}

func TestLRUKReplacer_EvictOnEmptyReturnsFalse(t *testing.T) {
	r := NewLRUKReplacer(4, 2)
	_, ok := r.Evict()
	require.False(t, ok)
}

func TestLRUKReplacer_SizeTracksEvictableCount(t *testing.T) {
	r := NewLRUKReplacer(4, 2)
	r.RecordAccess(1)
	require.Equal(t, 0, r.Size())

	r.SetEvictable(1, true)
	require.Equal(t, 1, r.Size())

	r.SetEvictable(1, false)
	require.Equal(t, 0, r.Size())
}

func TestLRUKReplacer_RemovePanicsOnNonEvictable(t *testing.T) {
	r := NewLRUKReplacer(4, 2)
	r.RecordAccess(1)
	require.Panics(t, func() { r.Remove(1) })
}
