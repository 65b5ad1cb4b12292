package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pagekit/disk"
)

func TestLeafPage_InsertKeepsSortedOrder(t *testing.T) {
	page := disk.NewPage(disk.PageID(1))
	initLeafPage(page, disk.InvalidPageID, 8)

	order := []int64{5, 1, 9, 3, 7}
	for _, k := range order {
		idx, found := leafFindKey(page, Int64Key(k))
		require.False(t, found)
		leafInsertAt(page, idx, Int64Key(k), RID{PageID: disk.PageID(k)})
	}

	require.Equal(t, len(order), leafSize(page))
	for i := 1; i < leafSize(page); i++ {
		require.Less(t, int64(leafKeyAt(page, i-1)), int64(leafKeyAt(page, i)))
	}
}

func TestLeafPage_DeleteAtShiftsRemainingEntries(t *testing.T) {
	page := disk.NewPage(disk.PageID(1))
	initLeafPage(page, disk.InvalidPageID, 8)

	for i := 0; i < 5; i++ {
		leafInsertAt(page, i, Int64Key(i), RID{PageID: disk.PageID(i)})
	}

	leafDeleteAt(page, 2)
	require.Equal(t, 4, leafSize(page))
	require.Equal(t, Int64Key(0), leafKeyAt(page, 0))
	require.Equal(t, Int64Key(1), leafKeyAt(page, 1))
	require.Equal(t, Int64Key(3), leafKeyAt(page, 2))
	require.Equal(t, Int64Key(4), leafKeyAt(page, 3))
}

func TestInternalPage_FindChildRoutesToCorrectSlot(t *testing.T) {
	page := disk.NewPage(disk.PageID(1))
	initInternalPage(page, disk.InvalidPageID, 8, disk.PageID(10))
	internalInsertAt(page, 1, Int64Key(5), disk.PageID(11))
	internalInsertAt(page, 2, Int64Key(10), disk.PageID(12))

	require.Equal(t, 0, internalFindChild(page, Int64Key(1)))
	require.Equal(t, 1, internalFindChild(page, Int64Key(5)))
	require.Equal(t, 1, internalFindChild(page, Int64Key(7)))
	require.Equal(t, 2, internalFindChild(page, Int64Key(10)))
	require.Equal(t, 2, internalFindChild(page, Int64Key(100)))
}

func TestInternalPage_IndexOfChildFindsSlot(t *testing.T) {
	page := disk.NewPage(disk.PageID(1))
	initInternalPage(page, disk.InvalidPageID, 8, disk.PageID(10))
	internalInsertAt(page, 1, Int64Key(5), disk.PageID(11))

	require.Equal(t, 0, internalIndexOfChild(page, disk.PageID(10)))
	require.Equal(t, 1, internalIndexOfChild(page, disk.PageID(11)))
	require.Equal(t, -1, internalIndexOfChild(page, disk.PageID(999)))
}

func TestInternalPage_DeleteAtShiftsRemainingSlots(t *testing.T) {
	page := disk.NewPage(disk.PageID(1))
	initInternalPage(page, disk.InvalidPageID, 8, disk.PageID(10))
	internalInsertAt(page, 1, Int64Key(5), disk.PageID(11))
	internalInsertAt(page, 2, Int64Key(10), disk.PageID(12))

	internalDeleteAt(page, 1)
	require.Equal(t, 2, internalSize(page))
	require.Equal(t, disk.PageID(10), internalChildAt(page, 0))
	require.Equal(t, Int64Key(10), internalKeyAt(page, 1))
	require.Equal(t, disk.PageID(12), internalChildAt(page, 1))
}
