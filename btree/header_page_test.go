package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pagekit/disk"
)

func TestHeaderPage_GetSetRoundTrip(t *testing.T) {
	page := disk.NewPage(HeaderPageID)

	_, ok := GetRootPageID(page, "orders")
	require.False(t, ok)

	SetRootPageID(page, "orders", disk.PageID(7))
	root, ok := GetRootPageID(page, "orders")
	require.True(t, ok)
	require.Equal(t, disk.PageID(7), root)
}

func TestHeaderPage_MultipleIndexesCoexist(t *testing.T) {
	page := disk.NewPage(HeaderPageID)

	SetRootPageID(page, "orders", disk.PageID(3))
	SetRootPageID(page, "customers", disk.PageID(9))

	root, ok := GetRootPageID(page, "orders")
	require.True(t, ok)
	require.Equal(t, disk.PageID(3), root)

	root, ok = GetRootPageID(page, "customers")
	require.True(t, ok)
	require.Equal(t, disk.PageID(9), root)
}

func TestHeaderPage_SetOverwritesExistingRecord(t *testing.T) {
	page := disk.NewPage(HeaderPageID)

	SetRootPageID(page, "orders", disk.PageID(3))
	SetRootPageID(page, "orders", disk.PageID(11))

	root, ok := GetRootPageID(page, "orders")
	require.True(t, ok)
	require.Equal(t, disk.PageID(11), root)
}
