package disk

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), uuid.New().String()+".db")
}

func TestFileDiskManager_WriteThenRead(t *testing.T) {
	dm, err := NewFileDiskManager(tempDBPath(t))
	require.NoError(t, err)
	defer dm.Close()

	id := dm.AllocatePage()

	var want [PageSize]byte
	for i := range want {
		want[i] = byte(i % 251)
	}
	require.NoError(t, dm.WritePage(id, want[:]))

	var got [PageSize]byte
	require.NoError(t, dm.ReadPage(id, got[:]))
	require.Equal(t, want[:], got[:])
}

func TestFileDiskManager_ReadUnwrittenPageIsZero(t *testing.T) {
	dm, err := NewFileDiskManager(tempDBPath(t))
	require.NoError(t, err)
	defer dm.Close()

	id := dm.AllocatePage()

	var got [PageSize]byte
	for i := range got {
		got[i] = 0xFF
	}
	require.NoError(t, dm.ReadPage(id, got[:]))

	var zero [PageSize]byte
	require.Equal(t, zero[:], got[:])
}

func TestFileDiskManager_AllocatePageMonotonic(t *testing.T) {
	dm, err := NewFileDiskManager(tempDBPath(t))
	require.NoError(t, err)
	defer dm.Close()

	first := dm.AllocatePage()
	second := dm.AllocatePage()
	require.NotEqual(t, first, second)
	require.Greater(t, second, first)
}

func TestFileDiskManager_ResumesAllocationAcrossReopen(t *testing.T) {
	path := tempDBPath(t)

	dm, err := NewFileDiskManager(path)
	require.NoError(t, err)
	id := dm.AllocatePage()
	var buf [PageSize]byte
	require.NoError(t, dm.WritePage(id, buf[:]))
	require.NoError(t, dm.Close())

	dm2, err := NewFileDiskManager(path)
	require.NoError(t, err)
	defer dm2.Close()
	next := dm2.AllocatePage()
	require.Greater(t, next, id)
}
