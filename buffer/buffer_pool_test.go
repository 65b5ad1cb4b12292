package buffer

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pagekit/disk"
	"pagekit/disk/wal"
)

func newTestPool(t *testing.T, poolSize int) *BufferPool {
	t.Helper()
	path := filepath.Join(t.TempDir(), uuid.New().String()+".db")
	dm, err := disk.NewFileDiskManager(path)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return NewBufferPool(poolSize, dm, 2, wal.NoopLogManager)
}

func TestBufferPool_NewPageThenFetch(t *testing.T) {
	pool := newTestPool(t, 4)

	page := pool.NewPage()
	require.NotNil(t, page)
	copy(page.Data(), []byte("hello"))
	page.SetDirty()
	require.True(t, pool.UnpinPage(page.ID(), true))

	fetched := pool.FetchPage(page.ID())
	require.NotNil(t, fetched)
	require.Equal(t, "hello", string(fetched.Data()[:5]))
	require.True(t, pool.UnpinPage(fetched.ID(), false))
}

func TestBufferPool_EvictsWhenExhausted(t *testing.T) {
	pool := newTestPool(t, 2)

	p1 := pool.NewPage()
	p2 := pool.NewPage()
	require.NotNil(t, p1)
	require.NotNil(t, p2)

	// both frames pinned: pool has no free frame and nothing evictable.
	require.Nil(t, pool.NewPage())

	require.True(t, pool.UnpinPage(p1.ID(), false))

	p3 := pool.NewPage()
	require.NotNil(t, p3)
}

func TestBufferPool_FlushPersistsDirtyPage(t *testing.T) {
	pool := newTestPool(t, 1)

	page := pool.NewPage()
	copy(page.Data(), []byte("persisted"))
	page.SetDirty()
	id := page.ID()
	require.True(t, pool.UnpinPage(id, true))

	require.True(t, pool.FlushPage(id))
	require.False(t, page.IsDirty())
}

func TestBufferPool_DeletePageFailsWhilePinned(t *testing.T) {
	pool := newTestPool(t, 2)

	page := pool.NewPage()
	require.False(t, pool.DeletePage(page.ID()))

	require.True(t, pool.UnpinPage(page.ID(), false))
	require.True(t, pool.DeletePage(page.ID()))
}

func TestBufferPool_UnpinUnknownPageFails(t *testing.T) {
	pool := newTestPool(t, 2)
	require.False(t, pool.UnpinPage(disk.PageID(999), false))
}

func TestBufferPool_NewPageStampsLSNAndFlushesLogFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), uuid.New().String()+".db")
	dm, err := disk.NewFileDiskManager(path)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })

	lm := wal.NewSimpleLogManager()
	pool := NewBufferPool(1, dm, 2, lm)

	page := pool.NewPage()
	require.NotEqual(t, disk.InvalidLSN, page.GetLSN())
	require.Equal(t, disk.InvalidLSN, lm.FlushedLSN())

	id := page.ID()
	require.True(t, pool.UnpinPage(id, true))
	require.True(t, pool.FlushPage(id))

	require.GreaterOrEqual(t, uint64(lm.FlushedLSN()), uint64(page.GetLSN()))
}
