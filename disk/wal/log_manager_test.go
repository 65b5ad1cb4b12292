package wal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pagekit/disk"
)

func TestSimpleLogManager_AppendLogIsMonotonic(t *testing.T) {
	lm := NewSimpleLogManager()

	first := lm.AppendLog(disk.PageID(1))
	second := lm.AppendLog(disk.PageID(2))
	require.Greater(t, second, first)
}

func TestSimpleLogManager_FlushAdvancesWatermark(t *testing.T) {
	lm := NewSimpleLogManager()

	require.Equal(t, disk.InvalidLSN, lm.FlushedLSN())

	lsn := lm.AppendLog(disk.PageID(1))
	require.NoError(t, lm.Flush())
	require.GreaterOrEqual(t, lm.FlushedLSN(), lsn)
}

func TestNoopLogManager_AlwaysFlushed(t *testing.T) {
	lsn := NoopLogManager.AppendLog(disk.PageID(7))
	require.Equal(t, disk.InvalidLSN, lsn)
	require.NoError(t, NoopLogManager.Flush())
	require.Greater(t, uint64(NoopLogManager.FlushedLSN()), uint64(0))
}
