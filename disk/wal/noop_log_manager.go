package wal

import "pagekit/disk"

// NoopLogManager never persists anything and always reports the log as
// fully flushed, so the buffer pool's WAL-before-flush check never
// blocks a flush. Useful for tests and for running the core without
// durability guarantees.
var NoopLogManager LogManager = noopLogManager{}

type noopLogManager struct{}

func (noopLogManager) AppendLog(disk.PageID) disk.LSN { return disk.InvalidLSN }
func (noopLogManager) Flush() error                   { return nil }
func (noopLogManager) FlushedLSN() disk.LSN           { return disk.LSN(^uint64(0)) }
