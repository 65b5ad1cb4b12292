// Package wal provides the buffer pool's write-ahead-log collaborator.
// A page's LSN must be no greater than the log manager's flushed LSN
// before the page is written back to disk; everything beyond that
// ordering rule — log record formats, checkpointing, crash replay — is
// out of scope here and left to a fuller log manager than the one
// implemented in this package.
package wal

import (
	"sync"

	"pagekit/disk"
)

// LogManager is the buffer pool's WAL-before-flush collaborator. It
// hands out monotonically increasing LSNs and tracks how far the log
// has actually been flushed to stable storage.
type LogManager interface {
	// AppendLog records that pageID was modified and returns the LSN
	// assigned to that modification. The caller stamps the page with
	// the returned LSN before marking it dirty.
	AppendLog(pageID disk.PageID) disk.LSN

	// Flush persists every appended log record up to the current LSN.
	// The buffer pool calls this before flushing a dirty page whose
	// LSN is not yet covered by FlushedLSN.
	Flush() error

	// FlushedLSN returns the highest LSN guaranteed durable.
	FlushedLSN() disk.LSN
}

// SimpleLogManager is an in-memory stand-in for a real WAL: it assigns
// LSNs and, on Flush, simply advances its flushed watermark to the
// latest assigned LSN. It does not persist log records anywhere; the
// log manager here is an opaque collaborator, not a working recovery
// log.
type SimpleLogManager struct {
	mu      sync.Mutex
	currLSN uint64
	flushed uint64
}

var _ LogManager = &SimpleLogManager{}

func NewSimpleLogManager() *SimpleLogManager {
	return &SimpleLogManager{}
}

func (l *SimpleLogManager) AppendLog(disk.PageID) disk.LSN {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currLSN++
	return disk.LSN(l.currLSN)
}

func (l *SimpleLogManager) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.flushed = l.currLSN
	return nil
}

func (l *SimpleLogManager) FlushedLSN() disk.LSN {
	l.mu.Lock()
	defer l.mu.Unlock()

	return disk.LSN(l.flushed)
}
