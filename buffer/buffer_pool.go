// Package buffer implements the buffer pool manager: the component
// the B+Tree and every other on-disk structure go through to read and
// write pages. It owns a fixed number of in-memory frames, backed by
// an extendible hash table mapping page ids to frames and an LRU-K
// replacer choosing which unpinned frame to evict next.
package buffer

import (
	"sync"

	"pagekit/common"
	"pagekit/disk"
	"pagekit/disk/wal"
	"pagekit/hash"
	"pagekit/replacer"
)

const defaultBucketSize = 4

// BufferPool is the sole path through which the rest of the core
// touches pages. Every method that hands back a *disk.Page increments
// its pin count; callers must Unpin when done and must hold the
// page's own latch for the duration of any read or write to its data.
type BufferPool struct {
	mu sync.Mutex

	diskManager disk.DiskManager
	logManager  wal.LogManager

	pages     []*disk.Page
	pageTable *hash.ExtendibleHashTable[disk.PageID, int]
	replacer  *replacer.LRUKReplacer
	freeList  []int

	// bound tracks which frames currently hold a real page. Page id 0
	// is both InvalidPageID and a legitimate id (the B+Tree header
	// page lives there), so residency cannot be read off a page's id;
	// it has to be tracked explicitly.
	bound []bool
}

// NewBufferPool creates a pool of poolSize frames. replacerK is the k
// used by the LRU-K replacer (2 is a reasonable default). logManager
// may be wal.NoopLogManager if durability is not required; nil is
// treated the same way.
func NewBufferPool(poolSize int, diskManager disk.DiskManager, replacerK int, logManager wal.LogManager) *BufferPool {
	if poolSize <= 0 {
		panic("buffer: poolSize must be positive")
	}
	if logManager == nil {
		logManager = wal.NoopLogManager
	}

	pages := make([]*disk.Page, poolSize)
	freeList := make([]int, poolSize)
	for i := range pages {
		pages[i] = disk.NewPage(disk.InvalidPageID)
		freeList[i] = i
	}

	return &BufferPool{
		diskManager: diskManager,
		logManager:  logManager,
		pages:       pages,
		pageTable:   hash.NewExtendibleHashTable[disk.PageID, int](defaultBucketSize, hash.Uint32Hash[disk.PageID]),
		replacer:    replacer.NewLRUKReplacer(poolSize, replacerK),
		freeList:    freeList,
		bound:       make([]bool, poolSize),
	}
}

// victim finds a frame to (re)use: the free list first, then the
// replacer. If the victim frame holds a dirty page it is flushed
// before being repurposed. Returns -1 if no frame is available.
// Caller must hold mu.
func (p *BufferPool) victim() int {
	if n := len(p.freeList); n > 0 {
		f := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return f
	}

	f, ok := p.replacer.Evict()
	if !ok {
		return -1
	}

	victimPage := p.pages[int(f)]
	common.Assert(victimPage.PinCount() == 0, "buffer: replacer chose pinned frame %d as victim", f)
	p.pageTable.Remove(victimPage.ID())
	if victimPage.IsDirty() {
		p.flushLocked(victimPage)
	}
	return int(f)
}

// rebind resets the frame's content for a new identity and reads
// whatever is already on disk for it, mirroring the reference buffer
// pool manager's NewPgImp, which reads back even a freshly allocated
// page id so the frame's contents always match storage.
func (p *BufferPool) rebind(page *disk.Page, frame int, id disk.PageID) {
	page.WLatch()
	page.Reset(id)
	if err := p.diskManager.ReadPage(id, page.Data()); err != nil {
		panic(err)
	}
	page.IncPin()
	page.WUnlatch()

	p.pageTable.Insert(id, frame)
	p.bound[frame] = true
}

// NewPage allocates a fresh page id, binds it to a frame, and returns
// the pinned page. Returns nil if the pool is exhausted (every frame
// pinned).
func (p *BufferPool) NewPage() *disk.Page {
	p.mu.Lock()
	defer p.mu.Unlock()

	f := p.victim()
	if f == -1 {
		return nil
	}

	id := p.diskManager.AllocatePage()
	page := p.pages[f]
	p.rebind(page, f, id)

	lsn := p.logManager.AppendLog(id)
	page.WLatch()
	page.SetLSN(lsn)
	page.SetDirty()
	page.WUnlatch()

	p.replacer.RecordAccess(replacer.FrameID(f))
	p.replacer.SetEvictable(replacer.FrameID(f), false)
	return page
}

// FetchPage returns the page for id, pinned, reading it from disk
// into a frame if it is not already resident. Returns nil if the pool
// is exhausted.
func (p *BufferPool) FetchPage(id disk.PageID) *disk.Page {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f, ok := p.pageTable.Find(id); ok {
		page := p.pages[f]
		page.IncPin()
		p.replacer.RecordAccess(replacer.FrameID(f))
		p.replacer.SetEvictable(replacer.FrameID(f), false)
		return page
	}

	f := p.victim()
	if f == -1 {
		return nil
	}

	page := p.pages[f]
	p.rebind(page, f, id)

	p.replacer.RecordAccess(replacer.FrameID(f))
	p.replacer.SetEvictable(replacer.FrameID(f), false)
	return page
}

// UnpinPage decrements id's pin count and, if the unpinning caller
// modified the page, marks it dirty. Once the pin count reaches zero
// the frame becomes eligible for eviction. Returns false if id is not
// resident or is already unpinned.
func (p *BufferPool) UnpinPage(id disk.PageID, isDirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.pageTable.Find(id)
	if !ok {
		return false
	}
	page := p.pages[f]
	if page.PinCount() == 0 {
		return false
	}

	page.DecPin()
	if page.PinCount() == 0 {
		p.replacer.SetEvictable(replacer.FrameID(f), true)
	}
	if isDirty {
		page.SetDirty()
	}
	return true
}

// FlushPage writes id's current frame contents to disk regardless of
// pin count, honoring the write-ahead-log ordering rule: the log must
// be flushed at least up to the page's LSN before the page itself is
// written back. Returns false if id is not resident.
func (p *BufferPool) FlushPage(id disk.PageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.pageTable.Find(id)
	if !ok {
		return false
	}
	p.flushLocked(p.pages[f])
	return true
}

// flushLocked performs the WAL-before-flush write. Caller holds mu.
func (p *BufferPool) flushLocked(page *disk.Page) {
	if page.GetLSN() != disk.InvalidLSN && page.GetLSN() > p.logManager.FlushedLSN() {
		if err := p.logManager.Flush(); err != nil {
			panic(err)
		}
	}

	page.RLatch()
	err := p.diskManager.WritePage(page.ID(), page.Data())
	page.RUnlatch()
	if err != nil {
		panic(err)
	}
	page.SetClean()
}

// FlushAllPages writes every resident page back to disk.
func (p *BufferPool) FlushAllPages() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, page := range p.pages {
		if p.bound[i] {
			p.flushLocked(page)
		}
	}
}

// DeletePage frees id's frame back to the free list, deallocating the
// underlying disk page. Returns false if the page is still pinned;
// returns true (a no-op) if id was never resident.
func (p *BufferPool) DeletePage(id disk.PageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.pageTable.Find(id)
	if !ok {
		return true
	}
	page := p.pages[f]
	if page.PinCount() > 0 {
		return false
	}

	p.pageTable.Remove(id)
	p.replacer.Remove(replacer.FrameID(f))
	page.WLatch()
	page.Reset(disk.InvalidPageID)
	page.WUnlatch()
	p.bound[f] = false
	p.freeList = append(p.freeList, f)

	if err := p.diskManager.DeallocatePage(id); err != nil {
		panic(err)
	}
	return true
}

// PoolSize returns the number of frames managed by the pool.
func (p *BufferPool) PoolSize() int {
	return len(p.pages)
}
