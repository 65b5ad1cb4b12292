package disk

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// DiskManager is the raw page store the buffer pool reads from and
// writes to. It knows nothing about pins, latches, or eviction — only
// fixed-size pages addressed by PageID. All operations are synchronous
// and idempotent.
type DiskManager interface {
	ReadPage(id PageID, dest []byte) error
	WritePage(id PageID, src []byte) error

	// AllocatePage returns a fresh, monotonically increasing PageID. It
	// never reuses ids, not even ones passed to DeallocatePage; callers
	// are responsible for any free-list of their own.
	AllocatePage() PageID

	// DeallocatePage is advisory: a teaching-grade disk manager is free
	// to make it a no-op, since nothing downstream ever re-reads a
	// deallocated id.
	DeallocatePage(id PageID) error

	Close() error
}

// FileDiskManager is an os.File-backed DiskManager. It seeks to
// PageSize*id on every read/write, without a freelist, header page,
// or log file of its own — that layer of bookkeeping belongs to
// whatever sits on top (the buffer pool's WAL-before-flush ordering,
// the B+Tree's page-0 index directory).
type FileDiskManager struct {
	mu         sync.Mutex
	file       *os.File
	nextPageID PageID
}

var _ DiskManager = &FileDiskManager{}

// NewFileDiskManager opens (creating if necessary) the given file and
// resumes page-id allocation after whatever is already on disk.
func NewFileDiskManager(path string) (*FileDiskManager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	d := &FileDiskManager{file: f}
	d.nextPageID = PageID(stat.Size() / int64(PageSize))
	if d.nextPageID == InvalidPageID {
		// page 0 is reserved for the B+Tree header page.
		d.nextPageID = 1
	}
	return d, nil
}

func (d *FileDiskManager) ReadPage(id PageID, dest []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(dest) != PageSize {
		panic("disk: ReadPage destination buffer is not a full page")
	}

	off := int64(id) * int64(PageSize)
	if _, err := d.file.Seek(off, io.SeekStart); err != nil {
		return err
	}

	n, err := io.ReadFull(d.file, dest)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		// reading a page that was allocated but never written: its
		// contents default to zero (see DESIGN.md).
		for i := n; i < PageSize; i++ {
			dest[i] = 0
		}
		return nil
	}
	return err
}

func (d *FileDiskManager) WritePage(id PageID, src []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(src) != PageSize {
		panic("disk: WritePage source buffer is not a full page")
	}

	off := int64(id) * int64(PageSize)
	if _, err := d.file.Seek(off, io.SeekStart); err != nil {
		return err
	}

	n, err := d.file.Write(src)
	if err != nil {
		return err
	}
	if n != PageSize {
		panic(fmt.Sprintf("disk: partial page write for page %d (%d of %d bytes)", id, n, PageSize))
	}
	return nil
}

func (d *FileDiskManager) AllocatePage() PageID {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextPageID
	d.nextPageID++
	return id
}

func (d *FileDiskManager) DeallocatePage(PageID) error {
	return nil
}

func (d *FileDiskManager) Close() error {
	return d.file.Close()
}
