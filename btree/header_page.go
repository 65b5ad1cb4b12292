package btree

import (
	"encoding/binary"

	"pagekit/disk"
)

// Page 0 is reserved as the header page: a small directory of
// (index_name -> root_page_id) records, scanned linearly. It is
// small and rarely written, so there is no need for anything fancier
// than append-and-rewrite.
const HeaderPageID disk.PageID = 0

// headerRecord is one (name, root page id) entry in the directory.
type headerRecord struct {
	name string
	root disk.PageID
}

func readHeaderRecords(data []byte) []headerRecord {
	count := binary.BigEndian.Uint32(data[0:4])
	records := make([]headerRecord, 0, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		nameLen := int(binary.BigEndian.Uint16(data[off : off+2]))
		off += 2
		name := string(data[off : off+nameLen])
		off += nameLen
		root := disk.PageID(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		records = append(records, headerRecord{name: name, root: root})
	}
	return records
}

func writeHeaderRecords(data []byte, records []headerRecord) {
	binary.BigEndian.PutUint32(data[0:4], uint32(len(records)))
	off := 4
	for _, r := range records {
		binary.BigEndian.PutUint16(data[off:off+2], uint16(len(r.name)))
		off += 2
		copy(data[off:off+len(r.name)], r.name)
		off += len(r.name)
		binary.BigEndian.PutUint32(data[off:off+4], uint32(r.root))
		off += 4
	}
}

// GetRootPageID looks up the root page id for a named index. The
// caller must hold at least the header page's read latch.
func GetRootPageID(header *disk.Page, name string) (disk.PageID, bool) {
	for _, r := range readHeaderRecords(header.Data()) {
		if r.name == name {
			return r.root, true
		}
	}
	return disk.InvalidPageID, false
}

// SetRootPageID upserts the root page id for a named index. The
// caller must hold the header page's write latch.
func SetRootPageID(header *disk.Page, name string, root disk.PageID) {
	records := readHeaderRecords(header.Data())
	for i, r := range records {
		if r.name == name {
			records[i].root = root
			writeHeaderRecords(header.Data(), records)
			return
		}
	}
	records = append(records, headerRecord{name: name, root: root})
	writeHeaderRecords(header.Data(), records)
}
