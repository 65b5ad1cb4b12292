package btree

import (
	"bytes"
	"encoding/binary"

	"pagekit/common"
	"pagekit/disk"
)

// pageType tags which of the two node shapes a B+Tree page holds.
// Dispatch between the shapes is explicit case analysis throughout
// this package rather than an interface with virtual methods, since
// the two shapes have genuinely different entry layouts.
type pageType uint8

const (
	invalidPageType pageType = 0
	leafPageType    pageType = 1
	internalPageType pageType = 2
)

// commonHeader is the prefix shared by leaf and internal pages.
type commonHeader struct {
	PageType pageType
	Size     int32
	MaxSize  int32
	ParentID disk.PageID
	PageID   disk.PageID
	LSN      uint64
}

const commonHeaderSize = 1 + 4 + 4 + 4 + 4 + 8 // 25

type leafHeader struct {
	commonHeader
	NextPageID disk.PageID
}

const leafHeaderSize = commonHeaderSize + 4 // 29

const (
	leafEntrySize     = 8 + 8 // Int64Key + RID
	internalEntrySize = 8 + 4 // Int64Key + disk.PageID
)

func readCommonHeader(data []byte) commonHeader {
	var h commonHeader
	common.PanicIfErr(binary.Read(bytes.NewReader(data[:commonHeaderSize]), binary.BigEndian, &h))
	return h
}

func writeCommonHeader(data []byte, h commonHeader) {
	buf := bytes.Buffer{}
	common.PanicIfErr(binary.Write(&buf, binary.BigEndian, h))
	copy(data[:commonHeaderSize], buf.Bytes())
}

func readLeafHeader(data []byte) leafHeader {
	var h leafHeader
	common.PanicIfErr(binary.Read(bytes.NewReader(data[:leafHeaderSize]), binary.BigEndian, &h))
	return h
}

func writeLeafHeader(data []byte, h leafHeader) {
	buf := bytes.Buffer{}
	common.PanicIfErr(binary.Write(&buf, binary.BigEndian, h))
	copy(data[:leafHeaderSize], buf.Bytes())
}

func pageTypeOf(page *disk.Page) pageType {
	return pageType(page.Data()[0])
}

func isLeaf(page *disk.Page) bool {
	return pageTypeOf(page) == leafPageType
}

// initLeafPage stamps a freshly allocated page as an empty leaf node.
func initLeafPage(page *disk.Page, parent disk.PageID, maxSize int) {
	h := leafHeader{
		commonHeader: commonHeader{
			PageType: leafPageType,
			Size:     0,
			MaxSize:  int32(maxSize),
			ParentID: parent,
			PageID:   page.ID(),
		},
		NextPageID: disk.InvalidPageID,
	}
	writeLeafHeader(page.Data(), h)
}

// initInternalPage stamps a freshly allocated page as an internal node
// with a single child (the leftmost pointer) and no separator keys.
func initInternalPage(page *disk.Page, parent disk.PageID, maxSize int, leftmost disk.PageID) {
	h := commonHeader{
		PageType: internalPageType,
		Size:     1,
		MaxSize:  int32(maxSize),
		ParentID: parent,
		PageID:   page.ID(),
	}
	writeCommonHeader(page.Data(), h)
	setInternalChildAt(page, 0, leftmost)
}

// --- leaf entry accessors ---

func leafEntryOffset(i int) int { return leafHeaderSize + i*leafEntrySize }

func leafSize(page *disk.Page) int     { return int(readLeafHeader(page.Data()).Size) }
func leafMaxSize(page *disk.Page) int  { return int(readLeafHeader(page.Data()).MaxSize) }
func leafParentID(page *disk.Page) disk.PageID { return readLeafHeader(page.Data()).ParentID }
func leafNextPageID(page *disk.Page) disk.PageID { return readLeafHeader(page.Data()).NextPageID }

func setLeafSize(page *disk.Page, size int) {
	h := readLeafHeader(page.Data())
	h.Size = int32(size)
	writeLeafHeader(page.Data(), h)
}

func setLeafParentID(page *disk.Page, parent disk.PageID) {
	h := readLeafHeader(page.Data())
	h.ParentID = parent
	writeLeafHeader(page.Data(), h)
}

func setLeafNextPageID(page *disk.Page, next disk.PageID) {
	h := readLeafHeader(page.Data())
	h.NextPageID = next
	writeLeafHeader(page.Data(), h)
}

func leafKeyAt(page *disk.Page, i int) Int64Key {
	off := leafEntryOffset(i)
	return Int64Key(int64(binary.BigEndian.Uint64(page.Data()[off : off+8])))
}

func leafValueAt(page *disk.Page, i int) RID {
	off := leafEntryOffset(i) + 8
	data := page.Data()
	return RID{
		PageID: disk.PageID(binary.BigEndian.Uint32(data[off : off+4])),
		Slot:   binary.BigEndian.Uint32(data[off+4 : off+8]),
	}
}

func setLeafEntryAt(page *disk.Page, i int, key Int64Key, val RID) {
	off := leafEntryOffset(i)
	data := page.Data()
	binary.BigEndian.PutUint64(data[off:off+8], uint64(int64(key)))
	binary.BigEndian.PutUint32(data[off+8:off+12], uint32(val.PageID))
	binary.BigEndian.PutUint32(data[off+12:off+16], val.Slot)
}

// leafFindKey returns the index of key if present, or the index it
// would be inserted at otherwise (binary search over sorted keys).
func leafFindKey(page *disk.Page, key Int64Key) (index int, found bool) {
	size := leafSize(page)
	lo, hi := 0, size
	for lo < hi {
		mid := (lo + hi) / 2
		if leafKeyAt(page, mid).Less(key) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < size && leafKeyAt(page, lo) == key {
		return lo, true
	}
	return lo, false
}

// leafInsertAt shifts entries right to make room at index then writes
// the new entry. Caller must have already verified capacity.
func leafInsertAt(page *disk.Page, index int, key Int64Key, val RID) {
	size := leafSize(page)
	for i := size; i > index; i-- {
		k := leafKeyAt(page, i-1)
		v := leafValueAt(page, i-1)
		setLeafEntryAt(page, i, k, v)
	}
	setLeafEntryAt(page, index, key, val)
	setLeafSize(page, size+1)
}

func leafDeleteAt(page *disk.Page, index int) {
	size := leafSize(page)
	for i := index; i < size-1; i++ {
		k := leafKeyAt(page, i+1)
		v := leafValueAt(page, i+1)
		setLeafEntryAt(page, i, k, v)
	}
	setLeafSize(page, size-1)
}

// --- internal entry accessors ---

func internalEntryOffset(i int) int { return commonHeaderSize + i*internalEntrySize }

func internalSize(page *disk.Page) int     { return int(readCommonHeader(page.Data()).Size) }
func internalMaxSize(page *disk.Page) int  { return int(readCommonHeader(page.Data()).MaxSize) }
func internalParentID(page *disk.Page) disk.PageID { return readCommonHeader(page.Data()).ParentID }

func setInternalSize(page *disk.Page, size int) {
	h := readCommonHeader(page.Data())
	h.Size = int32(size)
	writeCommonHeader(page.Data(), h)
}

func setInternalParentID(page *disk.Page, parent disk.PageID) {
	h := readCommonHeader(page.Data())
	h.ParentID = parent
	writeCommonHeader(page.Data(), h)
}

// internalKeyAt is only valid for i in [1, size-1]: slot 0 carries no
// key, only the leftmost child pointer.
func internalKeyAt(page *disk.Page, i int) Int64Key {
	off := internalEntryOffset(i)
	return Int64Key(int64(binary.BigEndian.Uint64(page.Data()[off : off+8])))
}

func internalChildAt(page *disk.Page, i int) disk.PageID {
	off := internalEntryOffset(i) + 8
	return disk.PageID(binary.BigEndian.Uint32(page.Data()[off : off+4]))
}

func setInternalKeyAt(page *disk.Page, i int, key Int64Key) {
	off := internalEntryOffset(i)
	binary.BigEndian.PutUint64(page.Data()[off:off+8], uint64(int64(key)))
}

func setInternalChildAt(page *disk.Page, i int, child disk.PageID) {
	off := internalEntryOffset(i) + 8
	binary.BigEndian.PutUint32(page.Data()[off:off+4], uint32(child))
}

// internalFindChild returns the index of the child pointer to descend
// into for key: the largest i such that key >= key_i, or 0 if key is
// smaller than every separator.
func internalFindChild(page *disk.Page, key Int64Key) int {
	size := internalSize(page)
	lo, hi := 1, size
	for lo < hi {
		mid := (lo + hi) / 2
		if internalKeyAt(page, mid).Less(key) || internalKeyAt(page, mid) == key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// internalIndexOfChild returns the slot index whose child pointer is
// childID, or -1 if not found.
func internalIndexOfChild(page *disk.Page, childID disk.PageID) int {
	size := internalSize(page)
	for i := 0; i < size; i++ {
		if internalChildAt(page, i) == childID {
			return i
		}
	}
	return -1
}

// internalInsertAt inserts a (key, child) pair at slot index (index
// must be >= 1; slot 0 is never a key/child pair insertion target).
func internalInsertAt(page *disk.Page, index int, key Int64Key, child disk.PageID) {
	size := internalSize(page)
	for i := size; i > index; i-- {
		setInternalKeyAt(page, i, internalKeyAt(page, i-1))
		setInternalChildAt(page, i, internalChildAt(page, i-1))
	}
	setInternalKeyAt(page, index, key)
	setInternalChildAt(page, index, child)
	setInternalSize(page, size+1)
}

func internalDeleteAt(page *disk.Page, index int) {
	size := internalSize(page)
	for i := index; i < size-1; i++ {
		setInternalKeyAt(page, i, internalKeyAt(page, i+1))
		setInternalChildAt(page, i, internalChildAt(page, i+1))
	}
	setInternalSize(page, size-1)
}
