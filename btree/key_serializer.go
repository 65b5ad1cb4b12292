package btree

import "pagekit/disk"

// Int64Key is the comparator-defined key type the tree is instantiated
// over. A fuller index would make this a type parameter; a single
// fixed-width concrete key keeps the on-disk entry layout a constant
// size, which the leaf/internal page accessors in page.go depend on
// directly rather than going through a serializer indirection — there
// is no variable-length encoding step to seam off when every entry's
// width is already fixed by the page layout.
type Int64Key int64

func (k Int64Key) Less(other Int64Key) bool { return k < other }

// RID is a record id: the page and slot a tuple lives at in a heap
// file. The tree never interprets it beyond comparing for equality.
type RID struct {
	PageID disk.PageID
	Slot   uint32
}
