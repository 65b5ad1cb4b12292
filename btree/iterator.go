package btree

import "pagekit/disk"

// Iterator walks an index's entries in key order. It holds a read
// latch and a pin on exactly one leaf page at a time; Close must be
// called (directly, or implicitly by draining Next to its end) to
// release the final leaf.
type Iterator struct {
	tree *BPlusTree
	leaf *disk.Page
	idx  int
	done bool
}

// Begin returns an iterator positioned at the first entry of the
// index, or an exhausted iterator if the index is empty or does not
// exist.
func (t *BPlusTree) Begin() *Iterator {
	header := t.pool.FetchPage(HeaderPageID)
	header.RLatch()
	rootID, ok := GetRootPageID(header, t.name)
	header.RUnlatch()
	t.pool.UnpinPage(HeaderPageID, false)
	if !ok {
		return &Iterator{tree: t, done: true}
	}

	cur := t.pool.FetchPage(rootID)
	cur.RLatch()
	for !isLeaf(cur) {
		next := t.pool.FetchPage(internalChildAt(cur, 0))
		next.RLatch()
		cur.RUnlatch()
		t.pool.UnpinPage(cur.ID(), false)
		cur = next
	}

	it := &Iterator{tree: t, leaf: cur, idx: 0}
	if leafSize(cur) == 0 {
		it.advanceToNextLeaf()
	}
	return it
}

// BeginAt returns an iterator positioned at the first entry whose key
// is >= key.
func (t *BPlusTree) BeginAt(key Int64Key) *Iterator {
	stack := t.findLeafStack(key, modeRead)
	if stack == nil {
		return &Iterator{tree: t, done: true}
	}

	leafE := stack[len(stack)-1]
	for i := 0; i < len(stack)-1; i++ {
		t.release(stack[i])
	}

	idx, _ := leafFindKey(leafE.page, key)
	it := &Iterator{tree: t, leaf: leafE.page, idx: idx}
	if idx >= leafSize(leafE.page) {
		it.advanceToNextLeaf()
	}
	return it
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return !it.done }

// Key returns the current entry's key. Valid must be true.
func (it *Iterator) Key() Int64Key { return leafKeyAt(it.leaf, it.idx) }

// Value returns the current entry's value. Valid must be true.
func (it *Iterator) Value() RID { return leafValueAt(it.leaf, it.idx) }

// Next advances to the following entry, crossing into the next leaf
// via its sibling pointer if the current one is exhausted.
func (it *Iterator) Next() {
	if it.done {
		return
	}
	it.idx++
	if it.idx >= leafSize(it.leaf) {
		it.advanceToNextLeaf()
	}
}

func (it *Iterator) advanceToNextLeaf() {
	nextID := leafNextPageID(it.leaf)
	it.leaf.RUnlatch()
	it.tree.pool.UnpinPage(it.leaf.ID(), false)
	it.leaf = nil

	if nextID == disk.InvalidPageID {
		it.done = true
		return
	}

	next := it.tree.pool.FetchPage(nextID)
	next.RLatch()
	if leafSize(next) == 0 {
		it.leaf = next
		it.idx = 0
		it.advanceToNextLeaf()
		return
	}
	it.leaf = next
	it.idx = 0
}

// Close releases the iterator's held leaf, if any. Safe to call
// multiple times or after exhaustion.
func (it *Iterator) Close() {
	if it.leaf == nil {
		return
	}
	it.leaf.RUnlatch()
	it.tree.pool.UnpinPage(it.leaf.ID(), false)
	it.leaf = nil
	it.done = true
}
