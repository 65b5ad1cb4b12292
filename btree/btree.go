// Package btree implements a disk-resident B+Tree index over a
// buffer pool: every page the tree touches is fetched, latched, and
// unpinned through the pool, never read or written directly. Multiple
// named indexes can share one pool; each is anchored by a record in
// the page-0 header directory.
package btree

import (
	"pagekit/buffer"
	"pagekit/disk"
)

type traverseMode int

const (
	modeRead traverseMode = iota
	modeInsert
	modeDelete
)

// stackEntry is one page held during a top-down latch-coupled
// descent: an ancestor whose disposition (released early, or carried
// up through a split/merge) depends on what the rest of the descent
// finds.
type stackEntry struct {
	page     *disk.Page
	isHeader bool
	latched  bool
	dirty    bool
}

// BPlusTree is an ordered index of unique Int64Key -> RID entries.
// Insert, Remove, and GetValue all go through latch-coupled descents
// from the page-0 header; concurrent readers and a single concurrent
// writer can be in flight together as long as their paths diverge
// below the point the writer's change is proven safe.
type BPlusTree struct {
	pool        *buffer.BufferPool
	name        string
	leafMax     int
	internalMax int
}

// NewBPlusTree returns a handle on the named index backed by pool.
// leafMax and internalMax are the maximum number of entries a leaf
// page, respectively the maximum number of child pointers an internal
// page, can hold; both must fit within one page given the fixed entry
// sizes this package uses. leafMax must be even: a leaf split halves
// an odd-sized full leaf into a (size+1)/2, (size-1)/2 pair, and that
// smaller half falls one entry short of minLeafSize.
func NewBPlusTree(pool *buffer.BufferPool, name string, leafMax, internalMax int) *BPlusTree {
	if leafHeaderSize+leafMax*leafEntrySize > disk.PageSize {
		panic("btree: leafMax does not fit in a page")
	}
	// an internal page holds internalMax+1 children just before it splits.
	if commonHeaderSize+(internalMax+1)*internalEntrySize > disk.PageSize {
		panic("btree: internalMax does not fit in a page")
	}
	if leafMax%2 != 0 {
		panic("btree: leafMax must be even")
	}
	return &BPlusTree{pool: pool, name: name, leafMax: leafMax, internalMax: internalMax}
}

func (t *BPlusTree) minLeafSize() int     { return (t.leafMax + 1) / 2 }
func (t *BPlusTree) minInternalSize() int { return (t.internalMax + 1) / 2 }

func (t *BPlusTree) insertSafe(page *disk.Page) bool {
	if isLeaf(page) {
		return leafSize(page) < leafMaxSize(page)-1
	}
	return internalSize(page) < internalMaxSize(page)
}

func (t *BPlusTree) removeSafe(page *disk.Page) bool {
	if isLeaf(page) {
		return leafSize(page) > t.minLeafSize()
	}
	return internalSize(page) > t.minInternalSize()
}

func (t *BPlusTree) isUnderflow(page *disk.Page) bool {
	if isLeaf(page) {
		return leafSize(page) < t.minLeafSize()
	}
	return internalSize(page) < t.minInternalSize()
}

func (t *BPlusTree) safeFor(mode traverseMode, page *disk.Page) bool {
	if mode == modeInsert {
		return t.insertSafe(page)
	}
	return t.removeSafe(page)
}

// release unlatches e if still latched and unpins its page. Used both
// for write-mode ancestors released early once a descendant is proven
// safe, and for final cleanup of whatever remains in a stack.
func (t *BPlusTree) release(e *stackEntry) {
	if e.latched {
		e.page.WUnlatch()
	}
	if e.isHeader {
		t.pool.UnpinPage(HeaderPageID, e.dirty)
	} else {
		t.pool.UnpinPage(e.page.ID(), e.dirty)
	}
}

func (t *BPlusTree) releaseAll(stack []*stackEntry) {
	for _, e := range stack {
		t.release(e)
	}
}

func (t *BPlusTree) setParentField(page *disk.Page, parent disk.PageID) {
	if isLeaf(page) {
		setLeafParentID(page, parent)
	} else {
		setInternalParentID(page, parent)
	}
}

func (t *BPlusTree) setParentByID(id disk.PageID, parent disk.PageID) {
	p := t.pool.FetchPage(id)
	p.WLatch()
	t.setParentField(p, parent)
	p.WUnlatch()
	t.pool.UnpinPage(id, true)
}

// findLeafStack performs the top-down latch-coupled descent described
// for both the read and write paths. For modeRead it returns nil if
// the index does not exist yet. For modeInsert, a missing index is
// created on the fly as a single empty leaf, still under the header's
// write latch. The returned stack's last entry is always the leaf the
// descent ended at; entries above it are whatever ancestors were not
// yet proven safe to release.
func (t *BPlusTree) findLeafStack(key Int64Key, mode traverseMode) []*stackEntry {
	header := t.pool.FetchPage(HeaderPageID)
	headerE := &stackEntry{page: header, isHeader: true, latched: true}

	if mode == modeRead {
		header.RLatch()
	} else {
		header.WLatch()
	}

	rootID, ok := GetRootPageID(header, t.name)
	if !ok {
		if mode != modeInsert {
			if mode == modeRead {
				header.RUnlatch()
			} else {
				header.WUnlatch()
			}
			t.pool.UnpinPage(HeaderPageID, false)
			return nil
		}

		leaf := t.pool.NewPage()
		leaf.WLatch()
		initLeafPage(leaf, disk.InvalidPageID, t.leafMax)
		SetRootPageID(header, t.name, leaf.ID())
		headerE.dirty = true
		return []*stackEntry{headerE, {page: leaf, latched: true}}
	}

	root := t.pool.FetchPage(rootID)
	stack := []*stackEntry{headerE}

	if mode == modeRead {
		root.RLatch()
		header.RUnlatch()
		headerE.latched = false
	} else {
		root.WLatch()
		if t.safeFor(mode, root) {
			t.release(headerE)
			stack = stack[:0]
		}
	}

	return t.findAndGetStack(root, key, stack, mode)
}

func (t *BPlusTree) findAndGetStack(page *disk.Page, key Int64Key, stackIn []*stackEntry, mode traverseMode) []*stackEntry {
	if isLeaf(page) {
		return append(stackIn, &stackEntry{page: page, latched: true})
	}

	idx := internalFindChild(page, key)
	selfE := &stackEntry{page: page, latched: true}
	stackOut := append(stackIn, selfE)

	childID := internalChildAt(page, idx)
	child := t.pool.FetchPage(childID)

	if mode == modeRead {
		child.RLatch()
		page.RUnlatch()
		selfE.latched = false
	} else {
		child.WLatch()
		if t.safeFor(mode, child) {
			for len(stackOut) > 0 {
				e := stackOut[len(stackOut)-1]
				stackOut = stackOut[:len(stackOut)-1]
				t.release(e)
			}
		}
	}

	return t.findAndGetStack(child, key, stackOut, mode)
}

// GetValue returns the value associated with key, if present.
func (t *BPlusTree) GetValue(key Int64Key) (RID, bool) {
	stack := t.findLeafStack(key, modeRead)
	if stack == nil {
		return RID{}, false
	}

	leafE := stack[len(stack)-1]
	idx, found := leafFindKey(leafE.page, key)
	var val RID
	if found {
		val = leafValueAt(leafE.page, idx)
	}
	leafE.page.RUnlatch()
	leafE.latched = false

	t.releaseAll(stack)
	return val, found
}

// Insert adds key -> val. Returns false without modifying the tree if
// key is already present.
func (t *BPlusTree) Insert(key Int64Key, val RID) bool {
	stack := t.findLeafStack(key, modeInsert)
	leafE := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	leaf := leafE.page

	idx, found := leafFindKey(leaf, key)
	if found {
		t.release(leafE)
		t.releaseAll(stack)
		return false
	}
	leafInsertAt(leaf, idx, key, val)
	leafE.dirty = true

	curE := leafE
	overflow := leafSize(leaf) >= leafMaxSize(leaf)

	for overflow {
		var rightID disk.PageID
		var pushKey Int64Key
		if isLeaf(curE.page) {
			rightID, pushKey = t.splitLeafNode(curE.page)
		} else {
			rightID, pushKey = t.splitInternalNode(curE.page)
		}
		curE.dirty = true

		if len(stack) == 1 && stack[0].isHeader {
			headerE := stack[0]
			newRoot := t.pool.NewPage()
			newRoot.WLatch()
			initInternalPage(newRoot, disk.InvalidPageID, t.internalMax, curE.page.ID())
			internalInsertAt(newRoot, 1, pushKey, rightID)
			t.setParentField(curE.page, newRoot.ID())
			t.setParentByID(rightID, newRoot.ID())
			SetRootPageID(headerE.page, t.name, newRoot.ID())
			headerE.dirty = true
			newRoot.WUnlatch()
			t.pool.UnpinPage(newRoot.ID(), true)
			t.release(curE)
			t.release(headerE)
			return true
		}

		curID := curE.page.ID()
		t.release(curE)

		if len(stack) == 0 {
			panic("btree: split propagated past the root without reaching it")
		}
		parentE := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		insertIdx := internalIndexOfChild(parentE.page, curID) + 1
		internalInsertAt(parentE.page, insertIdx, pushKey, rightID)
		parentE.dirty = true
		t.setParentByID(rightID, parentE.page.ID())

		overflow = internalSize(parentE.page) > t.internalMax
		curE = parentE
	}

	t.release(curE)
	t.releaseAll(stack)
	return true
}

// splitLeafNode moves the upper half of leaf's entries into a new
// sibling linked in right after it, returning the sibling's id and the
// key to push up to the parent (the sibling's first key).
func (t *BPlusTree) splitLeafNode(leaf *disk.Page) (disk.PageID, Int64Key) {
	size := leafSize(leaf)
	leftCount := (size + 1) / 2
	rightCount := size - leftCount

	right := t.pool.NewPage()
	right.WLatch()
	initLeafPage(right, leafParentID(leaf), t.leafMax)
	for i := 0; i < rightCount; i++ {
		setLeafEntryAt(right, i, leafKeyAt(leaf, leftCount+i), leafValueAt(leaf, leftCount+i))
	}
	setLeafSize(right, rightCount)
	setLeafNextPageID(right, leafNextPageID(leaf))
	setLeafNextPageID(leaf, right.ID())
	setLeafSize(leaf, leftCount)

	pushKey := leafKeyAt(right, 0)
	right.WUnlatch()
	t.pool.UnpinPage(right.ID(), true)
	return right.ID(), pushKey
}

// splitInternalNode moves the upper half of node's child slots into a
// new sibling, promoting the separator between the two halves to the
// caller so it can be inserted into the parent.
func (t *BPlusTree) splitInternalNode(node *disk.Page) (disk.PageID, Int64Key) {
	size := internalSize(node)
	leftCount := (size + 1) / 2
	rightCount := size - leftCount
	pushKey := internalKeyAt(node, leftCount)

	right := t.pool.NewPage()
	right.WLatch()
	initInternalPage(right, internalParentID(node), t.internalMax, internalChildAt(node, leftCount))
	for i := 1; i < rightCount; i++ {
		setInternalKeyAt(right, i, internalKeyAt(node, leftCount+i))
		setInternalChildAt(right, i, internalChildAt(node, leftCount+i))
	}
	setInternalSize(right, rightCount)
	setInternalSize(node, leftCount)

	for i := 0; i < rightCount; i++ {
		t.setParentByID(internalChildAt(right, i), right.ID())
	}

	right.WUnlatch()
	t.pool.UnpinPage(right.ID(), true)
	return right.ID(), pushKey
}

// Remove deletes key if present; deleting an absent key is a no-op.
func (t *BPlusTree) Remove(key Int64Key) {
	stack := t.findLeafStack(key, modeDelete)
	if stack == nil {
		return
	}
	leafE := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	leaf := leafE.page

	idx, found := leafFindKey(leaf, key)
	if !found {
		t.release(leafE)
		t.releaseAll(stack)
		return
	}
	leafDeleteAt(leaf, idx)
	leafE.dirty = true

	curE := leafE
	for t.isUnderflow(curE.page) {
		if len(stack) == 1 && stack[0].isHeader {
			headerE := stack[0]
			if !isLeaf(curE.page) && internalSize(curE.page) == 1 {
				onlyChild := internalChildAt(curE.page, 0)
				SetRootPageID(headerE.page, t.name, onlyChild)
				headerE.dirty = true
				t.setParentByID(onlyChild, disk.InvalidPageID)
				curID := curE.page.ID()
				t.release(curE)
				t.release(headerE)
				t.pool.DeletePage(curID)
				return
			}
			t.release(curE)
			t.release(headerE)
			return
		}

		parentE := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		parent := parentE.page
		curID := curE.page.ID()
		myIdx := internalIndexOfChild(parent, curID)

		resolved := t.resolveUnderflow(curE, myIdx, parent)
		parentE.dirty = true
		if resolved {
			t.release(parentE)
			curE = nil
			break
		}
		curE = parentE
	}

	if curE != nil {
		t.release(curE)
	}
	t.releaseAll(stack)
}

// resolveUnderflow repairs curE's deficiency against a sibling reached
// through parent. It returns true if the repair was a redistribution
// (parent unaffected, nothing to propagate) and false if it was a
// merge (parent lost a child and may now be deficient itself).
func (t *BPlusTree) resolveUnderflow(curE *stackEntry, myIdx int, parent *disk.Page) bool {
	curE.dirty = true
	var leftID, rightID disk.PageID = disk.InvalidPageID, disk.InvalidPageID
	if myIdx > 0 {
		leftID = internalChildAt(parent, myIdx-1)
	}
	if myIdx+1 < internalSize(parent) {
		rightID = internalChildAt(parent, myIdx+1)
	}

	if leftID != disk.InvalidPageID {
		left := t.pool.FetchPage(leftID)
		left.WLatch()
		if t.canLend(left) {
			t.redistributeFromLeft(left, curE.page, parent, myIdx)
			left.WUnlatch()
			t.pool.UnpinPage(leftID, true)
			t.release(curE)
			return true
		}

		curID := curE.page.ID()
		t.mergeNodes(left, curE.page, parent, myIdx-1)
		left.WUnlatch()
		t.pool.UnpinPage(leftID, true)
		t.release(curE)
		t.pool.DeletePage(curID)
		internalDeleteAt(parent, myIdx)
		return false
	}

	if rightID != disk.InvalidPageID {
		right := t.pool.FetchPage(rightID)
		right.WLatch()
		if t.canLend(right) {
			t.redistributeFromRight(curE.page, right, parent, myIdx)
			right.WUnlatch()
			t.pool.UnpinPage(rightID, true)
			t.release(curE)
			return true
		}

		t.mergeNodes(curE.page, right, parent, myIdx)
		right.WUnlatch()
		t.pool.UnpinPage(rightID, true)
		t.pool.DeletePage(rightID)
		internalDeleteAt(parent, myIdx+1)
		t.release(curE)
		return false
	}

	panic("btree: deficient non-root node has no siblings")
}

func (t *BPlusTree) canLend(sibling *disk.Page) bool {
	if isLeaf(sibling) {
		return leafSize(sibling) > t.minLeafSize()
	}
	return internalSize(sibling) > t.minInternalSize()
}

// redistributeFromLeft moves left's last entry to become node's first,
// updating the parent separator at nodeIdx.
func (t *BPlusTree) redistributeFromLeft(left, node *disk.Page, parent *disk.Page, nodeIdx int) {
	if isLeaf(node) {
		lastIdx := leafSize(left) - 1
		k, v := leafKeyAt(left, lastIdx), leafValueAt(left, lastIdx)
		leafDeleteAt(left, lastIdx)
		leafInsertAt(node, 0, k, v)
		setInternalKeyAt(parent, nodeIdx, leafKeyAt(node, 0))
		return
	}

	lastIdx := internalSize(left) - 1
	borrowedChild := internalChildAt(left, lastIdx)
	borrowedKey := internalKeyAt(left, lastIdx)
	oldSep := internalKeyAt(parent, nodeIdx)
	internalDeleteAt(left, lastIdx)

	oldLeftmost := internalChildAt(node, 0)
	internalInsertAt(node, 1, oldSep, oldLeftmost)
	setInternalChildAt(node, 0, borrowedChild)

	setInternalKeyAt(parent, nodeIdx, borrowedKey)
	t.setParentByID(borrowedChild, node.ID())
}

// redistributeFromRight moves right's first entry to become node's
// last, updating the parent separator at nodeIdx+1.
func (t *BPlusTree) redistributeFromRight(node, right *disk.Page, parent *disk.Page, nodeIdx int) {
	if isLeaf(node) {
		k, v := leafKeyAt(right, 0), leafValueAt(right, 0)
		leafDeleteAt(right, 0)
		leafInsertAt(node, leafSize(node), k, v)
		setInternalKeyAt(parent, nodeIdx+1, leafKeyAt(right, 0))
		return
	}

	borrowedChild := internalChildAt(right, 0)
	oldSep := internalKeyAt(parent, nodeIdx+1)
	newSep := internalKeyAt(right, 1)
	internalDeleteAt(right, 0)

	internalInsertAt(node, internalSize(node), oldSep, borrowedChild)
	setInternalKeyAt(parent, nodeIdx+1, newSep)
	t.setParentByID(borrowedChild, node.ID())
}

// mergeNodes appends right's entries onto left. For internal nodes,
// right's leftmost child is pulled in under the parent's separator
// key at leftIdx+1; for leaves, left simply inherits right's next
// pointer. Every moved child is reparented to left.
func (t *BPlusTree) mergeNodes(left, right *disk.Page, parent *disk.Page, leftIdx int) {
	if isLeaf(left) {
		base := leafSize(left)
		rightSize := leafSize(right)
		for i := 0; i < rightSize; i++ {
			setLeafEntryAt(left, base+i, leafKeyAt(right, i), leafValueAt(right, i))
		}
		setLeafSize(left, base+rightSize)
		setLeafNextPageID(left, leafNextPageID(right))
		return
	}

	base := internalSize(left)
	rightSize := internalSize(right)
	sep := internalKeyAt(parent, leftIdx+1)

	setInternalChildAt(left, base, internalChildAt(right, 0))
	setInternalKeyAt(left, base, sep)
	for i := 1; i < rightSize; i++ {
		setInternalKeyAt(left, base+i, internalKeyAt(right, i))
		setInternalChildAt(left, base+i, internalChildAt(right, i))
	}
	setInternalSize(left, base+rightSize)

	for i := 0; i < rightSize; i++ {
		t.setParentByID(internalChildAt(left, base+i), left.ID())
	}
}

// Height walks from the root to a leaf and returns the number of
// levels, counting the leaf.
func (t *BPlusTree) Height() int {
	header := t.pool.FetchPage(HeaderPageID)
	header.RLatch()
	rootID, ok := GetRootPageID(header, t.name)
	header.RUnlatch()
	t.pool.UnpinPage(HeaderPageID, false)
	if !ok {
		return 0
	}

	height := 1
	cur := t.pool.FetchPage(rootID)
	cur.RLatch()
	for !isLeaf(cur) {
		next := t.pool.FetchPage(internalChildAt(cur, 0))
		next.RLatch()
		cur.RUnlatch()
		t.pool.UnpinPage(cur.ID(), false)
		cur = next
		height++
	}
	cur.RUnlatch()
	t.pool.UnpinPage(cur.ID(), false)
	return height
}
