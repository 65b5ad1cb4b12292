// Package replacer implements the buffer pool's page replacement
// policy: LRU-K, which evicts the frame whose k-th most recent access
// is furthest in the past, falling back to plain LRU among frames
// that have been accessed fewer than k times.
package replacer

import (
	"container/list"
	"sync"
)

// FrameID indexes a frame slot in the buffer pool. It is a plain int,
// not a disk.PageID: the replacer tracks frames, not pages.
type FrameID int

// entry is one frame's access history: at most k timestamps, newest
// at the front.
type entry struct {
	frameID   FrameID
	history   *list.List // of int64, newest access at Front
	evictable bool
}

// LRUKReplacer tracks which frames are candidates for eviction and,
// among those, which one LRU-K picks next. Frames start non-evictable
// when first recorded; the buffer pool makes a frame evictable once
// its pin count drops to zero.
type LRUKReplacer struct {
	mu sync.Mutex

	k       int
	maxSize int
	clock   int64

	entries map[FrameID]*entry
	curSize int
}

// NewLRUKReplacer creates a replacer for up to numFrames frames, each
// tracked with a k-access history.
func NewLRUKReplacer(numFrames, k int) *LRUKReplacer {
	if numFrames <= 0 || k <= 0 {
		panic("replacer: numFrames and k must be positive")
	}
	return &LRUKReplacer{
		k:       k,
		maxSize: numFrames,
		entries: make(map[FrameID]*entry),
	}
}

// RecordAccess notes that frameID was just accessed, pushing a new
// timestamp to the front of its history and dropping the oldest once
// there are more than k.
func (r *LRUKReplacer) RecordAccess(frameID FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[frameID]
	if e == nil {
		e = &entry{frameID: frameID, history: list.New()}
		r.entries[frameID] = e
	}

	r.clock++
	e.history.PushFront(r.clock)
	if e.history.Len() > r.k {
		e.history.Remove(e.history.Back())
	}
}

// SetEvictable marks frameID as a candidate for eviction or removes
// it from consideration, without discarding its access history.
func (r *LRUKReplacer) SetEvictable(frameID FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[frameID]
	if e == nil {
		panic("replacer: SetEvictable called on untracked frame")
	}
	if !e.evictable && evictable {
		r.curSize++
	}
	if e.evictable && !evictable {
		r.curSize--
	}
	e.evictable = evictable
}

// Evict picks a victim frame among the evictable ones and stops
// tracking it. The choice compares backward k-distances: a frame with
// fewer than k recorded accesses is always preferred over one with a
// full k-history, and ties within either group go to the one whose
// relevant timestamp is oldest.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.curSize == 0 {
		return 0, false
	}

	var selected *entry
	for _, e := range r.entries {
		if !e.evictable {
			continue
		}
		if selected == nil {
			selected = e
			continue
		}
		if r.losesTo(selected, e) {
			selected = e
		}
	}

	r.removeInternal(selected.frameID)
	return selected.frameID, true
}

// losesTo reports whether candidate should replace cur as the
// selected victim.
func (r *LRUKReplacer) losesTo(cur, candidate *entry) bool {
	curFull := cur.history.Len() == r.k
	candFull := candidate.history.Len() == r.k

	switch {
	case curFull && candFull:
		// both have a full k-history: older k-th-most-recent access
		// (the back of the list) wins.
		return candidate.history.Back().Value.(int64) < cur.history.Back().Value.(int64)
	case curFull && !candFull:
		// candidate has infinite backward k-distance, cur does not.
		return true
	case !curFull && candFull:
		return false
	default:
		// both below k accesses: plain LRU among them, oldest access
		// (the back of the list, since history is newest-first and
		// not yet truncated) wins.
		return candidate.history.Back().Value.(int64) < cur.history.Back().Value.(int64)
	}
}

// Remove stops tracking frameID entirely. It must currently be
// evictable.
func (r *LRUKReplacer) Remove(frameID FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeInternal(frameID)
}

func (r *LRUKReplacer) removeInternal(frameID FrameID) {
	e, ok := r.entries[frameID]
	if !ok {
		return
	}
	if !e.evictable {
		panic("replacer: Remove called on a non-evictable frame")
	}
	delete(r.entries, frameID)
	r.curSize--
}

// Size returns the number of frames currently evictable.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.curSize
}
