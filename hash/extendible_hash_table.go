// Package hash implements an in-memory extendible hash table. The
// buffer pool uses one to map page ids to frame indexes; the table
// itself never touches disk.
package hash

import "sync"

// HashFunc produces a 64-bit digest for a key. Callers provide one at
// construction time since Go has no std::hash equivalent.
type HashFunc[K comparable] func(K) uint64

// bucket is a fixed-capacity chain of key/value pairs plus the local
// depth it was created at.
type bucket[K comparable, V any] struct {
	depth int
	pairs []pair[K, V]
}

type pair[K comparable, V any] struct {
	key K
	val V
}

func newBucket[K comparable, V any](depth, capacity int) *bucket[K, V] {
	return &bucket[K, V]{depth: depth, pairs: make([]pair[K, V], 0, capacity)}
}

func (b *bucket[K, V]) isFull(capacity int) bool {
	return len(b.pairs) >= capacity
}

func (b *bucket[K, V]) find(key K) (V, bool) {
	for _, p := range b.pairs {
		if p.key == key {
			return p.val, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) remove(key K) bool {
	for i, p := range b.pairs {
		if p.key == key {
			b.pairs = append(b.pairs[:i], b.pairs[i+1:]...)
			return true
		}
	}
	return false
}

// insert overwrites the value if key is already present, otherwise
// appends. Returns false if the bucket is full and key is not already
// present.
func (b *bucket[K, V]) insert(key K, val V, capacity int) bool {
	for i, p := range b.pairs {
		if p.key == key {
			b.pairs[i].val = val
			return true
		}
	}
	if b.isFull(capacity) {
		return false
	}
	b.pairs = append(b.pairs, pair[K, V]{key, val})
	return true
}

// ExtendibleHashTable is a classic directory-of-buckets extendible
// hash table: the directory doubles when a bucket at the current
// global depth overflows, and only the two buckets on the overflowing
// split are ever redistributed.
type ExtendibleHashTable[K comparable, V any] struct {
	mu sync.Mutex

	hashFn      HashFunc[K]
	bucketSize  int
	globalDepth int
	numBuckets  int
	dir         []*bucket[K, V]
}

// NewExtendibleHashTable creates a table with the given per-bucket
// capacity and hash function, starting at global depth 0 with a
// single bucket.
func NewExtendibleHashTable[K comparable, V any](bucketSize int, hashFn HashFunc[K]) *ExtendibleHashTable[K, V] {
	if bucketSize <= 0 {
		panic("hash: bucketSize must be positive")
	}
	t := &ExtendibleHashTable[K, V]{
		hashFn:     hashFn,
		bucketSize: bucketSize,
		numBuckets: 1,
	}
	t.dir = []*bucket[K, V]{newBucket[K, V](0, bucketSize)}
	return t
}

func (t *ExtendibleHashTable[K, V]) indexOf(key K) int {
	mask := uint64(1<<uint(t.globalDepth)) - 1
	return int(t.hashFn(key) & mask)
}

// GlobalDepth returns the directory's current depth.
func (t *ExtendibleHashTable[K, V]) GlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// LocalDepth returns the depth of the bucket a directory slot points
// at.
func (t *ExtendibleHashTable[K, V]) LocalDepth(dirIndex int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[dirIndex].depth
}

// NumBuckets returns the number of distinct buckets, which is always
// <= len(directory) and can be less once the directory has doubled.
func (t *ExtendibleHashTable[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numBuckets
}

// Find looks up key and reports whether it was present.
func (t *ExtendibleHashTable[K, V]) Find(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.indexOf(key)].find(key)
}

// Remove deletes key, reporting whether it was present. Unlike
// Insert, Remove never shrinks the directory or merges buckets back
// together; nothing built on this table needs that.
func (t *ExtendibleHashTable[K, V]) Remove(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.indexOf(key)].remove(key)
}

// Insert adds or overwrites key/val, splitting and, if necessary,
// doubling the directory until the bucket that owns key has room.
func (t *ExtendibleHashTable[K, V]) Insert(key K, val V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		idx := t.indexOf(key)
		b := t.dir[idx]
		if b.insert(key, val, t.bucketSize) {
			return
		}

		d := b.depth
		if d == t.globalDepth {
			t.globalDepth++
			n := len(t.dir)
			t.dir = append(t.dir, t.dir[:n]...)
		}

		a := newBucket[K, V](d+1, t.bucketSize)
		c := newBucket[K, V](d+1, t.bucketSize)
		lowMask := (1 << uint(d)) - 1
		splitBit := 1 << uint(d)
		for i := 0; i < (1 << uint(t.globalDepth)); i++ {
			if (i & lowMask) == (idx & lowMask) {
				if i&splitBit != 0 {
					t.dir[i] = a
				} else {
					t.dir[i] = c
				}
			}
		}
		t.numBuckets++
		t.redistribute(b)
	}
}

// redistribute reinserts every pair of an overflowed bucket into the
// directory slots it now maps to. Only the bucket that just split is
// ever touched, so this never recurses.
func (t *ExtendibleHashTable[K, V]) redistribute(b *bucket[K, V]) {
	for _, p := range b.pairs {
		idx := t.indexOf(p.key)
		t.dir[idx].insert(p.key, p.val, t.bucketSize)
	}
}
