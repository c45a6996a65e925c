package seqindex

import "fmt"

// Key identifies a (topic, producer-address) pair. It is a plain value
// type rather than a concatenated string: the concatenation the original
// source builds ("{topic}/{producer}") is an implementation convenience
// with no observable effect, so we keep the structured form.
type Key struct {
	Topic    string
	Producer string
}

// Index maps Key to the highest contiguously-delivered sequence number for
// that pair. The key set only grows: entries are inserted on first
// observation and never evicted, bounded by the number of distinct
// (topic, producer) pairs seen since startup.
//
// Index is owned by a single goroutine (the consumer event loop) and is
// never accessed concurrently; it does not synchronize its own access.
type Index struct {
	m map[Key]uint64
}

// New returns an empty Index.
func New() *Index {
	return &Index{m: make(map[Key]uint64)}
}

// Lookup returns the stored value for key and whether it was present.
func (idx *Index) Lookup(key Key) (uint64, bool) {
	v, ok := idx.m[key]
	return v, ok
}

// Insert records value as the initial sequence for key. It panics if key is
// already present: insertion only ever happens on the first observation of
// a (topic, producer) pair, and a caller trying to insert twice is a bug in
// the gap detector, not a runtime condition to recover from.
func (idx *Index) Insert(key Key, value uint64) {
	if _, ok := idx.m[key]; ok {
		panic(fmt.Sprintf("seqindex: Insert called for existing key %v", key))
	}
	idx.m[key] = value
}

// Update advances the stored value for key to value. It panics if key is
// absent, or if value regresses below the current value: both are gap
// detector bugs, not conditions callers are expected to recover from.
func (idx *Index) Update(key Key, value uint64) {
	cur, ok := idx.m[key]
	if !ok {
		panic(fmt.Sprintf("seqindex: Update called for absent key %v", key))
	}
	if value < cur {
		panic(fmt.Sprintf("seqindex: Update called with regressing value %d < %d for key %v", value, cur, key))
	}
	idx.m[key] = value
}

// Len reports the number of distinct (topic, producer) pairs tracked.
func (idx *Index) Len() int { return len(idx.m) }
