// Package lru adapts akita's set-associative cache directory into a
// plain, fully-associative, LRU-ordered container keyed by an integer
// block index — the shape a MESI cache's capacity management needs.
package lru

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Container is a fixed-capacity, LRU-ordered set of resident block
// indices, each mapped to a stable data slot in [0, capacity).
//
// It is built on akitacache.DirectoryImpl configured as a single set
// with one way per capacity slot (numSets=1, associativity=capacity,
// blockSize=1), so the directory's own address space is exactly the raw
// block-index space a MESI cache operates on — the same mechanism
// timing/cache.Cache uses for tag/LRU bookkeeping, just reused without
// the multi-set tag math a real set-associative cache needs.
type Container struct {
	capacity  int
	directory *akitacache.DirectoryImpl
}

// New creates a Container holding at most capacity blocks.
func New(capacity int) *Container {
	return &Container{
		capacity:  capacity,
		directory: akitacache.NewDirectory(1, capacity, 1, akitacache.NewLRUVictimFinder()),
	}
}

func (c *Container) slot(b *akitacache.Block) int {
	return b.SetID*c.capacity + b.WayID
}

// Lookup reports whether block is resident, returning its data slot and
// marking it most-recently-used if so.
func (c *Container) Lookup(block int) (slot int, ok bool) {
	b := c.directory.Lookup(0, uint64(block))
	if b == nil || !b.IsValid {
		return 0, false
	}
	c.directory.Visit(b)
	return c.slot(b), true
}

// Insert reserves a slot for block, evicting the current LRU entry if the
// container is already at capacity and block is not already resident. It
// reports the slot to store block's data in, and, if a different block
// was evicted to make room, that block's index and slot (which are
// always the freed slot itself).
//
// Re-inserting an already-resident block is an upsert, not an eviction:
// it reuses that block's existing slot, exactly as re-inserting an
// existing key into a keyed LRU map would. Without this, a duplicate
// response for a block this cache already holds could otherwise evict an
// unrelated entry.
func (c *Container) Insert(block int) (slot int, evictedBlock int, evicted bool) {
	if existing, ok := c.Lookup(block); ok {
		return existing, 0, false
	}

	victim := c.directory.FindVictim(uint64(block))
	slot = c.slot(victim)
	if victim.IsValid {
		evicted = true
		evictedBlock = int(victim.Tag)
	}

	victim.Tag = uint64(block)
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	return slot, evictedBlock, evicted
}

// Remove evicts block, if resident.
func (c *Container) Remove(block int) {
	b := c.directory.Lookup(0, uint64(block))
	if b != nil {
		b.IsValid = false
	}
}

// Len reports how many blocks are currently resident.
func (c *Container) Len() int {
	n := 0
	for _, set := range c.directory.GetSets() {
		for _, b := range set.Blocks {
			if b.IsValid {
				n++
			}
		}
	}
	return n
}

// Blocks returns every resident block index mapped to its data slot.
func (c *Container) Blocks() map[int]int {
	out := make(map[int]int, c.capacity)
	for _, set := range c.directory.GetSets() {
		for _, b := range set.Blocks {
			if b.IsValid {
				out[int(b.Tag)] = c.slot(b)
			}
		}
	}
	return out
}
