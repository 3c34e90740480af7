package benchmark

import (
	"math/rand/v2"

	"github.com/sarchlab/mesisim/coherence"
)

// ChunkSize is the size, in bytes, of the thread-local/shared/false-
// sharing chunk every cache operates on: exactly as much data as a
// single cache can hold resident at once.
const ChunkSize = coherence.CacheSize * coherence.BlockSize

// Pattern produces the address to access on the i'th step (of
// coherence.MainMemorySize total steps) of one phase.
type Pattern func(i int) coherence.Address

// Sequential visits every address in memory once, in order.
func Sequential() Pattern {
	return func(i int) coherence.Address {
		return coherence.Address(i)
	}
}

// Random visits coherence.MainMemorySize addresses drawn uniformly from
// the full address space, using a fixed seed so a run is reproducible.
func Random(seed uint64) Pattern {
	rng := rand.New(rand.NewPCG(seed, seed))
	return func(int) coherence.Address {
		return coherence.Address(rng.IntN(coherence.MainMemorySize))
	}
}

// ThreadUniqueChunk repeatedly visits the chunk of memory reserved
// exclusively for cache id, never touched by any other cache.
func ThreadUniqueChunk(id int) Pattern {
	offset := id * ChunkSize
	return func(i int) coherence.Address {
		return coherence.Address(offset + i%ChunkSize)
	}
}

// SharedChunk repeatedly visits the same chunk of memory from every
// cache, so every access is contended.
func SharedChunk() Pattern {
	return func(i int) coherence.Address {
		return coherence.Address(i % ChunkSize)
	}
}

// FalseSharingChunk repeatedly visits addresses within the shared chunk,
// (i*id) mod ChunkSize, so caches with different ids stride through the
// same blocks at different rates and thrash the same cache lines. The
// strides do meet on some bytes (id 1 and id 2 both visit address 2), and
// cache 0 visits address 0 on every step.
func FalseSharingChunk(id int) Pattern {
	return func(i int) coherence.Address {
		return coherence.Address((i * id) % ChunkSize)
	}
}
