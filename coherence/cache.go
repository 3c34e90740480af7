package coherence

import (
	"fmt"

	"github.com/sarchlab/mesisim/coherence/internal/lru"
)

// Cache is one MESI-coherent cache agent. It services program reads and
// writes, snoops every message the bus forwards, and emits requests and
// responses of its own — all from the single goroutine that owns it.
type Cache struct {
	id int

	in  <-chan BusMessage
	out chan<- BusMessage

	resident *lru.Container
	lines    [CacheSize]CacheLine

	missCount  uint64
	totalCount uint64
}

// NewCache creates a Cache identified by id, wired to a bus's endpoints
// for that id.
func NewCache(id int, in <-chan BusMessage, out chan<- BusMessage) *Cache {
	return &Cache{
		id:       id,
		in:       in,
		out:      out,
		resident: lru.New(CacheSize),
	}
}

// ID returns the cache's identifier.
func (c *Cache) ID() int { return c.id }

// Stats is a snapshot of a cache's access counters.
type Stats struct {
	Misses uint64
	Total  uint64
}

// MissPercent is the percentage of accesses, of Total, that missed.
func (s Stats) MissPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Misses) / float64(s.Total) * 100
}

// Stats returns the cache's current access counters.
func (c *Cache) Stats() Stats {
	if c.missCount > c.totalCount {
		panic(fmt.Sprintf("cache %d: miss count %d exceeds total count %d", c.id, c.missCount, c.totalCount))
	}
	return Stats{Misses: c.missCount, Total: c.totalCount}
}

// MissPercent is shorthand for Stats().MissPercent().
func (c *Cache) MissPercent() float64 {
	return c.Stats().MissPercent()
}

// ResetStats zeroes the access counters.
func (c *Cache) ResetStats() {
	c.missCount = 0
	c.totalCount = 0
}

func (c *Cache) send(msg BusMessage) {
	c.out <- msg
}

// LineState reports the MESI state of the line currently holding addr's
// block, if any is resident. It does not drain pending snoop traffic, so
// callers that need an up-to-date answer should call Drain first.
func (c *Cache) LineState(addr Address) (MesiState, bool) {
	slot, ok := c.resident.Lookup(int(BlockOf(addr)))
	if !ok {
		return Invalid, false
	}
	return c.lines[slot].State, true
}

// Drain processes every bus message currently queued for this cache
// without issuing a request of its own. A cache only reacts to snoop
// traffic when it next calls Read, Write, or Drain; this lets a
// caller that isn't otherwise accessing the cache still observe the
// coherence effects of other caches' traffic.
func (c *Cache) Drain() {
	c.snoopBacklog()
}

// Read returns the current byte at addr, blocking on bus traffic only if
// the containing block must be fetched.
func (c *Cache) Read(addr Address) byte {
	c.totalCount++
	c.snoopBacklog()

	block := BlockOf(addr)
	if slot, ok := c.resident.Lookup(int(block)); ok && c.lines[slot].State != Invalid {
		return c.lines[slot].Data[addr.Offset()]
	}

	c.missCount++

	for {
		c.send(NewReadRequest(c.id, block))

		c.snoopUntil(func(msg BusMessage) bool {
			return msg.Kind == ReadResponse && msg.Who == c.id && msg.Block == block
		})

		if slot, ok := c.resident.Lookup(int(block)); ok && c.lines[slot].State != Invalid {
			return c.lines[slot].Data[addr.Offset()]
		}

		// The block is still unavailable: some other cache held it
		// Modified. Its snoop handler has by now issued a write-back, so
		// retrying should succeed.
	}
}

// Write stores value at addr, guaranteeing the containing line ends in
// state Modified.
func (c *Cache) Write(addr Address, value byte) {
	c.totalCount++
	c.snoopBacklog()

	block := BlockOf(addr)

	if slot, ok := c.resident.Lookup(int(block)); ok {
		line := &c.lines[slot]
		switch line.State {
		case Modified, Exclusive:
			line.State = Modified
			line.Data[addr.Offset()] = value
			return
		case Shared:
			// Optimistic upgrade: invalidate everyone else's copy without
			// awaiting acknowledgment of the invalidation before writing
			// locally. This opens a brief window in which another cache
			// may not yet have processed the ReadExclusiveRequest — see
			// SPEC_FULL.md / DESIGN.md for why this is kept rather than
			// made conservative.
			c.send(NewReadExclusiveRequest(c.id, block))
			line.State = Modified
			line.Data[addr.Offset()] = value
			return
		case Invalid:
			// Fall through to the miss path below.
		}
	}

	c.missCount++

	for {
		c.send(NewReadExclusiveRequest(c.id, block))

		c.snoopUntil(func(msg BusMessage) bool {
			return msg.Kind == ReadExclusiveResponse && msg.Who == c.id && msg.Block == block
		})

		if slot, ok := c.resident.Lookup(int(block)); ok && c.lines[slot].State == Modified {
			c.lines[slot].Data[addr.Offset()] = value
			return
		}

		// Another cache held the block Modified; retry after its
		// snoop-driven write-back.
	}
}

// Flush writes back every Modified line and removes it from this cache.
func (c *Cache) Flush() {
	for block, slot := range c.resident.Blocks() {
		line := &c.lines[slot]
		if line.State != Modified {
			continue
		}

		c.send(NewWriteRequest(Block(block), line.Data))
		c.resident.Remove(block)
		*line = CacheLine{}
	}
}

// Empty flushes, then discards every remaining line.
func (c *Cache) Empty() {
	c.Flush()

	for block, slot := range c.resident.Blocks() {
		c.resident.Remove(block)
		c.lines[slot] = CacheLine{}
	}
}

// maybeFlush flushes the cache if it is already holding CacheSize
// entries, so that a following insert never silently drops a Modified
// line. Entries invalidated by a snoop still occupy a slot, and count
// toward CacheSize here, until Empty discards them, a refetch of the same
// block reuses the slot, or LRU replacement evicts them; Flush leaves them
// in place.
func (c *Cache) maybeFlush() {
	if c.resident.Len() == CacheSize {
		c.Flush()
	}
}

// snoopBacklog drains every message currently queued without blocking.
func (c *Cache) snoopBacklog() {
	for {
		select {
		case msg, ok := <-c.in:
			if !ok {
				panic(fmt.Sprintf("cache %d: bus channel closed while draining backlog", c.id))
			}
			c.handle(msg)
		default:
			return
		}
	}
}

// snoopUntil blocks on the bus, handling each message as it arrives,
// until one satisfies when.
func (c *Cache) snoopUntil(when func(BusMessage) bool) {
	for {
		msg, ok := <-c.in
		if !ok {
			panic(fmt.Sprintf("cache %d: bus channel closed while awaiting a response", c.id))
		}
		c.handle(msg)
		if when(msg) {
			return
		}
	}
}

// handle dispatches one bus message — snooped traffic from other caches,
// or a response to this cache's own in-flight request.
func (c *Cache) handle(msg BusMessage) {
	switch msg.Kind {
	case ReadRequest:
		if msg.Who == c.id {
			return // our own request, echoed back; inert
		}
		c.handleSnoopedReadRequest(msg)

	case ReadExclusiveRequest:
		if msg.Who == c.id {
			return
		}
		c.handleSnoopedReadExclusiveRequest(msg)

	case ReadResponse:
		if msg.Who == c.id {
			if msg.Data != nil {
				c.handleOwnReadResponse(msg)
			}
			return
		}
		if msg.Data != nil {
			c.handleSnoopedReadResponse(msg)
		}

	case ReadExclusiveResponse:
		if msg.Who == c.id && msg.Data != nil {
			c.handleOwnReadExclusiveResponse(msg)
		}

	case WriteRequest:
		// Write-backs are only of interest to main memory.
	}
}

func (c *Cache) handleSnoopedReadRequest(msg BusMessage) {
	slot, ok := c.resident.Lookup(int(msg.Block))
	if !ok {
		return
	}

	line := &c.lines[slot]
	switch line.State {
	case Invalid:
		// Nothing to share.
	case Exclusive, Shared:
		c.send(NewReadResponse(msg.Who, FromCache, msg.Block, &line.Data))
		line.State = Shared
	case Modified:
		// Dirty data must reach memory before it is shared.
		c.send(NewWriteRequest(msg.Block, line.Data))
		c.send(NewReadResponse(msg.Who, FromCache, msg.Block, &line.Data))
		line.State = Shared
	}
}

func (c *Cache) handleSnoopedReadExclusiveRequest(msg BusMessage) {
	slot, ok := c.resident.Lookup(int(msg.Block))
	if !ok {
		return
	}

	line := &c.lines[slot]
	if line.State == Modified {
		c.send(NewWriteRequest(msg.Block, line.Data))
	}
	if line.State != Invalid {
		line.State = Invalid
	}
}

func (c *Cache) handleSnoopedReadResponse(msg BusMessage) {
	slot, ok := c.resident.Lookup(int(msg.Block))
	if !ok {
		return
	}

	// Another cache just acquired a copy; an Exclusive line can no longer
	// claim to be the sole holder.
	if c.lines[slot].State == Exclusive {
		c.lines[slot].State = Shared
	}
}

func (c *Cache) handleOwnReadResponse(msg BusMessage) {
	if slot, ok := c.resident.Lookup(int(msg.Block)); ok && c.lines[slot].State != Invalid {
		// A snooping cache's response beat main memory's to us.
		if msg.Source != FromMainMemory {
			panic(fmt.Sprintf("cache %d: duplicate ReadResponse for block %d not sourced from main memory", c.id, msg.Block))
		}
		return
	}

	c.maybeFlush()
	slot, evictedBlock, evicted := c.resident.Insert(int(msg.Block))
	if evicted && c.lines[slot].State == Modified {
		panic(fmt.Sprintf("cache %d: LRU evicted Modified block %d without write-back", c.id, evictedBlock))
	}

	state := Shared
	if msg.Source == FromMainMemory {
		state = Exclusive
	}
	c.lines[slot] = CacheLine{State: state, Data: *msg.Data}
}

func (c *Cache) handleOwnReadExclusiveResponse(msg BusMessage) {
	if slot, ok := c.resident.Lookup(int(msg.Block)); ok && c.lines[slot].State == Modified {
		// The optimistic Shared->Modified upgrade (see Write) already
		// completed locally before this deferred acknowledgment of its
		// ReadExclusiveRequest arrived. Our copy is already current;
		// installing the snapshot this message carries would overwrite
		// the value the program just wrote with stale pre-write data.
		return
	}

	c.maybeFlush()
	slot, evictedBlock, evicted := c.resident.Insert(int(msg.Block))
	if evicted && c.lines[slot].State == Modified {
		panic(fmt.Sprintf("cache %d: LRU evicted Modified block %d without write-back", c.id, evictedBlock))
	}

	c.lines[slot] = CacheLine{State: Modified, Data: *msg.Data}
}
