package coherence

import "time"

// MainMemoryLatency models main memory being roughly an order of
// magnitude slower than a cache: every message the memory agent handles
// is preceded by this simulated delay.
const MainMemoryLatency = 100 * time.Microsecond

// numBlocks is the number of coherence blocks the address space covers.
const numBlocks = MainMemorySize / BlockSize

// MainMemory is the authoritative byte store and coherence participant
// of last resort. It tracks, per block, whether some cache has claimed
// the block for modification (a granted ReadExclusiveRequest) and has not
// yet written it back — while that bit is set, memory's own copy is stale
// and reads must be refused. A cache holding a block Exclusive after a
// plain read does not set the bit.
type MainMemory struct {
	data                     [MainMemorySize]byte
	heldExclusivelyElsewhere [numBlocks]bool

	in  <-chan BusMessage
	out chan<- BusMessage
}

// NewMainMemory creates a MainMemory agent reading from in and replying
// on out. Both are expected to be a Bus's per-participant endpoints.
func NewMainMemory(in <-chan BusMessage, out chan<- BusMessage) *MainMemory {
	return &MainMemory{in: in, out: out}
}

// Run serves requests until in is closed.
func (m *MainMemory) Run() {
	for msg := range m.in {
		time.Sleep(MainMemoryLatency)

		switch msg.Kind {
		case ReadRequest:
			m.handleReadRequest(msg)
		case ReadExclusiveRequest:
			m.handleReadExclusiveRequest(msg)
		case WriteRequest:
			m.handleWriteRequest(msg)
		case ReadResponse, ReadExclusiveResponse:
			// Responses are addressed to caches; memory never awaits one.
		}
	}
}

func (m *MainMemory) handleReadRequest(msg BusMessage) {
	if m.heldExclusivelyElsewhere[msg.Block] {
		m.out <- NewReadResponse(msg.Who, FromMainMemory, msg.Block, nil)
		return
	}

	data := m.read(msg.Block)
	m.out <- NewReadResponse(msg.Who, FromMainMemory, msg.Block, &data)
}

func (m *MainMemory) handleReadExclusiveRequest(msg BusMessage) {
	if m.heldExclusivelyElsewhere[msg.Block] {
		m.out <- NewReadExclusiveResponse(msg.Who, msg.Block, nil)
		return
	}

	m.heldExclusivelyElsewhere[msg.Block] = true
	data := m.read(msg.Block)
	m.out <- NewReadExclusiveResponse(msg.Who, msg.Block, &data)
}

// handleWriteRequest absorbs a write-back. A write-back is the only way a
// Modified line returns to coherent visibility, so once the bytes land in
// memory any subsequent reader may be served from here again.
func (m *MainMemory) handleWriteRequest(msg BusMessage) {
	m.heldExclusivelyElsewhere[msg.Block] = false
	start, end := msg.Block.AddressRange()
	copy(m.data[start:end], msg.Data[:])
}

func (m *MainMemory) read(block Block) BlockData {
	var data BlockData
	start, end := block.AddressRange()
	copy(data[:], m.data[start:end])
	return data
}

// Bytes returns a defensive copy of the full byte array, for
// verification after a run has completed.
func (m *MainMemory) Bytes() []byte {
	out := make([]byte, MainMemorySize)
	copy(out, m.data[:])
	return out
}
