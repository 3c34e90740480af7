package coherence

// MessageKind discriminates the wire shape of a BusMessage.
type MessageKind int

const (
	// ReadRequest asks to obtain a block for reading.
	ReadRequest MessageKind = iota
	// ReadResponse carries a block's payload in response to a ReadRequest.
	ReadResponse
	// ReadExclusiveRequest asks to obtain a block for writing.
	ReadExclusiveRequest
	// ReadExclusiveResponse carries a block's payload, with modify intent,
	// in response to a ReadExclusiveRequest.
	ReadExclusiveResponse
	// WriteRequest is an unconditional write-back of a block to main memory.
	WriteRequest
)

func (k MessageKind) String() string {
	switch k {
	case ReadRequest:
		return "ReadRequest"
	case ReadResponse:
		return "ReadResponse"
	case ReadExclusiveRequest:
		return "ReadExclusiveRequest"
	case ReadExclusiveResponse:
		return "ReadExclusiveResponse"
	case WriteRequest:
		return "WriteRequest"
	default:
		return "Unknown"
	}
}

// ResponseSource identifies who answered a ReadRequest: another cache's
// snoop handler, or main memory. The requester uses it to decide whether
// the resulting line should become Shared or Exclusive.
type ResponseSource int

const (
	// FromMainMemory marks a ReadResponse as having been served by main
	// memory. Memory answers every ReadRequest for a block not claimed for
	// modification, whether or not another cache also holds a copy.
	FromMainMemory ResponseSource = iota
	// FromCache marks a ReadResponse as having been served by a snooping
	// cache's own copy.
	FromCache
)

// BlockData is the fixed-size payload of one coherence block.
type BlockData [BlockSize]byte

// BusMessage is the single wire type carried by the bus. Which fields are
// meaningful depends on Kind; see the constructors below.
//
// Data is nil exactly when a response means "unavailable" (the requested
// block is Modified in some other cache and cannot be served yet) — the
// spec's data=None case. WriteRequest.Data is always non-nil.
type BusMessage struct {
	Kind   MessageKind
	Who    int
	Block  Block
	Data   *BlockData
	Source ResponseSource
}

// NewReadRequest builds a request from cache who to read block.
func NewReadRequest(who int, block Block) BusMessage {
	return BusMessage{Kind: ReadRequest, Who: who, Block: block}
}

// NewReadResponse builds a reply to who's ReadRequest. data == nil means
// the block is currently unavailable (Modified elsewhere).
func NewReadResponse(who int, source ResponseSource, block Block, data *BlockData) BusMessage {
	return BusMessage{Kind: ReadResponse, Who: who, Block: block, Data: data, Source: source}
}

// NewReadExclusiveRequest builds a request from cache who to write block.
func NewReadExclusiveRequest(who int, block Block) BusMessage {
	return BusMessage{Kind: ReadExclusiveRequest, Who: who, Block: block}
}

// NewReadExclusiveResponse builds a reply to who's ReadExclusiveRequest.
// data == nil means the block is currently unavailable.
func NewReadExclusiveResponse(who int, block Block, data *BlockData) BusMessage {
	return BusMessage{Kind: ReadExclusiveResponse, Who: who, Block: block, Data: data}
}

// NewWriteRequest builds an unconditional write-back of block to main
// memory.
func NewWriteRequest(block Block, data BlockData) BusMessage {
	return BusMessage{Kind: WriteRequest, Block: block, Data: &data}
}
