package coherence

import "sync/atomic"

// Bus is the single broadcast fabric connecting every cache and main
// memory. Every message sent to Inbound is replayed, in the order it was
// received, to every outbound endpoint — including the endpoint owned by
// whichever participant sent it. That echo-to-sender is load-bearing: it
// is the only synchronization a cache has between emitting its own
// request and observing the traffic (including its own request) that
// followed it.
type Bus struct {
	inbound  chan BusMessage
	outbound []chan BusMessage
	pumpIn   []chan BusMessage
	delivered atomic.Uint64
}

// NewBus creates a bus with participants outbound endpoints (one per
// cache, plus one for main memory — callers decide the order and count).
// Delivery never blocks the sender: each outbound endpoint is fed by an
// internal unbounded queue, matching the spec's "reliable and lossless,
// but unbounded in principle; back-pressure is not modeled" contract.
func NewBus(participants int) *Bus {
	b := &Bus{
		inbound:  make(chan BusMessage),
		outbound: make([]chan BusMessage, participants),
		pumpIn:   make([]chan BusMessage, participants),
	}
	for i := range b.outbound {
		b.outbound[i] = make(chan BusMessage)
		b.pumpIn[i] = make(chan BusMessage)
		go pump(b.pumpIn[i], b.outbound[i])
	}
	return b
}

// Inbound returns the bus's single inbound endpoint, shared by every
// producer.
func (b *Bus) Inbound() chan<- BusMessage {
	return b.inbound
}

// Outbound returns participant i's receive-only endpoint.
func (b *Bus) Outbound(i int) <-chan BusMessage {
	return b.outbound[i]
}

// Delivered reports how many messages the bus has forwarded so far.
func (b *Bus) Delivered() uint64 {
	return b.delivered.Load()
}

// Run forwards every inbound message to every outbound endpoint until
// Inbound is closed, then closes every outbound endpoint in turn.
func (b *Bus) Run() {
	for msg := range b.inbound {
		for _, in := range b.pumpIn {
			in <- msg
		}
		b.delivered.Add(1)
	}
	for _, in := range b.pumpIn {
		close(in)
	}
}

// pump relays values from in to out without ever blocking the sender: it
// keeps an internal slice of values not yet delivered to out, so a slow
// or temporarily-inattentive receiver cannot stall the bus's fan-out loop.
func pump(in <-chan BusMessage, out chan<- BusMessage) {
	var pending []BusMessage
	for {
		if len(pending) == 0 {
			msg, ok := <-in
			if !ok {
				close(out)
				return
			}
			pending = append(pending, msg)
			continue
		}

		select {
		case msg, ok := <-in:
			if !ok {
				for _, m := range pending {
					out <- m
				}
				close(out)
				return
			}
			pending = append(pending, msg)
		case out <- pending[0]:
			pending = pending[1:]
		}
	}
}
