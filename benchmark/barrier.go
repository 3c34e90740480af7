// Package benchmark drives a coherence.Cache through a fixed suite of
// access patterns and reports per-phase timing and miss rates.
package benchmark

import "sync/atomic"

// Barrier synchronizes the start of each benchmark phase across a fixed
// number of participants using a single monotone epoch counter, without
// relying on process-wide mutable state: callers construct one Barrier
// and share it across every cache goroutine.
type Barrier struct {
	participants int
	epoch        atomic.Uint64
}

// NewBarrier creates a Barrier for the given number of participants.
func NewBarrier(participants int) *Barrier {
	return &Barrier{participants: participants}
}

// Arrive marks the caller's arrival at the end of phase (1-indexed) and
// blocks until every participant has arrived, i.e. until the epoch
// reaches phase*participants.
func (b *Barrier) Arrive(phase int) {
	startOfPhase := uint64(phase-1) * uint64(b.participants)
	endOfPhase := uint64(phase) * uint64(b.participants)

	epoch := b.epoch.Load()
	if epoch < startOfPhase || epoch >= endOfPhase {
		panic("barrier arrived outside of its expected phase window")
	}

	if b.epoch.Add(1) != endOfPhase {
		for b.epoch.Load() < endOfPhase {
			// busy-wait for the rest of the phase's participants
		}
	}
}
