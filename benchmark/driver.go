package benchmark

import (
	"fmt"
	"io"
	"time"

	"github.com/sarchlab/mesisim/coherence"
)

// phase describes one step of the benchmark: a named access pattern run
// for coherence.MainMemorySize accesses, either all reads or all writes.
type phase struct {
	name    string
	pattern Pattern
	write   bool
}

// phases builds the nine-phase suite for cache id, in the fixed order
// the driver's output contract requires.
func phases(id int, seed uint64) []phase {
	return []phase{
		{"Sequential Read", Sequential(), false},
		{"Sequential Write", Sequential(), true},
		{"Random Read", Random(seed), false},
		{"Random Write", Random(seed + 1), true},
		{"Thread-Unique Chunk Read", ThreadUniqueChunk(id), false},
		{"Thread-Unique Chunk Write", ThreadUniqueChunk(id), true},
		{"Shared Chunk Read", SharedChunk(), false},
		{"Shared Chunk Write", SharedChunk(), true},
		{"False-Sharing Chunk Write", FalseSharingChunk(id), true},
	}
}

// PhaseReport is one phase's timing and miss-rate result.
type PhaseReport struct {
	Phase      string  `json:"phase"`
	Milliseconds int64 `json:"milliseconds"`
	MissPercent  float64 `json:"miss_percent"`
}

// Run drives cache through every phase in order, synchronizing with the
// other participants of barrier after each one. Only the cache whose id
// is 0 produces reports (and prints them to out as it goes); every other
// cache still flushes, waits at the barrier, and empties in lockstep,
// matching the driver's shared-barrier contract. Callers that don't need
// the text report may pass io.Discard.
func Run(cache *coherence.Cache, barrier *Barrier, id int, seed uint64, out io.Writer) []PhaseReport {
	timer := time.Now()
	value := byte(id)

	var reports []PhaseReport

	for i, p := range phases(id, seed) {
		for step := 0; step < coherence.MainMemorySize; step++ {
			addr := p.pattern(step)
			if p.write {
				cache.Write(addr, value)
			} else {
				cache.Read(addr)
			}
		}

		if report, ok := synchronizePhase(cache, barrier, id, i+1, p.name, &timer, out); ok {
			reports = append(reports, report)
		}
	}

	return reports
}

// synchronizePhase flushes the cache, waits for every participant to
// finish the phase, reports (from cache 0 only), and empties the cache
// before the next phase begins.
func synchronizePhase(cache *coherence.Cache, barrier *Barrier, id int, phaseNumber int, name string, timer *time.Time, out io.Writer) (PhaseReport, bool) {
	cache.Flush()
	barrier.Arrive(phaseNumber)

	var report PhaseReport
	var reported bool

	if id == 0 {
		now := time.Now()
		report = PhaseReport{
			Phase:        name,
			Milliseconds: now.Sub(*timer).Milliseconds(),
			MissPercent:  cache.MissPercent(),
		}
		reported = true

		fmt.Fprintf(out, "%s:\n\t%d ms\n\t%.3f %% cache miss\n\n",
			report.Phase, report.Milliseconds, report.MissPercent)

		cache.ResetStats()
		*timer = now
	}

	cache.Empty()

	return report, reported
}
