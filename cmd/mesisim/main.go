// Command mesisim builds a MESI snooping-bus cache-coherence simulation
// and runs the standard access-pattern benchmark suite against it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/mesisim/benchmark"
	"github.com/sarchlab/mesisim/coherence"
)

var (
	numCaches = flag.Int("caches", coherence.NumberOfCaches, "number of cache agents to simulate")
	seed      = flag.Int64("seed", 1, "seed for the Random Read/Write phases")
	verbose   = flag.Bool("v", false, "print each cache's miss percent to stderr when its benchmark run ends")
	outPath   = flag.String("out", "", "optional path to additionally write the phase report as JSON")
)

func main() {
	flag.Parse()

	if *numCaches < 1 {
		fmt.Fprintln(os.Stderr, "Error: -caches must be >= 1")
		os.Exit(1)
	}

	reports, err := run(*numCaches, uint64(*seed), *verbose, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *outPath != "" {
		if err := writeJSONReport(*outPath, reports); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
	}
}

// run wires a bus, a main-memory agent, and n cache agents together, runs
// the benchmark suite on every cache concurrently, and returns cache 0's
// phase reports.
func run(n int, seed uint64, verbose bool, out *os.File) ([]benchmark.PhaseReport, error) {
	bus := coherence.NewBus(n + 1)

	var busWG sync.WaitGroup
	busWG.Add(1)
	go func() {
		defer busWG.Done()
		bus.Run()
	}()

	memory := coherence.NewMainMemory(bus.Outbound(n), bus.Inbound())
	busWG.Add(1)
	go func() {
		defer busWG.Done()
		memory.Run()
	}()

	caches := make([]*coherence.Cache, n)
	barrier := benchmark.NewBarrier(n)
	reportsByID := make([][]benchmark.PhaseReport, n)

	group := new(errgroup.Group)
	for id := 0; id < n; id++ {
		id := id
		caches[id] = coherence.NewCache(id, bus.Outbound(id), bus.Inbound())

		group.Go(func() error {
			var w io.Writer = io.Discard
			if id == 0 {
				w = out
			}
			reportsByID[id] = benchmark.Run(caches[id], barrier, id, seed, w)

			if verbose {
				fmt.Fprintf(os.Stderr, "cache %d: %.3f%% miss since its stats were last reset\n", id, caches[id].MissPercent())
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	close(bus.Inbound())
	busWG.Wait()

	return reportsByID[0], nil
}

func writeJSONReport(path string, reports []benchmark.PhaseReport) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize phase report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write phase report file: %w", err)
	}

	return nil
}
