package benchmark_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesisim/benchmark"
	"github.com/sarchlab/mesisim/coherence"
)

var _ = Describe("Patterns", func() {
	It("Sequential visits every address in order", func() {
		p := benchmark.Sequential()
		for i := 0; i < 10; i++ {
			Expect(p(i)).To(Equal(coherence.Address(i)))
		}
	})

	It("Random is reproducible for a fixed seed and bounded to the address space", func() {
		a := benchmark.Random(42)
		b := benchmark.Random(42)

		for i := 0; i < 100; i++ {
			av, bv := a(i), b(i)
			Expect(av).To(Equal(bv))
			Expect(av).To(BeNumerically(">=", 0))
			Expect(av).To(BeNumerically("<", coherence.MainMemorySize))
		}
	})

	It("Random differs across seeds with overwhelming probability", func() {
		a := benchmark.Random(1)
		b := benchmark.Random(2)

		differed := false
		for i := 0; i < 20; i++ {
			if a(i) != b(i) {
				differed = true
				break
			}
		}
		Expect(differed).To(BeTrue())
	})

	It("ThreadUniqueChunk confines each id to its own, non-overlapping range", func() {
		p0 := benchmark.ThreadUniqueChunk(0)
		p1 := benchmark.ThreadUniqueChunk(1)

		for i := 0; i < benchmark.ChunkSize*2; i++ {
			Expect(p0(i)).To(BeNumerically("<", benchmark.ChunkSize))
			Expect(p1(i)).To(BeNumerically(">=", benchmark.ChunkSize))
			Expect(p1(i)).To(BeNumerically("<", 2*benchmark.ChunkSize))
		}
	})

	It("SharedChunk visits the same addresses regardless of id", func() {
		p := benchmark.SharedChunk()
		for i := 0; i < benchmark.ChunkSize; i++ {
			Expect(p(i)).To(Equal(coherence.Address(i % benchmark.ChunkSize)))
		}
	})

	It("FalseSharingChunk keeps every id within the shared chunk", func() {
		for id := 0; id < 8; id++ {
			p := benchmark.FalseSharingChunk(id)
			for i := 0; i < 16; i++ {
				Expect(p(i)).To(BeNumerically(">=", 0))
				Expect(p(i)).To(BeNumerically("<", benchmark.ChunkSize))
			}
		}
	})
})
