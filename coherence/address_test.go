package coherence_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesisim/coherence"
)

var _ = Describe("Address", func() {
	It("maps byte 0 to block 0, offset 0", func() {
		Expect(coherence.BlockOf(0)).To(Equal(coherence.Block(0)))
		Expect(coherence.Address(0).Offset()).To(Equal(0))
	})

	It("maps the last valid byte to the last block", func() {
		last := coherence.Address(coherence.MainMemorySize - 1)
		wantBlock := coherence.Block(coherence.MainMemorySize/coherence.BlockSize - 1)

		Expect(coherence.BlockOf(last)).To(Equal(wantBlock))
		Expect(last.Offset()).To(Equal(coherence.BlockSize - 1))
	})

	It("round-trips a block's address range back to that block", func() {
		for _, b := range []coherence.Block{0, 1, 7, coherence.Block(coherence.MainMemorySize/coherence.BlockSize - 1)} {
			start, end := b.AddressRange()
			Expect(end - start).To(Equal(coherence.Address(coherence.BlockSize)))
			Expect(coherence.BlockOf(start)).To(Equal(b))
			Expect(coherence.BlockOf(end - 1)).To(Equal(b))
		}
	})
})
