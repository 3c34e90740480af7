package coherence_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesisim/coherence"
)

var _ = Describe("MainMemory", func() {
	var (
		in     chan coherence.BusMessage
		out    chan coherence.BusMessage
		memory *coherence.MainMemory
	)

	BeforeEach(func() {
		in = make(chan coherence.BusMessage)
		out = make(chan coherence.BusMessage, 8)
		memory = coherence.NewMainMemory(in, out)
		go memory.Run()
	})

	AfterEach(func() {
		close(in)
	})

	It("serves a ReadRequest with the block's current bytes, sourced from memory", func() {
		in <- coherence.NewReadRequest(3, coherence.Block(0))

		resp := <-out
		Expect(resp.Kind).To(Equal(coherence.ReadResponse))
		Expect(resp.Who).To(Equal(3))
		Expect(resp.Source).To(Equal(coherence.FromMainMemory))
		Expect(resp.Data).NotTo(BeNil())
		Expect(*resp.Data).To(Equal(coherence.BlockData{}))
	})

	It("grants a ReadExclusiveRequest and marks the block held elsewhere", func() {
		in <- coherence.NewReadExclusiveRequest(5, coherence.Block(2))

		resp := <-out
		Expect(resp.Kind).To(Equal(coherence.ReadExclusiveResponse))
		Expect(resp.Who).To(Equal(5))
		Expect(resp.Data).NotTo(BeNil())

		in <- coherence.NewReadRequest(6, coherence.Block(2))
		Expect((<-out).Data).To(BeNil(), "the grant must mark block 2 held elsewhere")
	})

	It("refuses a ReadRequest for a block held exclusively elsewhere", func() {
		in <- coherence.NewReadExclusiveRequest(5, coherence.Block(2))
		<-out

		in <- coherence.NewReadRequest(6, coherence.Block(2))
		resp := <-out
		Expect(resp.Kind).To(Equal(coherence.ReadResponse))
		Expect(resp.Data).To(BeNil())
	})

	It("refuses a second ReadExclusiveRequest for a block already held exclusively elsewhere", func() {
		in <- coherence.NewReadExclusiveRequest(5, coherence.Block(2))
		<-out

		in <- coherence.NewReadExclusiveRequest(6, coherence.Block(2))
		resp := <-out
		Expect(resp.Kind).To(Equal(coherence.ReadExclusiveResponse))
		Expect(resp.Data).To(BeNil())
	})

	It("becomes servable again, with the written bytes, after a write-back", func() {
		in <- coherence.NewReadExclusiveRequest(5, coherence.Block(2))
		<-out

		var data coherence.BlockData
		data[0] = 0x42
		in <- coherence.NewWriteRequest(coherence.Block(2), data)

		in <- coherence.NewReadRequest(6, coherence.Block(2))
		resp := <-out
		Expect(resp.Data).NotTo(BeNil())
		Expect(resp.Data[0]).To(Equal(byte(0x42)))
	})

	It("reflects a write-back in Bytes", func() {
		var data coherence.BlockData
		data[0] = 0x7

		in <- coherence.NewWriteRequest(coherence.Block(0), data)
		in <- coherence.NewReadRequest(0, coherence.Block(1)) // drain, ensure ordering
		<-out

		Expect(memory.Bytes()[0]).To(Equal(byte(0x7)))
	})
})
