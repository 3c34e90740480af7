package benchmark_test

import (
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesisim/benchmark"
)

var _ = Describe("Barrier", func() {
	It("releases every participant only once all have arrived", func() {
		const n = 4
		b := benchmark.NewBarrier(n)

		var arrived atomic.Int32
		var wg sync.WaitGroup
		ready := make(chan struct{})

		wg.Add(n - 1)
		for i := 0; i < n-1; i++ {
			go func() {
				defer wg.Done()
				<-ready
				b.Arrive(1)
				arrived.Add(1)
			}()
		}

		close(ready)
		Consistently(arrived.Load, "20ms").Should(BeNumerically("<", n-1),
			"the barrier must not release before the last participant arrives")

		b.Arrive(1)
		wg.Wait() // must not hang once the last participant arrives

		Expect(arrived.Load()).To(Equal(int32(n - 1)))
	})

	It("advances through successive phases in order", func() {
		b := benchmark.NewBarrier(1)

		b.Arrive(1)
		b.Arrive(2)
		b.Arrive(3)
	})

	It("panics when a participant arrives outside its phase window", func() {
		b := benchmark.NewBarrier(2)

		Expect(func() { b.Arrive(2) }).To(Panic())
	})
})
