package backend_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/o3sim/timing/backend"
)

var _ = Describe("RSTable", func() {
	var table *backend.RSTable

	BeforeEach(func() {
		table = backend.NewRSTable(3)
	})

	It("should allocate busy stations and track free ones", func() {
		Expect(table.HasFree()).To(BeTrue())

		rsIndex := table.Allocate()
		Expect(table.Get(rsIndex).State).To(Equal(backend.RSBusy))

		table.Allocate()
		table.Allocate()
		Expect(table.HasFree()).To(BeFalse())
		Expect(func() { table.Allocate() }).To(Panic())
	})

	It("should return deallocated stations to the free stack", func() {
		rsIndex := table.Allocate()
		table.Allocate()
		table.Allocate()

		table.Deallocate(rsIndex)
		Expect(table.HasFree()).To(BeTrue())
		Expect(table.Get(rsIndex).State).To(Equal(backend.RSIdle))

		// The pool does not shrink over repeated allocate/deallocate.
		for k := 0; k < 10; k++ {
			next := table.Allocate()
			table.Deallocate(next)
		}
		Expect(table.HasFree()).To(BeTrue())
	})

	It("should dequeue ready stations in FIFO order", func() {
		table.EnqueueReady(2)
		table.EnqueueReady(0)

		Expect(table.HasReady()).To(BeTrue())
		Expect(table.DequeueReady()).To(Equal(uint16(2)))
		Expect(table.DequeueReady()).To(Equal(uint16(0)))
		Expect(table.HasReady()).To(BeFalse())
	})

	It("should panic when dequeueing from an empty ready queue", func() {
		Expect(func() { table.DequeueReady() }).To(Panic())
	})

	It("should report readiness only when all sources are ready", func() {
		rsIndex := table.Allocate()
		rs := table.Get(rsIndex)
		rs.SourceCnt = 2
		rs.SourceReadyCnt = 1
		Expect(rs.Ready()).To(BeFalse())

		rs.SourceReadyCnt = 2
		Expect(rs.Ready()).To(BeTrue())
	})

	It("should flush busy stations and the ready queue", func() {
		a := table.Allocate()
		b := table.Allocate()
		table.EnqueueReady(a)
		table.EnqueueReady(b)

		table.Flush()

		Expect(table.HasReady()).To(BeFalse())
		Expect(table.HasFree()).To(BeTrue())
		Expect(table.Get(a).State).To(Equal(backend.RSIdle))
		Expect(table.Get(b).State).To(Equal(backend.RSIdle))

		for k := 0; k < 3; k++ {
			table.Allocate()
		}
		Expect(table.HasFree()).To(BeFalse())
	})
})

var _ = Describe("EUPool", func() {
	var pool *backend.EUPool

	BeforeEach(func() {
		pool = backend.NewEUPool(2)
	})

	It("should allocate idle units as executing", func() {
		euIndex := pool.Allocate()
		Expect(pool.Get(euIndex).State).To(Equal(backend.EUExecuting))

		pool.Allocate()
		Expect(pool.HasIdle()).To(BeFalse())
		Expect(func() { pool.Allocate() }).To(Panic())
	})

	It("should reset units on deallocate", func() {
		euIndex := pool.Allocate()
		eu := pool.Get(euIndex)
		eu.RSIndex = 7
		eu.CyclesRemaining = 3

		pool.Deallocate(euIndex)

		Expect(eu.State).To(Equal(backend.EUIdle))
		Expect(eu.CyclesRemaining).To(Equal(uint8(0)))
		Expect(pool.HasIdle()).To(BeTrue())
	})

	It("should flush every unit back to idle", func() {
		pool.Allocate()
		pool.Allocate()
		pool.Flush()
		Expect(pool.HasIdle()).To(BeTrue())
		pool.Allocate()
		pool.Allocate()
		Expect(pool.HasIdle()).To(BeFalse())
	})
})
