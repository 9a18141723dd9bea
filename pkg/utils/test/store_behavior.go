package testutils

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/vector"
)

// DescribeStore registers the behavior every vector.Store must have.
// newStore is called once per test and the store is closed afterwards.
func DescribeStore(newStore func() vector.Store) {
	Describe("vector.Store behavior", func() {
		var (
			ctx   context.Context
			store vector.Store
		)

		BeforeEach(func() {
			ctx = context.Background()
			store = newStore()
			DeferCleanup(func() {
				Expect(store.Close()).To(Succeed())
			})
		})

		It("loads an empty index when nothing was saved", func() {
			ix, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ix.Len()).To(BeZero())
		})

		It("answers every query identically after a round-trip", func() {
			saved, err := vector.Build(SampleEntries())
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Save(ctx, saved)).To(Succeed())

			loaded, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Entries()).To(Equal(saved.Entries()))
			Expect(loaded.Dim()).To(Equal(saved.Dim()))

			for _, p := range QueryCases() {
				want, err := saved.Query(p.Vector, p.K, p.Threshold)
				Expect(err).NotTo(HaveOccurred())
				got, err := loaded.Query(p.Vector, p.K, p.Threshold)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(want))
			}
		})

		It("replaces the previous index wholesale", func() {
			first, err := vector.Build(SampleEntries())
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Save(ctx, first)).To(Succeed())

			second, err := vector.Build(SampleEntries()[:2])
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Save(ctx, second)).To(Succeed())

			loaded, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Entries()).To(Equal(second.Entries()))
		})

		It("saves an empty index", func() {
			full, err := vector.Build(SampleEntries())
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Save(ctx, full)).To(Succeed())
			Expect(store.Save(ctx, vector.Empty())).To(Succeed())

			loaded, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Len()).To(BeZero())
		})
	})
}
