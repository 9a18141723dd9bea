package cache_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/embeddings/cache"
	testutils "github.com/papercomputeco/docqa/pkg/utils/test"
)

var _ = Describe("Embedder", func() {
	var (
		inner *testutils.MockEmbedder
		e     *cache.Embedder
		ctx   context.Context
	)

	BeforeEach(func() {
		inner = testutils.NewMockEmbedder()
		inner.Embeddings["hello"] = []float32{1, 2}
		e = cache.New(inner, time.Minute)
		ctx = context.Background()
	})

	It("embeds each text once", func() {
		for range 3 {
			v, err := e.Embed(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal([]float32{1, 2}))
		}
		Expect(inner.Calls()).To(Equal(1))
		Expect(e.Len()).To(Equal(1))
	})

	It("hands out copies that callers may modify", func() {
		v, err := e.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		v[0] = 99

		again, err := e.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(Equal([]float32{1, 2}))
	})

	It("does not cache failures", func() {
		inner.FailOn = "bad"
		_, err := e.Embed(ctx, "bad")
		Expect(err).To(MatchError(testutils.ErrMockEmbedding))
		_, err = e.Embed(ctx, "bad")
		Expect(err).To(HaveOccurred())

		Expect(inner.Calls()).To(Equal(2))
		Expect(e.Len()).To(BeZero())
	})

	It("re-embeds after the entry expires", func() {
		short := cache.New(inner, 20*time.Millisecond)
		_, err := short.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() int {
			_, _ = short.Embed(ctx, "hello")
			return inner.Calls()
		}).Should(BeNumerically(">=", 2))
	})
})
