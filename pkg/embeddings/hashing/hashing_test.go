package hashing_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/embeddings/hashing"
	"github.com/papercomputeco/docqa/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		e   *hashing.Embedder
		ctx context.Context
	)

	BeforeEach(func() {
		e = hashing.NewEmbedder(0)
		ctx = context.Background()
	})

	It("tokenizes on non-alphanumerics and lowercases", func() {
		Expect(hashing.Tokens("When was Napoleon born? 1769!")).To(Equal([]string{"when", "was", "napoleon", "born", "1769"}))
	})

	It("is deterministic and uses the default dimensions", func() {
		a, err := e.Embed(ctx, "Napoleon was born in 1769.")
		Expect(err).NotTo(HaveOccurred())
		b, err := e.Embed(ctx, "napoleon WAS born in 1769")
		Expect(err).NotTo(HaveOccurred())

		Expect(a).To(HaveLen(hashing.DefaultDimensions))
		Expect(a).To(Equal(b))
	})

	It("embeds text without tokens as the zero vector", func() {
		v, err := e.Embed(ctx, "?! ...")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(HaveEach(BeZero()))
	})

	It("scores overlapping text above unrelated text", func() {
		chunks := []string{"Napoleon was born in 1769. He ", ". He became Emperor in 1804."}
		entries := make([]vector.Entry, 0, len(chunks))
		for _, c := range chunks {
			v, err := e.Embed(ctx, c)
			Expect(err).NotTo(HaveOccurred())
			entries = append(entries, vector.Entry{Vector: v})
			entries[len(entries)-1].Chunk.Text = c
		}
		ix, err := vector.Build(entries)
		Expect(err).NotTo(HaveOccurred())

		q, err := e.Embed(ctx, "When was Napoleon born?")
		Expect(err).NotTo(HaveOccurred())

		results, err := ix.Query(q, 1, 0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Chunk.Text).To(HavePrefix("Napoleon was born"))
	})

	It("honors a cancelled context", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := e.Embed(cctx, "text")
		Expect(err).To(MatchError(context.Canceled))
	})
})
