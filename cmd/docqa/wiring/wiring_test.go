package wiring_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/cmd/docqa/wiring"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/document"
)

func offlineConfig() *config.Config {
	cfg, err := config.PresetConfig("offline")
	Expect(err).NotTo(HaveOccurred())
	zero := 0.0
	cfg.Retrieval.Threshold = &zero
	return cfg
}

var _ = Describe("Runtime", func() {
	var (
		ctx    context.Context
		tmpDir string
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		tmpDir, err = os.MkdirTemp("", "docqa-wiring-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tmpDir)
	})

	It("indexes and retrieves without a generator", func() {
		rt, err := wiring.New(ctx, offlineConfig(), wiring.Options{ConfigDir: tmpDir})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(rt.Close, ctx)

		Expect(rt.Pipeline).To(BeNil())
		Expect(rt.Generator).To(BeNil())

		stats, err := rt.Indexer.Rebuild(ctx, []document.Document{
			{Source: "cats.txt", Text: "Cats purr when they are content."},
			{Source: "dogs.txt", Text: "Dogs bark at the mail carrier."},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Chunks).To(Equal(2))

		results, err := rt.Retriever.Retrieve(ctx, "why do cats purr", 1, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Chunk.Metadata).To(HaveKeyWithValue(document.MetaSource, "cats.txt"))
	})

	It("restores a persisted index in a later runtime", func() {
		first, err := wiring.New(ctx, offlineConfig(), wiring.Options{ConfigDir: tmpDir})
		Expect(err).NotTo(HaveOccurred())
		_, err = first.Indexer.Rebuild(ctx, []document.Document{{Source: "a.txt", Text: "persist me"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Close(ctx)).To(Succeed())

		second, err := wiring.New(ctx, offlineConfig(), wiring.Options{ConfigDir: tmpDir, Restore: true})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(second.Close, ctx)

		Expect(second.Handle.Load().Len()).To(Equal(1))
	})

	It("builds the answering pipeline on request", func() {
		rt, err := wiring.New(ctx, offlineConfig(), wiring.Options{ConfigDir: tmpDir, Generator: true})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(rt.Close, ctx)

		Expect(rt.Pipeline).NotTo(BeNil())
		Expect(rt.Pipeline.TopK()).To(Equal(4))
		Expect(rt.Pipeline.Threshold()).To(BeZero())
	})

	It("fails with an authentication error when a provider key is missing", func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "")

		cfg := offlineConfig()
		cfg.LLM.Provider = "openai"

		_, err := wiring.New(ctx, cfg, wiring.Options{ConfigDir: tmpDir, Generator: true})
		Expect(err).To(MatchError(credentials.ErrAuthentication))
	})

	It("rejects an invalid prompt template", func() {
		cfg := offlineConfig()
		cfg.Prompt.Template = "no slots at all"

		_, err := wiring.New(ctx, cfg, wiring.Options{ConfigDir: tmpDir, Generator: true})
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unknown store provider", func() {
		cfg := offlineConfig()
		cfg.VectorStore.Provider = "cassandra"

		_, err := wiring.New(ctx, cfg, wiring.Options{ConfigDir: tmpDir})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})
})
