package vectorutils_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/logger"
	"github.com/papercomputeco/docqa/pkg/vector/chromem"
	"github.com/papercomputeco/docqa/pkg/vector/inmemory"
	"github.com/papercomputeco/docqa/pkg/vector/qdrant"
	"github.com/papercomputeco/docqa/pkg/vector/sqlite"
	vectorutils "github.com/papercomputeco/docqa/pkg/vector/utils"
)

var _ = Describe("NewStore", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("defaults to sqlite", func() {
		dir, err := os.MkdirTemp("", "docqa-store-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		s, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{
			Target: filepath.Join(dir, sqlite.DefaultFileName),
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()
		Expect(s).To(BeAssignableToTypeOf(&sqlite.Store{}))
	})

	It("builds the in-memory store", func() {
		s, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{ProviderType: vectorutils.ProviderMemory})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&inmemory.Store{}))
	})

	It("builds an in-memory chromem store without a target", func() {
		s, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{ProviderType: vectorutils.ProviderChromem})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&chromem.Store{}))
	})

	It("builds a qdrant store from host:port and from a bare host", func() {
		for _, target := range []string{"localhost:6334", "qdrant.internal"} {
			s, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{
				ProviderType: vectorutils.ProviderQdrant,
				Target:       target,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(BeAssignableToTypeOf(&qdrant.Store{}))
			Expect(s.Close()).To(Succeed())
		}
	})

	It("rejects a qdrant target with a bad port", func() {
		_, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{
			ProviderType: vectorutils.ProviderQdrant,
			Target:       "localhost:grpc",
		})
		Expect(err).To(MatchError(ContainSubstring("invalid qdrant port")))
	})

	It("requires a postgres connection string", func() {
		_, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{ProviderType: vectorutils.ProviderPostgres})
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{ProviderType: "faiss"})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider: faiss")))
	})
})
