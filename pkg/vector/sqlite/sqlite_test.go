package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/logger"
	testutils "github.com/papercomputeco/docqa/pkg/utils/test"
	"github.com/papercomputeco/docqa/pkg/vector"
	"github.com/papercomputeco/docqa/pkg/vector/sqlite"
)

var _ = Describe("Store", func() {
	It("requires a database path", func() {
		_, err := sqlite.NewStore(sqlite.Config{}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("database path is required")))
	})

	testutils.DescribeStore(func() vector.Store {
		s, err := sqlite.NewStore(sqlite.Config{DBPath: ":memory:"}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		return s
	})

	It("persists across reopening the file", func() {
		ctx := context.Background()
		dir, err := os.MkdirTemp("", "docqa-sqlite-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		path := filepath.Join(dir, sqlite.DefaultFileName)

		saved, err := vector.Build(testutils.SampleEntries())
		Expect(err).NotTo(HaveOccurred())

		s, err := sqlite.NewStore(sqlite.Config{DBPath: path}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Save(ctx, saved)).To(Succeed())
		Expect(s.Close()).To(Succeed())

		reopened, err := sqlite.NewStore(sqlite.Config{DBPath: path}, nil)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		loaded, err := reopened.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Entries()).To(Equal(saved.Entries()))
	})

	It("rolls back a cancelled save", func() {
		s, err := sqlite.NewStore(sqlite.Config{DBPath: ":memory:"}, nil)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		ctx := context.Background()
		saved, err := vector.Build(testutils.SampleEntries())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Save(ctx, saved)).To(Succeed())

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		Expect(s.Save(cctx, vector.Empty())).NotTo(Succeed())

		loaded, err := s.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Len()).To(Equal(saved.Len()))
	})
})
