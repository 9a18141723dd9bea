package chromem_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/logger"
	testutils "github.com/papercomputeco/docqa/pkg/utils/test"
	"github.com/papercomputeco/docqa/pkg/vector"
	"github.com/papercomputeco/docqa/pkg/vector/chromem"
)

var _ = Describe("Store", func() {
	Context("in memory", func() {
		testutils.DescribeStore(func() vector.Store {
			s, err := chromem.NewStore(chromem.Config{}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			return s
		})
	})

	Context("persisted to a directory", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "docqa-chromem-*")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
		})

		testutils.DescribeStore(func() vector.Store {
			s, err := chromem.NewStore(chromem.Config{Path: dir}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			return s
		})

		It("reloads the last saved index after reopening", func() {
			ctx := context.Background()
			saved, err := vector.Build(testutils.SampleEntries())
			Expect(err).NotTo(HaveOccurred())

			s, err := chromem.NewStore(chromem.Config{Path: dir, Compress: true}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Save(ctx, saved)).To(Succeed())
			Expect(s.Close()).To(Succeed())

			reopened, err := chromem.NewStore(chromem.Config{Path: dir, Compress: true}, nil)
			Expect(err).NotTo(HaveOccurred())
			loaded, err := reopened.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Entries()).To(Equal(saved.Entries()))
		})
	})
})
