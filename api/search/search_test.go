package search_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/api/search"
	"github.com/papercomputeco/docqa/pkg/document"
	"github.com/papercomputeco/docqa/pkg/logger"
	"github.com/papercomputeco/docqa/pkg/vector"
)

type fakeSearcher struct {
	results []vector.Result
	err     error

	gotK         int
	gotThreshold float64
}

func (f *fakeSearcher) Search(_ context.Context, _ string, k int, threshold float64) ([]vector.Result, error) {
	f.gotK, f.gotThreshold = k, threshold
	return f.results, f.err
}

func (f *fakeSearcher) TopK() int          { return 4 }
func (f *fakeSearcher) Threshold() float64 { return 0.7 }

var _ = Describe("Search", func() {
	var (
		searcher *fakeSearcher
		ctx      context.Context
	)

	BeforeEach(func() {
		searcher = &fakeSearcher{
			results: []vector.Result{
				{
					Chunk: document.Chunk{
						DocumentID: "faq.csv#row 2",
						Seq:        0,
						Text:       "Where are invoices?",
						Metadata: map[string]string{
							document.MetaSource:  "faq.csv",
							document.MetaLocator: "row 2",
							"response":           "Under billing.",
						},
					},
					Score: 0.91,
				},
				{
					Chunk: document.Chunk{
						DocumentID: "notes.txt",
						Seq:        3,
						Text:       "Billing runs monthly.",
						Metadata:   map[string]string{document.MetaSource: "notes.txt"},
					},
					Score: 0.75,
				},
			},
		}
		ctx = context.Background()
	})

	It("uses the searcher defaults when the input leaves them unset", func() {
		output, err := search.Search(ctx, searcher, search.SearchInput{Query: "invoices"}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(searcher.gotK).To(Equal(4))
		Expect(searcher.gotThreshold).To(Equal(0.7))
		Expect(output.Query).To(Equal("invoices"))
		Expect(output.Count).To(Equal(2))
	})

	It("passes explicit top_k and threshold through, including a zero threshold", func() {
		zero := 0.0
		_, err := search.Search(ctx, searcher, search.SearchInput{Query: "q", TopK: 9, Threshold: &zero}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(searcher.gotK).To(Equal(9))
		Expect(searcher.gotThreshold).To(BeZero())
	})

	It("flattens chunks into ranked results", func() {
		output, err := search.Search(ctx, searcher, search.SearchInput{Query: "q"}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		first := output.Results[0]
		Expect(first.Rank).To(Equal(1))
		Expect(first.Source).To(Equal("faq.csv"))
		Expect(first.Locator).To(Equal("row 2"))
		Expect(first.Metadata).To(Equal(map[string]string{"response": "Under billing."}))

		second := output.Results[1]
		Expect(second.Rank).To(Equal(2))
		Expect(second.Seq).To(Equal(3))
		Expect(second.Locator).To(BeEmpty())
		Expect(second.Metadata).To(BeNil())
	})

	It("returns the searcher error", func() {
		searcher.err = errors.New("index unavailable")
		_, err := search.Search(ctx, searcher, search.SearchInput{Query: "q"}, logger.Nop())
		Expect(err).To(MatchError("index unavailable"))
	})

	It("returns an empty, non-nil result list when nothing matches", func() {
		searcher.results = nil
		output, err := search.Search(ctx, searcher, search.SearchInput{Query: "q"}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Results).NotTo(BeNil())
		Expect(output.Count).To(BeZero())
	})
})
