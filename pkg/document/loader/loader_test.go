package loader_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/document"
	"github.com/papercomputeco/docqa/pkg/document/loader"
)

const faqCSV = `prompt,response,topic
How do I reset my password?,Use the account page.,account
,orphan row,misc
Where are invoices?,Under billing.,billing
`

var _ = Describe("Loader", func() {
	Describe("KindOf", func() {
		DescribeTable("classifies by extension",
			func(name string, kind loader.Kind, ok bool) {
				got, gotOK := loader.KindOf(name)
				Expect(gotOK).To(Equal(ok))
				Expect(got).To(Equal(kind))
			},
			Entry("text", "notes.txt", loader.KindText, true),
			Entry("markdown", "README.MD", loader.KindText, true),
			Entry("csv", "faq.csv", loader.KindCSV, true),
			Entry("pdf", "book.pdf", loader.KindPDF, true),
			Entry("unsupported", "image.png", loader.Kind(""), false),
		)
	})

	Describe("LoadText", func() {
		It("returns one document holding the whole text", func() {
			docs, err := loader.LoadText("notes.txt", strings.NewReader("hello\nworld"))
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Source).To(Equal("notes.txt"))
			Expect(docs[0].Locator).To(BeEmpty())
			Expect(docs[0].Text).To(Equal("hello\nworld"))
		})

		It("fails with a load error on blank input", func() {
			_, err := loader.LoadText("blank.txt", strings.NewReader("  \n\t"))
			Expect(err).To(MatchError(document.ErrLoad))
		})

		It("fails with a load error on binary input", func() {
			_, err := loader.LoadText("bin.txt", bytes.NewReader([]byte{0xff, 0xfe, 0xfd}))
			Expect(err).To(MatchError(document.ErrLoad))
		})

		It("drops a leading byte order mark", func() {
			docs, err := loader.LoadText("bom.txt", strings.NewReader("\ufeffhello"))
			Expect(err).NotTo(HaveOccurred())
			Expect(docs[0].Text).To(Equal("hello"))
		})
	})

	Describe("LoadCSV", func() {
		It("uses the designated column as text and the rest as metadata", func() {
			docs, err := loader.LoadCSV("faq.csv", strings.NewReader(faqCSV), "prompt")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))

			Expect(docs[0].Text).To(Equal("How do I reset my password?"))
			Expect(docs[0].Locator).To(Equal("row 1"))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("response", "Use the account page."))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("topic", "account"))
			Expect(docs[0].Metadata).NotTo(HaveKey("prompt"))

			Expect(docs[1].Text).To(Equal("Where are invoices?"))
			Expect(docs[1].Locator).To(Equal("row 3"))
		})

		It("renders every column when asked to", func() {
			docs, err := loader.LoadCSV("faq.csv", strings.NewReader(faqCSV), loader.AllColumns)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(3))
			Expect(docs[0].Text).To(Equal("prompt: How do I reset my password?\nresponse: Use the account page.\ntopic: account"))
			Expect(docs[1].Text).To(Equal("response: orphan row\ntopic: misc"))
		})

		It("strips a byte order mark from the header", func() {
			docs, err := loader.LoadCSV("bom.csv", strings.NewReader("\ufeffprompt,x\nhi,1\n"), "prompt")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
		})

		It("fails when the designated column is missing", func() {
			_, err := loader.LoadCSV("faq.csv", strings.NewReader(faqCSV), "question")
			Expect(err).To(MatchError(document.ErrLoad))
			Expect(err.Error()).To(ContainSubstring(`no "question" column`))
		})

		It("fails on an empty file", func() {
			_, err := loader.LoadCSV("empty.csv", strings.NewReader(""), "prompt")
			Expect(err).To(MatchError(document.ErrLoad))
		})

		It("fails when no row has text", func() {
			_, err := loader.LoadCSV("hollow.csv", strings.NewReader("prompt,x\n,1\n"), "prompt")
			Expect(err).To(MatchError(document.ErrLoad))
		})

		It("fails with a load error on input that is not UTF-8", func() {
			data := append([]byte("prompt,x\n"), 0xff, 0xfe, ',', '1', '\n')
			_, err := loader.LoadCSV("latin1.csv", bytes.NewReader(data), "prompt")
			Expect(err).To(MatchError(document.ErrLoad))
			Expect(err.Error()).To(ContainSubstring("not valid UTF-8"))
		})

		It("fails on ragged rows", func() {
			_, err := loader.LoadCSV("ragged.csv", strings.NewReader("prompt,x\nhi\n"), "prompt")
			Expect(err).To(MatchError(document.ErrLoad))
		})
	})

	Describe("LoadPDF", func() {
		It("fails with a load error on data that is not a PDF", func() {
			data := []byte("definitely not a pdf")
			_, err := loader.LoadPDF("fake.pdf", bytes.NewReader(data), int64(len(data)))
			Expect(err).To(MatchError(document.ErrLoad))
		})
	})

	Describe("NormalizeText", func() {
		It("replaces invalid sequences and drops NUL bytes from extracted text", func() {
			raw := "Napol\xe9on\x00 was born in 1769."
			got := loader.NormalizeText(raw)
			Expect(utf8.ValidString(got)).To(BeTrue())
			Expect(got).To(Equal("Napol\ufffdon was born in 1769."))
		})

		It("leaves valid text alone", func() {
			Expect(loader.NormalizeText("Émile, 1769")).To(Equal("Émile, 1769"))
		})
	})

	Describe("LoadPaths", func() {
		var (
			tmpDir string
			l      *loader.Loader
			ctx    context.Context
		)

		BeforeEach(func() {
			var err error
			tmpDir, err = os.MkdirTemp("", "loader-test-*")
			Expect(err).NotTo(HaveOccurred())

			l = loader.New(loader.Options{})
			ctx = context.Background()
		})

		AfterEach(func() {
			os.RemoveAll(tmpDir)
		})

		write := func(rel, content string) string {
			path := filepath.Join(tmpDir, rel)
			Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
			Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
			return path
		}

		It("walks directories in sorted order and skips unsupported files", func() {
			write("b.txt", "second")
			write("a.md", "first")
			write("nested/faq.csv", faqCSV)
			write("image.png", "not text")
			write(".hidden/secret.txt", "skipped")

			docs, err := l.LoadPaths(ctx, []string{tmpDir})
			Expect(err).NotTo(HaveOccurred())

			sources := make([]string, 0, len(docs))
			for _, d := range docs {
				sources = append(sources, d.Source)
			}
			Expect(sources).To(Equal([]string{"a.md", "b.txt", "nested/faq.csv", "nested/faq.csv"}))
		})

		It("keeps same-named files in different directories apart", func() {
			write("guides/notes.txt", "guide notes")
			write("reference/notes.txt", "reference notes")

			docs, err := l.LoadPaths(ctx, []string{tmpDir})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].Source).To(Equal("guides/notes.txt"))
			Expect(docs[1].Source).To(Equal("reference/notes.txt"))
			Expect(docs[0].ID()).NotTo(Equal(docs[1].ID()))
		})

		It("falls back to the full path when two roots share a relative name", func() {
			first := write("one/notes.txt", "first")
			second := write("two/notes.txt", "second")

			docs, err := l.LoadPaths(ctx, []string{filepath.Dir(first), filepath.Dir(second)})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].Source).To(Equal("notes.txt"))
			Expect(docs[1].Source).To(Equal(filepath.ToSlash(second)))
		})

		It("names a file given directly by its base name", func() {
			path := write("deep/inside/notes.txt", "text")

			docs, err := l.LoadPaths(ctx, []string{path})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs[0].Source).To(Equal("notes.txt"))
		})

		It("loads a file listed twice under one name", func() {
			path := write("notes.txt", "text")

			docs, err := l.LoadPaths(ctx, []string{path, path})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[1].Source).To(Equal("notes.txt"))
		})

		It("rejects an unsupported file named directly", func() {
			path := write("image.png", "not text")
			_, err := l.LoadPaths(ctx, []string{path})
			Expect(err).To(MatchError(document.ErrLoad))
		})

		It("rejects a missing path", func() {
			_, err := l.LoadPaths(ctx, []string{filepath.Join(tmpDir, "nope.txt")})
			Expect(err).To(MatchError(document.ErrLoad))
		})

		It("fails when a directory holds nothing to load", func() {
			write("image.png", "not text")
			_, err := l.LoadPaths(ctx, []string{tmpDir})
			Expect(err).To(MatchError(document.ErrLoad))
		})

		It("honors the configured CSV text column", func() {
			path := write("faq.csv", faqCSV)
			docs, err := loader.New(loader.Options{CSVTextColumn: "response"}).LoadPaths(ctx, []string{path})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(3))
			Expect(docs[1].Text).To(Equal("orphan row"))
		})

		It("stops on a cancelled context", func() {
			path := write("a.txt", "text")
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := l.LoadPaths(cctx, []string{path})
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
