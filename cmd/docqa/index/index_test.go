package indexcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	indexcmder "github.com/papercomputeco/docqa/cmd/docqa/index"
)

var _ = Describe("NewIndexCmd", func() {
	It("requires at least one path", func() {
		cmd := indexcmder.NewIndexCmd()
		Expect(cmd.Use).To(Equal("index <paths...>"))
		Expect(cmd.Args(cmd, nil)).To(HaveOccurred())
	})

	It("registers the chunking and store flags", func() {
		cmd := indexcmder.NewIndexCmd()
		for _, name := range []string{"chunk-size", "chunk-overlap", "embedding-provider", "vector-store-provider", "csv-text-column"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})
})

var _ = Describe("Index command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "docqa-index-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.MkdirAll(filepath.Join(tmpDir, ".docqa"), 0o755)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(tmpDir, "docs"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(tmpDir, "docs", "cats.txt"), []byte("Cats purr when content."), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(tmpDir, "docs", "dogs.md"), []byte("Dogs bark at strangers."), 0o600)).To(Succeed())

		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("builds the index into the local .docqa directory", func() {
		var out bytes.Buffer
		cmd := indexcmder.NewIndexCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"docs", "--embedding-provider", "hashing"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Loading documents"))
		Expect(out.String()).To(ContainSubstring("cats.txt"))
		Expect(out.String()).To(ContainSubstring("dogs.md"))

		_, err := os.Stat(filepath.Join(tmpDir, ".docqa", "index.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("fails on a path with nothing to load", func() {
		Expect(os.MkdirAll(filepath.Join(tmpDir, "empty"), 0o755)).To(Succeed())

		cmd := indexcmder.NewIndexCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"empty", "--embedding-provider", "hashing"})

		Expect(cmd.Execute()).To(HaveOccurred())
	})

	It("rejects an overlap that is not smaller than the chunk size", func() {
		cmd := indexcmder.NewIndexCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"docs", "--embedding-provider", "hashing", "--chunk-size", "10", "--chunk-overlap", "10"})

		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
