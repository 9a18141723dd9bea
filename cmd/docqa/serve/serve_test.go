package servecmder

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/cmd/docqa/wiring"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/logger"
)

var _ = Describe("NewServeCmd", func() {
	It("takes no arguments", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})

	It("registers the watch and listen flags", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("watch")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("listen").Shorthand).To(Equal("l"))
		Expect(cmd.Flags().Lookup("no-mcp")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("log-file")).NotTo(BeNil())
	})
})

var _ = Describe("teeLogFile", func() {
	It("writes JSON records to the log file alongside the console logger", func() {
		path := filepath.Join(GinkgoT().TempDir(), "serve.log")

		cmd := NewServeCmd()
		cmder := &serveCommander{logger: logger.Nop(), logFile: path}
		closeLog, err := cmder.teeLogFile(cmd)
		Expect(err).NotTo(HaveOccurred())

		cmder.logger.Info("server ready", "listen", ":8081")
		closeLog()

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"server ready"`))
		Expect(string(data)).To(ContainSubstring(`"listen":":8081"`))
	})

	It("fails when the log file cannot be opened", func() {
		cmder := &serveCommander{logger: logger.Nop(), logFile: filepath.Join(GinkgoT().TempDir(), "missing", "serve.log")}
		_, err := cmder.teeLogFile(NewServeCmd())
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})
})

var _ = Describe("newReindexer", func() {
	var (
		ctx     context.Context
		tmpDir  string
		docsDir string
		rt      *wiring.Runtime
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		tmpDir, err = os.MkdirTemp("", "docqa-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tmpDir)

		docsDir = filepath.Join(tmpDir, "docs")
		Expect(os.MkdirAll(docsDir, 0o755)).To(Succeed())

		cfg := config.NewDefaultConfig()
		cfg.Embedding.Provider = "hashing"
		cfg.VectorStore.Provider = "memory"
		rt, err = wiring.New(ctx, cfg, wiring.Options{ConfigDir: filepath.Join(tmpDir, ".docqa")})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(rt.Close, ctx)
	})

	It("rebuilds the served index from the watched paths", func() {
		Expect(os.WriteFile(filepath.Join(docsDir, "a.txt"), []byte("first document"), 0o600)).To(Succeed())

		reindex := newReindexer(rt, []string{docsDir}, logger.Nop())
		reindex(ctx, nil)
		Expect(rt.Handle.Load().Len()).To(Equal(1))

		Expect(os.WriteFile(filepath.Join(docsDir, "b.txt"), []byte("second document"), 0o600)).To(Succeed())
		reindex(ctx, []string{filepath.Join(docsDir, "b.txt")})
		Expect(rt.Handle.Load().Len()).To(Equal(2))
	})

	It("keeps the current index when loading fails", func() {
		Expect(os.WriteFile(filepath.Join(docsDir, "a.txt"), []byte("kept document"), 0o600)).To(Succeed())

		reindex := newReindexer(rt, []string{docsDir}, logger.Nop())
		reindex(ctx, nil)
		before := rt.Handle.Load()

		Expect(os.WriteFile(filepath.Join(docsDir, "a.txt"), []byte("   "), 0o600)).To(Succeed())
		reindex(ctx, []string{filepath.Join(docsDir, "a.txt")})

		Expect(rt.Handle.Load()).To(BeIdenticalTo(before))
	})
})
