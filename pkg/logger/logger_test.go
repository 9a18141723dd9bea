package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/logger"
)

// decodeLines parses newline-delimited JSON log records.
func decodeLines(buf *bytes.Buffer) []map[string]any {
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		Expect(json.Unmarshal([]byte(line), &rec)).To(Succeed(), line)
		records = append(records, rec)
	}
	return records
}

// failingHandler rejects every record.
type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("log file closed")
}
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h failingHandler) WithGroup(string) slog.Handler      { return h }

var _ = Describe("New", func() {
	It("writes text records at info level by default", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf))
		l.Info("index saved", "entries", 2, "store", "sqlite")
		l.Debug("embedding chunk", "seq", 0)

		Expect(buf.String()).To(ContainSubstring("msg=\"index saved\""))
		Expect(buf.String()).To(ContainSubstring("entries=2"))
		Expect(buf.String()).To(ContainSubstring("store=sqlite"))
		Expect(buf.String()).NotTo(ContainSubstring("embedding chunk"))
	})

	It("writes debug records with --debug", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
		l.Debug("embedding chunk", "seq", 1)

		Expect(buf.String()).To(ContainSubstring("embedding chunk"))
	})

	It("writes one JSON object per record for service logs", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
		l.Info("question answered", "question", "When was Napoleon born?", "sources", 1, "grounded", true)

		records := decodeLines(&buf)
		Expect(records).To(HaveLen(1))
		Expect(records[0]).To(HaveKeyWithValue("msg", "question answered"))
		Expect(records[0]).To(HaveKeyWithValue("question", "When was Napoleon born?"))
		Expect(records[0]).To(HaveKeyWithValue("sources", BeNumerically("==", 1)))
		Expect(records[0]).To(HaveKeyWithValue("grounded", true))
	})

	It("lets JSON win over pretty output", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithJSON(true))
		l.Info("connected to Chroma", "collection", "docqa")

		Expect(decodeLines(&buf)).To(HaveLen(1))
	})

	It("renders pretty output for the terminal", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
		l.Warn("chroma not ready, retrying", "attempt", 2)

		Expect(buf.String()).To(ContainSubstring("chroma not ready, retrying"))
		Expect(buf.String()).To(ContainSubstring("attempt"))
	})

	It("copies every record to each writer", func() {
		var console, file bytes.Buffer
		l := logger.New(logger.WithWriters(&console, &file))
		l.Info("watching documents", "paths", "docs/")

		Expect(console.String()).To(ContainSubstring("watching documents"))
		Expect(file.String()).To(Equal(console.String()))
	})

	It("honors an explicit level", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithLevel(slog.LevelWarn))
		l.Info("index loaded")
		l.Warn("failed to drop index generation", "collection", "docqa-gen-1")

		Expect(buf.String()).NotTo(ContainSubstring("index loaded"))
		Expect(buf.String()).To(ContainSubstring("docqa-gen-1"))
	})

	It("nests request fields under a group", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
		l.WithGroup("request").Info("handled", "method", "POST", "path", "/v1/ask")

		rec := decodeLines(&buf)[0]
		Expect(rec).To(HaveKeyWithValue("request", And(
			HaveKeyWithValue("method", "POST"),
			HaveKeyWithValue("path", "/v1/ask"),
		)))
	})
})

var _ = Describe("Nop", func() {
	It("is disabled at every level and accepts derived loggers", func() {
		l := logger.Nop()
		for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
			Expect(l.Handler().Enabled(context.Background(), level)).To(BeFalse())
		}
		Expect(func() {
			l.With("provider", "ollama").WithGroup("embedding").Error("unreachable")
		}).NotTo(Panic())
	})
})

var _ = Describe("Multi", func() {
	It("sends pretty console output and a debug JSON file the way serve --log-file does", func() {
		var console, file bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&console), logger.WithPretty(true)),
			logger.New(logger.WithWriter(&file), logger.WithJSON(true), logger.WithDebug(true)),
		)

		l.Info("serving", "addr", ":8081", "entries", 42)
		l.Debug("retrieved chunks", "question", "When was Napoleon born?", "results", 1)

		Expect(console.String()).To(ContainSubstring("serving"))
		Expect(console.String()).NotTo(ContainSubstring("retrieved chunks"))

		records := decodeLines(&file)
		Expect(records).To(HaveLen(2))
		Expect(records[0]).To(HaveKeyWithValue("entries", BeNumerically("==", 42)))
		Expect(records[1]).To(HaveKeyWithValue("msg", "retrieved chunks"))
		Expect(records[1]).To(HaveKeyWithValue("question", "When was Napoleon born?"))
	})

	It("carries With fields to every sink", func() {
		var a, b bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&a), logger.WithJSON(true)),
			logger.New(logger.WithWriter(&b), logger.WithJSON(true)),
		).With("provider", "gemini")

		l.Info("generator ready", "model", "gemini-1.5-flash")

		for _, buf := range []*bytes.Buffer{&a, &b} {
			rec := decodeLines(buf)[0]
			Expect(rec).To(HaveKeyWithValue("provider", "gemini"))
			Expect(rec).To(HaveKeyWithValue("model", "gemini-1.5-flash"))
		}
	})

	It("carries groups to every sink", func() {
		var a, b bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&a), logger.WithJSON(true)),
			logger.New(logger.WithWriter(&b), logger.WithJSON(true)),
		).WithGroup("index")

		l.Info("rebuilt", "entries", 2)

		for _, buf := range []*bytes.Buffer{&a, &b} {
			Expect(decodeLines(buf)[0]).To(HaveKeyWithValue("index", HaveKeyWithValue("entries", BeNumerically("==", 2))))
		}
	})

	It("keeps writing to the other sinks when one fails", func() {
		var console bytes.Buffer
		l := logger.Multi(
			slog.New(failingHandler{}),
			logger.New(logger.WithWriter(&console), logger.WithJSON(true)),
		)

		l.Error("re-index failed, keeping the current index", "error", "load failed")

		Expect(decodeLines(&console)).To(HaveLen(1))
	})

	It("reports the failing sink from Handle", func() {
		var console bytes.Buffer
		h := logger.Multi(
			slog.New(failingHandler{}),
			logger.New(logger.WithWriter(&console)),
		).Handler()

		err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "index saved", 0))
		Expect(err).To(MatchError(ContainSubstring("log file closed")))
		Expect(console.String()).To(ContainSubstring("index saved"))
	})

	It("flattens nested loggers and skips nil ones", func() {
		var a, b bytes.Buffer
		inner := logger.Multi(logger.New(logger.WithWriter(&a)), nil)
		l := logger.Multi(inner, logger.New(logger.WithWriter(&b)))

		l.Info("search", "top_k", 4)

		Expect(a.String()).To(ContainSubstring("top_k=4"))
		Expect(b.String()).To(ContainSubstring("top_k=4"))
	})

	It("is disabled when every sink is", func() {
		l := logger.Multi(logger.Nop(), logger.Nop())
		Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})
})
