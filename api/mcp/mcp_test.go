package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/api/mcp"
	apisearch "github.com/papercomputeco/docqa/api/search"
	"github.com/papercomputeco/docqa/pkg/document"
	"github.com/papercomputeco/docqa/pkg/logger"
	testutils "github.com/papercomputeco/docqa/pkg/utils/test"
)

func textOf(res *sdkmcp.CallToolResult) string {
	Expect(res.Content).NotTo(BeEmpty())
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("MCP Server", func() {
	var (
		tp     *testutils.TestPipeline
		server *mcp.Server
	)

	BeforeEach(func() {
		var err error
		tp, err = testutils.NewTestPipeline(nil, 0.1)
		Expect(err).NotTo(HaveOccurred())

		server, err = mcp.NewServer(mcp.Config{
			Pipeline: tp.Pipeline,
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when pipeline is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("pipeline is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Pipeline: tp.Pipeline})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("builds an empty server in noop mode", func() {
			noop, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(noop.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		var (
			ctx     context.Context
			session *sdkmcp.ClientSession
		)

		BeforeEach(func() {
			ctx = context.Background()

			_, err := tp.Indexer.Rebuild(ctx, []document.Document{
				{Source: "napoleon.txt", Text: "Napoleon was born in 1769. He became Emperor in 1804."},
			})
			Expect(err).NotTo(HaveOccurred())

			httpServer := httptest.NewServer(server.Handler())
			DeferCleanup(httpServer.Close)

			client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "docqa-test", Version: "test"}, nil)
			session, err = client.Connect(ctx, &sdkmcp.StreamableClientTransport{Endpoint: httpServer.URL}, nil)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(session.Close)
		})

		It("lists the answer and search tools", func() {
			res, err := session.ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(res.Tools))
			for _, t := range res.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("answer", "search"))
		})

		It("answers a question from the index", func() {
			tp.Generator.Reply = "He was born in 1769."

			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "answer",
				Arguments: map[string]any{"question": "When was Napoleon born?"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.AnswerOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Answer).To(Equal("He was born in 1769."))
			Expect(out.Grounded).To(BeTrue())
			Expect(out.Sources[0].Source).To(Equal("napoleon.txt"))
		})

		It("reports a generation failure with the prompt as a tool error", func() {
			tp.Generator.Err = errors.New("model offline")

			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "answer",
				Arguments: map[string]any{"question": "When was Napoleon born?"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("model offline"))
			Expect(textOf(res)).To(ContainSubstring("Napoleon was born in 1769."))
		})

		It("searches without generating", func() {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "search",
				Arguments: map[string]any{"query": "Napoleon emperor", "top_k": 2},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out apisearch.SearchOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Query).To(Equal("Napoleon emperor"))
			Expect(out.Count).To(Equal(1))
			Expect(tp.Generator.Prompts()).To(BeEmpty())
		})

		It("reports a blank query as a tool error", func() {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "search",
				Arguments: map[string]any{"query": " "},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})
})
