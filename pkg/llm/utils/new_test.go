package llmutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/llm/anthropic"
	"github.com/papercomputeco/docqa/pkg/llm/ollama"
	"github.com/papercomputeco/docqa/pkg/llm/openai"
	llmutils "github.com/papercomputeco/docqa/pkg/llm/utils"
)

var _ = Describe("NewGenerator", func() {
	ctx := context.Background()

	It("builds an ollama generator without a key", func() {
		Expect(llmutils.NeedsAPIKey(llm.Ollama)).To(BeFalse())
		gen, err := llmutils.NewGenerator(ctx, &llmutils.NewGeneratorOpts{ProviderType: llm.Ollama})
		Expect(err).NotTo(HaveOccurred())
		Expect(gen).To(BeAssignableToTypeOf(&ollama.Generator{}))
	})

	It("serves groq through the openai client", func() {
		gen, err := llmutils.NewGenerator(ctx, &llmutils.NewGeneratorOpts{ProviderType: llm.Groq, APIKey: "gsk", Model: "mixtral"})
		Expect(err).NotTo(HaveOccurred())
		Expect(gen).To(BeAssignableToTypeOf(&openai.Generator{}))
		Expect(gen.(*openai.Generator).Model()).To(Equal("mixtral-8x7b-32768"))
	})

	It("builds an anthropic generator", func() {
		gen, err := llmutils.NewGenerator(ctx, &llmutils.NewGeneratorOpts{ProviderType: llm.Anthropic, APIKey: "sk-ant"})
		Expect(err).NotTo(HaveOccurred())
		Expect(gen).To(BeAssignableToTypeOf(&anthropic.Generator{}))
	})

	It("requires keys for hosted providers", func() {
		for _, p := range []string{llm.OpenAI, llm.Groq, llm.Anthropic, llm.Gemini} {
			Expect(llmutils.NeedsAPIKey(p)).To(BeTrue())
			_, err := llmutils.NewGenerator(ctx, &llmutils.NewGeneratorOpts{ProviderType: p})
			Expect(err).To(MatchError(credentials.ErrAuthentication))
		}
	})

	It("rejects unknown providers", func() {
		_, err := llmutils.NewGenerator(ctx, &llmutils.NewGeneratorOpts{ProviderType: "bedrock"})
		Expect(err).To(MatchError(ContainSubstring("unsupported llm provider")))
	})
})
