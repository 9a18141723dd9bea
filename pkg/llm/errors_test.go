package llm_test

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/credentials"
	"github.com/papercomputeco/docqa/pkg/llm"
)

var _ = Describe("errors", func() {
	It("treats input too large as a generation failure", func() {
		Expect(errors.Is(llm.ErrInputTooLarge, llm.ErrGeneration)).To(BeTrue())
	})

	DescribeTable("StatusError",
		func(status int, body string, want error, notWant error) {
			err := llm.StatusError("test", status, body)
			Expect(err).To(MatchError(want))
			if notWant != nil {
				Expect(err).NotTo(MatchError(notWant))
			}
			Expect(err.Error()).To(ContainSubstring(body))
		},
		Entry("unauthorized", http.StatusUnauthorized, "bad key", credentials.ErrAuthentication, llm.ErrGeneration),
		Entry("forbidden", http.StatusForbidden, "no access", credentials.ErrAuthentication, llm.ErrGeneration),
		Entry("payload too large", http.StatusRequestEntityTooLarge, "big", llm.ErrInputTooLarge, nil),
		Entry("context overflow message", http.StatusBadRequest, "This model's maximum context length is 8192 tokens", llm.ErrInputTooLarge, nil),
		Entry("gemini token limit", http.StatusBadRequest, "The input token count (1048577) exceeds the maximum number of tokens allowed (1048576).", llm.ErrInputTooLarge, nil),
		Entry("server error", http.StatusInternalServerError, "boom", llm.ErrGeneration, llm.ErrInputTooLarge),
	)

	It("recognizes context overflow messages regardless of case", func() {
		Expect(llm.IsContextOverflow("Prompt is too long: 210000 tokens")).To(BeTrue())
		Expect(llm.IsContextOverflow("rate limited")).To(BeFalse())
	})
})

var _ = Describe("ResolveModel", func() {
	DescribeTable("maps aliases and defaults",
		func(provider, name, want string) {
			Expect(llm.ResolveModel(provider, name)).To(Equal(want))
		},
		Entry("groq llama3 8b", llm.Groq, "llama3-8b", "llama3-8b-8192"),
		Entry("groq mixtral", llm.Groq, "mixtral", "mixtral-8x7b-32768"),
		Entry("groq gemma2", llm.Groq, "gemma2-9b", "gemma2-9b-it"),
		Entry("groq full id passes through", llm.Groq, "llama3-70b-8192", "llama3-70b-8192"),
		Entry("aliases are provider scoped", llm.OpenAI, "mixtral", "mixtral"),
		Entry("empty uses the provider default", llm.Ollama, "", "llama3.2"),
	)

	It("lists groq aliases in order", func() {
		Expect(llm.Aliases(llm.Groq)).To(Equal([]string{"gemma-7b", "gemma2-9b", "llama3-70b", "llama3-8b", "mixtral"}))
		Expect(llm.Aliases(llm.Ollama)).To(BeEmpty())
	})

	It("knows its providers", func() {
		Expect(llm.IsSupportedProvider(llm.Groq)).To(BeTrue())
		Expect(llm.IsSupportedProvider("bedrock")).To(BeFalse())
	})
})
