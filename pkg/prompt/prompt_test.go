package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docqa/pkg/document"
	"github.com/papercomputeco/docqa/pkg/prompt"
	"github.com/papercomputeco/docqa/pkg/vector"
)

func result(text string, score float64) vector.Result {
	return vector.Result{Chunk: document.Chunk{Text: text}, Score: score}
}

var _ = Describe("Template", func() {
	It("parses the default template", func() {
		t, err := prompt.NewTemplate(prompt.DefaultTemplate)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.String()).To(Equal(prompt.DefaultTemplate))
	})

	It("fills slots, including repeated ones", func() {
		t := prompt.MustTemplate("{instruction}|{context}|{question}|{question}")
		out := t.Execute(map[string]string{"context": "C", "question": "Q", "instruction": "I"})
		Expect(out).To(Equal("I|C|Q|Q"))
	})

	It("keeps escaped braces literal", func() {
		t := prompt.MustTemplate(`Reply as {{"answer": ...}}. {instruction} {context} {question}`)
		out := t.Execute(map[string]string{"context": "c", "question": "q", "instruction": "i"})
		Expect(out).To(Equal(`Reply as {"answer": ...}. i c q`))
	})

	DescribeTable("rejects bad templates at construction",
		func(text string, want error) {
			_, err := prompt.NewTemplate(text)
			Expect(err).To(MatchError(want))
		},
		Entry("missing question", "{instruction} {context}", prompt.ErrMissingSlot),
		Entry("missing instruction", "{context} {question}", prompt.ErrMissingSlot),
		Entry("unknown slot", "{instruction} {context} {question} {answer}", prompt.ErrUnknownSlot),
		Entry("unterminated slot", "{instruction} {context} {question", prompt.ErrMalformed),
		Entry("stray closing brace", "{instruction} {context} {question} }", prompt.ErrMalformed),
	)

	It("panics from MustTemplate on a bad template", func() {
		Expect(func() { prompt.MustTemplate("{context}") }).To(Panic())
	})
})

var _ = Describe("Assembler", func() {
	var a *prompt.Assembler

	BeforeEach(func() {
		a = prompt.NewAssembler(nil, prompt.Options{})
	})

	It("joins chunk texts in result order", func() {
		out := a.Assemble("When?", []vector.Result{result("second best", 0.4), result("best", 0.9)})
		Expect(out).To(ContainSubstring("CONTEXT: second best\n\nbest"))
		Expect(out).To(ContainSubstring("QUESTION: When?"))
		Expect(out).To(ContainSubstring(a.Instruction(true)))
	})

	It("always carries the fallback in the instruction", func() {
		Expect(a.Fallback()).To(Equal(prompt.DefaultFallback))
		Expect(a.Instruction(true)).To(ContainSubstring(`"I don't know."`))
		Expect(a.Instruction(false)).To(ContainSubstring(`"I don't know."`))
	})

	It("tells the model to answer with the fallback when nothing was retrieved", func() {
		out := a.Assemble("What is the capital of France?", nil)
		Expect(out).To(ContainSubstring(a.Instruction(false)))
		Expect(out).NotTo(ContainSubstring(a.Instruction(true)))
		Expect(out).To(ContainSubstring("CONTEXT: \n"))
	})

	It("uses the configured fallback and separator", func() {
		custom := prompt.NewAssembler(prompt.MustTemplate("{instruction}\n{context}\n{question}"), prompt.Options{
			Fallback:  "No answer.",
			Separator: " --- ",
		})
		out := custom.Assemble("q", []vector.Result{result("a", 1), result("b", 1)})
		Expect(out).To(Equal(custom.Instruction(true) + "\na --- b\nq"))
		Expect(custom.Instruction(false)).To(ContainSubstring(`"No answer."`))
	})

	It("does not truncate long context", func() {
		long := make([]byte, 100_000)
		for i := range long {
			long[i] = 'x'
		}
		out := a.Assemble("q", []vector.Result{result(string(long), 1)})
		Expect(out).To(ContainSubstring(string(long)))
	})
})
