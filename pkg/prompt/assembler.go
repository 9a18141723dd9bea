package prompt

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/docqa/pkg/vector"
)

const (
	// DefaultFallback is the answer the model is told to give when the
	// context does not hold one.
	DefaultFallback = "I don't know."

	// DefaultSeparator joins chunk texts in the context block.
	DefaultSeparator = "\n\n"
)

// Options configures an Assembler.
type Options struct {
	// Fallback defaults to DefaultFallback.
	Fallback string

	// Separator defaults to DefaultSeparator.
	Separator string
}

// Assembler fills a Template with retrieved context and a question.
type Assembler struct {
	tmpl      *Template
	fallback  string
	separator string
}

// NewAssembler returns an Assembler for tmpl, or for DefaultTemplate when
// tmpl is nil.
func NewAssembler(tmpl *Template, opts Options) *Assembler {
	if tmpl == nil {
		tmpl = MustTemplate(DefaultTemplate)
	}
	if opts.Fallback == "" {
		opts.Fallback = DefaultFallback
	}
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	return &Assembler{tmpl: tmpl, fallback: opts.Fallback, separator: opts.Separator}
}

// Fallback returns the configured fallback answer.
func (a *Assembler) Fallback() string {
	return a.fallback
}

// Instruction returns the grounding instruction. Without context it tells
// the model to reply with the fallback and nothing else.
func (a *Assembler) Instruction(hasContext bool) string {
	if !hasContext {
		return fmt.Sprintf("No context was found for this question. Respond exactly with %q and nothing else.", a.fallback)
	}
	return fmt.Sprintf("If the answer is not found in the context, respond %q Don't try to make up an answer.", a.fallback)
}

// Assemble joins the chunk texts of results, in order, into the context
// block and fills the template. Nothing is truncated.
func (a *Assembler) Assemble(question string, results []vector.Result) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}

	return a.tmpl.Execute(map[string]string{
		SlotContext:     strings.Join(texts, a.separator),
		SlotQuestion:    question,
		SlotInstruction: a.Instruction(len(results) > 0),
	})
}
