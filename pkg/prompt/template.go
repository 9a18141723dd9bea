// Package prompt assembles retrieved chunks and a question into the prompt
// sent to the language model.
package prompt

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Slot names recognized in a Template.
const (
	SlotContext     = "context"
	SlotQuestion    = "question"
	SlotInstruction = "instruction"
)

var requiredSlots = []string{SlotContext, SlotQuestion, SlotInstruction}

var (
	// ErrMissingSlot is returned when a template lacks a required slot.
	ErrMissingSlot = errors.New("template is missing a required slot")

	// ErrUnknownSlot is returned when a template names a slot docqa does not fill.
	ErrUnknownSlot = errors.New("template names an unknown slot")

	// ErrMalformed is returned for unbalanced braces.
	ErrMalformed = errors.New("malformed template")
)

// DefaultTemplate is the template used when none is configured.
const DefaultTemplate = `Given the following context and a question, generate an answer based on this context only.
{instruction}

CONTEXT: {context}

QUESTION: {question}
`

type segment struct {
	text string
	slot bool
}

// Template is a parsed prompt template with named slots written as
// {context}, {question} and {instruction}. Literal braces are written {{ and }}.
type Template struct {
	source   string
	segments []segment
}

// NewTemplate parses text. Every required slot must appear at least once.
func NewTemplate(text string) (*Template, error) {
	segments, err := parse(text)
	if err != nil {
		return nil, err
	}

	for _, name := range requiredSlots {
		if !slices.ContainsFunc(segments, func(s segment) bool { return s.slot && s.text == name }) {
			return nil, fmt.Errorf("%w: {%s}", ErrMissingSlot, name)
		}
	}

	return &Template{source: text, segments: segments}, nil
}

// MustTemplate is like NewTemplate but panics on error.
func MustTemplate(text string) *Template {
	t, err := NewTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template source.
func (t *Template) String() string {
	return t.source
}

// Execute fills every slot from values.
func (t *Template) Execute(values map[string]string) string {
	var sb strings.Builder
	for _, s := range t.segments {
		if s.slot {
			sb.WriteString(values[s.text])
		} else {
			sb.WriteString(s.text)
		}
	}
	return sb.String()
}

func parse(text string) ([]segment, error) {
	var (
		segments []segment
		lit      strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			segments = append(segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '{' && i+1 < len(text) && text[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(text) && text[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '}':
			return nil, fmt.Errorf("%w: unmatched } at byte %d", ErrMalformed, i)
		case c == '{':
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated slot at byte %d", ErrMalformed, i)
			}
			name := text[i+1 : i+1+end]
			if !slices.Contains(requiredSlots, name) {
				return nil, fmt.Errorf("%w: {%s}", ErrUnknownSlot, name)
			}
			flush()
			segments = append(segments, segment{text: name, slot: true})
			i += end + 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return segments, nil
}
