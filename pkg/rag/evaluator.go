package rag

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/docqa/pkg/llm"
	"github.com/papercomputeco/docqa/pkg/prompt"
)

// Grade is the verdict on a predicted answer.
type Grade string

const (
	GradeCorrect   Grade = "CORRECT"
	GradeIncorrect Grade = "INCORRECT"
)

// ErrUngradable is returned when the grader's reply holds no verdict.
var ErrUngradable = errors.New("grader returned no verdict")

const gradeTemplate = `You are a teacher grading a quiz.
You are given a question, the student's answer, and the true answer, and are asked to score the student answer as either CORRECT or INCORRECT.
{instruction}

QUESTION: {question}
{context}

GRADE:`

// Evaluator grades pipeline answers against known answers, using a
// language model as the grader.
type Evaluator struct {
	generator llm.Generator
	tmpl      *prompt.Template
}

// NewEvaluator returns an Evaluator grading with g.
func NewEvaluator(g llm.Generator) *Evaluator {
	return &Evaluator{generator: g, tmpl: prompt.MustTemplate(gradeTemplate)}
}

// Grade asks the grader whether predicted answers question as expected does.
func (e *Evaluator) Grade(ctx context.Context, question, expected, predicted string) (Grade, error) {
	text := e.tmpl.Execute(map[string]string{
		prompt.SlotInstruction: "Grade the student answers based ONLY on their factual accuracy. Ignore differences in punctuation and phrasing between the student answer and true answer. It is OK if the student answer contains more information than the true answer, as long as it does not contain any conflicting statements. Reply with CORRECT or INCORRECT only.",
		prompt.SlotQuestion:    question,
		prompt.SlotContext:     "STUDENT ANSWER: " + predicted + "\nTRUE ANSWER: " + expected,
	})

	reply, err := e.generator.Generate(ctx, text)
	if err != nil {
		return "", fmt.Errorf("grading answer: %w", err)
	}

	return parseGrade(reply)
}

func parseGrade(reply string) (Grade, error) {
	upper := strings.ToUpper(reply)
	switch {
	case strings.Contains(upper, string(GradeIncorrect)):
		return GradeIncorrect, nil
	case strings.Contains(upper, string(GradeCorrect)):
		return GradeCorrect, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUngradable, reply)
	}
}

// Case is a question with a known answer.
type Case struct {
	Question string `json:"question"`
	Expected string `json:"expected"`
}

// CaseResult is the outcome of one Case.
type CaseResult struct {
	Case
	Predicted string `json:"predicted"`
	Grounded  bool   `json:"grounded"`
	Grade     Grade  `json:"grade,omitempty"`
	Err       error  `json:"-"`
}

// Report summarizes an evaluation run.
type Report struct {
	Results   []CaseResult `json:"results"`
	Correct   int          `json:"correct"`
	Incorrect int          `json:"incorrect"`
	Failed    int          `json:"failed"`
}

// Accuracy is the share of graded cases that were correct.
func (r *Report) Accuracy() float64 {
	graded := r.Correct + r.Incorrect
	if graded == 0 {
		return 0
	}
	return float64(r.Correct) / float64(graded)
}

// Run answers every case with p and grades the answers. A case whose answer
// or grade fails is counted as failed; Run itself only fails when ctx ends.
func (e *Evaluator) Run(ctx context.Context, p *Pipeline, cases []Case) (*Report, error) {
	report := &Report{Results: make([]CaseResult, 0, len(cases))}

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := CaseResult{Case: c}
		answer, err := p.Answer(ctx, c.Question)
		if err == nil {
			res.Predicted = answer.Text
			res.Grounded = answer.Grounded
			res.Grade, err = e.Grade(ctx, c.Question, c.Expected, answer.Text)
		}

		switch {
		case err != nil:
			res.Err = err
			report.Failed++
		case res.Grade == GradeCorrect:
			report.Correct++
		default:
			report.Incorrect++
		}
		report.Results = append(report.Results, res)
	}

	return report, nil
}

// ReadCases reads a CSV with "question" and "answer" columns.
func ReadCases(r io.Reader) ([]Case, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	qCol, aCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "question":
			qCol = i
		case "answer":
			aCol = i
		}
	}
	if qCol < 0 || aCol < 0 {
		return nil, errors.New(`evaluation CSV needs "question" and "answer" columns`)
	}

	var cases []Case
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading case %d: %w", len(cases)+1, err)
		}
		q := strings.TrimSpace(rec[qCol])
		if q == "" {
			continue
		}
		cases = append(cases, Case{Question: q, Expected: strings.TrimSpace(rec[aCol])})
	}

	if len(cases) == 0 {
		return nil, errors.New("evaluation CSV has no cases")
	}
	return cases, nil
}
