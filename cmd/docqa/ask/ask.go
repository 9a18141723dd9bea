// Package askcmder provides the ask command, which answers a question from
// the indexed documents.
package askcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/docqa/api/search"
	"github.com/papercomputeco/docqa/cmd/docqa/wiring"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/rag"
)

type askCommander struct {
	question  string
	configDir string
	cfg       *config.Config
	logger    *slog.Logger

	asJSON    bool
	noSources bool

	topK           int
	threshold      float64
	fallback       string
	llmProvider    string
	llmTarget      string
	llmModel       string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	storeProv      string
	storeTgt       string
}

var askFlags = []string{
	config.FlagTopK,
	config.FlagThreshold,
	config.FlagFallback,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
}

const askLongDesc string = `Answer a question from the indexed documents.

Retrieves the chunks most similar to the question, places them in a
grounded prompt and asks the configured model. The model is told to answer
only from that context and to reply with the fallback answer when the
context does not hold one. When nothing passes the similarity threshold the
model is still asked, with no context.

The sources used are listed below the answer.

Examples:
  docqa ask "How do I reset my password?"
  docqa ask "What is the refund window?" --llm-provider groq --llm-model llama3-70b
  docqa ask "Where are invoices?" --top-k 8 --threshold 0.5 --json`

const askShortDesc string = "Answer a question from the indexed documents"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, cmder.configDir, err = wiring.LoadConfig(cmd, askFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]
			cmder.logger = wiring.NewLogger(cmd)
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the answer and sources as JSON")
	cmd.Flags().BoolVar(&cmder.noSources, "no-sources", false, "Print only the answer")

	config.AddIntFlag(cmd, config.DocqaFlags, config.FlagTopK, &cmder.topK)
	config.AddFloatFlag(cmd, config.DocqaFlags, config.FlagThreshold, &cmder.threshold)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagFallback, &cmder.fallback)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagLLMModel, &cmder.llmModel)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagVectorStoreProv, &cmder.storeProv)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagVectorStoreTgt, &cmder.storeTgt)

	return cmd
}

// answerJSON mirrors the API's answer response.
type answerJSON struct {
	Answer   string                   `json:"answer"`
	Grounded bool                     `json:"grounded"`
	Sources  []apisearch.SearchResult `json:"sources"`
}

func (c *askCommander) run(ctx context.Context, out, errOut io.Writer) error {
	rt, err := wiring.New(ctx, c.cfg, wiring.Options{
		ConfigDir: c.configDir,
		Generator: true,
		Restore:   true,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	if rt.Handle.Load().Len() == 0 {
		c.logger.Warn("the index is empty, run \"docqa index <paths>\" first")
	}

	answer, err := rt.Pipeline.Answer(ctx, c.question)
	if err != nil {
		var genErr *rag.GenerationError
		if errors.As(err, &genErr) {
			fmt.Fprintf(errOut, "\n%s\n%s\n\n", cliui.WarnStyle.Render("Prompt sent to the model:"), cliui.DimStyle.Render(genErr.Prompt))
		}
		return err
	}

	sources := apisearch.Results(answer.Sources)
	if c.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(answerJSON{Answer: answer.Text, Grounded: answer.Grounded, Sources: sources})
	}

	c.printAnswer(out, answer.Text)
	if !c.noSources {
		printSources(out, answer.Grounded, sources)
	}
	return nil
}

func (c *askCommander) printAnswer(out io.Writer, text string) {
	if !cliui.IsTerminal(out) {
		fmt.Fprintln(out, text)
		return
	}

	rendered, err := cliui.RenderMarkdown(text)
	if err != nil {
		c.logger.Debug("rendering answer as markdown", "error", err)
		fmt.Fprintln(out, text)
		return
	}
	fmt.Fprint(out, rendered)
}

func printSources(out io.Writer, grounded bool, sources []apisearch.SearchResult) {
	if !grounded {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No indexed context matched this question."))
		return
	}

	fmt.Fprintf(out, "\n%s\n", cliui.HeaderStyle.Render("Sources:"))
	for _, s := range sources {
		loc := s.Source
		if s.Locator != "" {
			loc += " (" + s.Locator + ")"
		}
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.RankStyle.Render(fmt.Sprintf("#%d", s.Rank)),
			cliui.ScoreStyle.Render(fmt.Sprintf("%.4f", s.Score)),
			cliui.SourceStyle.Render(loc),
		)
	}
	fmt.Fprintln(out)
}
