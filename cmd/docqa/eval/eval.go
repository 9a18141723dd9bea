// Package evalcmder provides the eval command, which grades answers to a
// set of known questions.
package evalcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docqa/cmd/docqa/wiring"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/rag"
	"github.com/papercomputeco/docqa/pkg/utils"
)

type evalCommander struct {
	casesPath string
	configDir string
	cfg       *config.Config
	logger    *slog.Logger

	asJSON    bool
	failUnder float64

	topK           int
	threshold      float64
	llmProvider    string
	llmTarget      string
	llmModel       string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	storeProv      string
	storeTgt       string
}

var evalFlags = []string{
	config.FlagTopK,
	config.FlagThreshold,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
}

const evalLongDesc string = `Grade answers against known answers.

Reads a CSV file with "question" and "answer" columns, answers every
question with the indexed documents and asks the model to grade each
answer as CORRECT or INCORRECT against the expected one. Prints every
verdict and the overall accuracy.

A question whose answer or grade fails is reported and counted as failed;
it does not stop the run.

Examples:
  docqa eval qa.csv
  docqa eval qa.csv --json > report.json
  docqa eval qa.csv --fail-under 0.8`

const evalShortDesc string = "Grade answers against expected answers"

func NewEvalCmd() *cobra.Command {
	cmder := &evalCommander{}

	cmd := &cobra.Command{
		Use:   "eval <qa.csv>",
		Short: evalShortDesc,
		Long:  evalLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, cmder.configDir, err = wiring.LoadConfig(cmd, evalFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.casesPath = args[0]
			cmder.logger = wiring.NewLogger(cmd)
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the full report as JSON")
	cmd.Flags().Float64Var(&cmder.failUnder, "fail-under", 0, "Exit with an error when accuracy is below this value")

	config.AddIntFlag(cmd, config.DocqaFlags, config.FlagTopK, &cmder.topK)
	config.AddFloatFlag(cmd, config.DocqaFlags, config.FlagThreshold, &cmder.threshold)
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

func (c *evalCommander) run(ctx context.Context, out io.Writer) error {
	f, err := os.Open(c.casesPath)
	if err != nil {
		return fmt.Errorf("opening evaluation cases: %w", err)
	}
	cases, err := rag.ReadCases(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", c.casesPath, err)
	}

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

	progress := out
	if c.asJSON {
		progress = io.Discard
	}

	var report *rag.Report
	err = cliui.Step(progress, fmt.Sprintf("Evaluating %d questions", len(cases)), func() error {
		report, err = rag.NewEvaluator(rt.Generator).Run(ctx, rt.Pipeline, cases)
		return err
	})
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	if c.failUnder > 0 && report.Accuracy() < c.failUnder {
		return fmt.Errorf("accuracy %.2f is below %.2f", report.Accuracy(), c.failUnder)
	}
	return nil
}

func printReport(out io.Writer, report *rag.Report) {
	fmt.Fprintln(out)
	for i, res := range report.Results {
		var verdict string
		switch {
		case res.Err != nil:
			verdict = cliui.FailMark + " " + cliui.WarnStyle.Render("FAILED: "+res.Err.Error())
		case res.Grade == rag.GradeCorrect:
			verdict = cliui.SuccessMark + " " + string(res.Grade)
		default:
			verdict = cliui.FailMark + " " + string(res.Grade)
		}

		fmt.Fprintf(out, "  %s  %s\n", cliui.RankStyle.Render(fmt.Sprintf("#%d", i+1)), cliui.HeaderStyle.Render(res.Question))
		fmt.Fprintf(out, "      %s %s\n", cliui.DimStyle.Render("expected:"), cliui.PreviewStyle.Render(utils.Preview(res.Expected, 100)))
		if res.Err == nil {
			fmt.Fprintf(out, "      %s %s\n", cliui.DimStyle.Render("answered:"), cliui.PreviewStyle.Render(utils.Preview(res.Predicted, 100)))
		}
		fmt.Fprintf(out, "      %s\n\n", verdict)
	}

	fmt.Fprintf(out, "%s %s correct, %s incorrect, %s failed (accuracy %s)\n\n",
		cliui.HeaderStyle.Render("Summary:"),
		cliui.ValueStyle.Render(fmt.Sprint(report.Correct)),
		cliui.ValueStyle.Render(fmt.Sprint(report.Incorrect)),
		cliui.ValueStyle.Render(fmt.Sprint(report.Failed)),
		cliui.KeyStyle.Render(fmt.Sprintf("%.0f%%", report.Accuracy()*100)),
	)
}
