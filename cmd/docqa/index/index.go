// Package indexcmder provides the index command, which builds and persists
// the document index.
package indexcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docqa/cmd/docqa/wiring"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/document"
	"github.com/papercomputeco/docqa/pkg/rag"
)

type indexCommander struct {
	paths     []string
	configDir string
	cfg       *config.Config
	logger    *slog.Logger

	// flag targets, bound to viper in PreRunE
	chunkSize      int
	chunkOverlap   int
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	storeProv      string
	storeTgt       string
	csvTextColumn  string
}

var indexFlags = []string{
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCSVTextColumn,
}

const indexLongDesc string = `Build the document index.

Loads every supported file under the given paths (.txt, .md, .csv, .pdf),
splits them into overlapping chunks, embeds each chunk and saves the index
to the configured vector store. The previous index is replaced only once
the new one is saved.

Directories are walked recursively in sorted order; hidden entries are
skipped.

Examples:
  docqa index ./docs
  docqa index faq.csv --csv-text-column answer
  docqa index handbook.pdf --chunk-size 500 --chunk-overlap 50`

const indexShortDesc string = "Build and persist the document index"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index <paths...>",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, cmder.configDir, err = wiring.LoadConfig(cmd, indexFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.paths = args
			cmder.logger = wiring.NewLogger(cmd)
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddIntFlag(cmd, config.DocqaFlags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, config.DocqaFlags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.DocqaFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagVectorStoreProv, &cmder.storeProv)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagVectorStoreTgt, &cmder.storeTgt)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagCSVTextColumn, &cmder.csvTextColumn)

	return cmd
}

func (c *indexCommander) run(ctx context.Context, out io.Writer) error {
	rt, err := wiring.New(ctx, c.cfg, wiring.Options{ConfigDir: c.configDir, Logger: c.logger})
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	var docs []document.Document
	err = cliui.Step(out, "Loading documents", func() error {
		docs, err = rt.Loader.LoadPaths(ctx, c.paths)
		return err
	})
	if err != nil {
		return err
	}

	var stats *rag.BuildStats
	err = cliui.Step(out, fmt.Sprintf("Embedding %d documents", len(docs)), func() error {
		stats, err = rt.Indexer.Rebuild(ctx, docs)
		return err
	})
	if err != nil {
		return err
	}

	printStats(out, stats)
	return nil
}

func printStats(out io.Writer, stats *rag.BuildStats) {
	fmt.Fprintf(out, "\n  %s Indexed %s documents into %s chunks (%s dimensions) in %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(fmt.Sprint(stats.Documents)),
		cliui.ValueStyle.Render(fmt.Sprint(stats.Chunks)),
		cliui.DimStyle.Render(fmt.Sprint(stats.Dimension)),
		cliui.FormatDuration(stats.Duration),
	)
	for _, src := range stats.Sources {
		fmt.Fprintf(out, "    %s\n", cliui.SourceStyle.Render(src))
	}
	fmt.Fprintln(out)
}
