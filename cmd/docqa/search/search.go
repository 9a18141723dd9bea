// Package searchcmder provides the search command, which shows what the
// index retrieves for a query without asking the model.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/docqa/api/search"
	"github.com/papercomputeco/docqa/cmd/docqa/wiring"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/rag"
	"github.com/papercomputeco/docqa/pkg/utils"
	"github.com/papercomputeco/docqa/pkg/vector"
)

const previewLen = 100

type searchCommander struct {
	query     string
	configDir string
	cfg       *config.Config
	logger    *slog.Logger

	remote bool
	quiet  bool

	// set when the user passed the flag, so remote searches only override
	// what was asked for
	topKSet      bool
	thresholdSet bool

	topK           int
	threshold      float64
	apiTarget      string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	storeProv      string
	storeTgt       string
}

var searchFlags = []string{
	config.FlagTopK,
	config.FlagThreshold,
	config.FlagAPITarget,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
}

const searchLongDesc string = `Search the document index.

Embeds the query and prints the most similar chunks with their scores and
sources. No answer is generated, which makes search the quickest way to see
what "docqa ask" would put in front of the model.

By default the local index is searched. Use --remote to query a running
docqa server at client.api_target instead.

Use --quiet to print only the matching sources, one per line.

Examples:
  docqa search "how do I reset my password"
  docqa search "refund policy" --top-k 10 --threshold 0.5
  docqa search "refund policy" --remote --api-target http://localhost:8081
  docqa search "invoices" --quiet`

const searchShortDesc string = "Search the document index"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, cmder.configDir, err = wiring.LoadConfig(cmd, searchFlags)
			cmder.topKSet = cmd.Flags().Changed(config.DocqaFlags[config.FlagTopK].Name)
			cmder.thresholdSet = cmd.Flags().Changed(config.DocqaFlags[config.FlagThreshold].Name)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.logger = wiring.NewLogger(cmd)
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&cmder.remote, "remote", false, "Search through a running docqa server instead of the local index")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only sources, one per line (for piping)")

	config.AddIntFlag(cmd, config.DocqaFlags, config.FlagTopK, &cmder.topK)
	config.AddFloatFlag(cmd, config.DocqaFlags, config.FlagThreshold, &cmder.threshold)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagVectorStoreProv, &cmder.storeProv)
	config.AddStringFlag(cmd, config.DocqaFlags, config.FlagVectorStoreTgt, &cmder.storeTgt)

	return cmd
}

func (c *searchCommander) run(ctx context.Context, out io.Writer) error {
	if strings.TrimSpace(c.query) == "" {
		return rag.ErrEmptyQuestion
	}

	var (
		output *apisearch.SearchOutput
		err    error
	)
	if c.remote {
		output, err = SearchAPI(ctx, c.cfg.Client.APITarget, c.remoteInput())
	} else {
		output, err = c.searchLocal(ctx)
	}
	if err != nil {
		return err
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Fprintln(out, location(result))
		}
		return nil
	}

	if output.Count == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search results for:"),
		cliui.SourceStyle.Render(fmt.Sprintf("%q", output.Query)),
	)
	for _, result := range output.Results {
		printResult(out, result)
	}

	return nil
}

func (c *searchCommander) searchLocal(ctx context.Context) (*apisearch.SearchOutput, error) {
	rt, err := wiring.New(ctx, c.cfg, wiring.Options{ConfigDir: c.configDir, Restore: true, Logger: c.logger})
	if err != nil {
		return nil, err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	s := &retrieverSearcher{
		retriever: rt.Retriever,
		topK:      c.cfg.Retrieval.TopK,
		threshold: c.cfg.Retrieval.ThresholdValue(),
	}
	return apisearch.Search(ctx, s, apisearch.SearchInput{Query: c.query}, c.logger)
}

func (c *searchCommander) remoteInput() apisearch.SearchInput {
	input := apisearch.SearchInput{Query: c.query}
	if c.topKSet {
		input.TopK = c.cfg.Retrieval.TopK
	}
	if c.thresholdSet {
		threshold := c.cfg.Retrieval.ThresholdValue()
		input.Threshold = &threshold
	}
	return input
}

func printResult(out io.Writer, result apisearch.SearchResult) {
	fmt.Fprintf(out, "  %s  %s  %s\n",
		cliui.RankStyle.Render(fmt.Sprintf("#%d", result.Rank)),
		cliui.ScoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		cliui.SourceStyle.Render(location(result)),
	)
	fmt.Fprintf(out, "  %s\n", cliui.PreviewStyle.Render(utils.Preview(result.Text, previewLen)))
	if len(result.Metadata) > 0 {
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(formatMetadata(result.Metadata)))
	}
	fmt.Fprintln(out)
}

func location(result apisearch.SearchResult) string {
	if result.Locator == "" {
		return result.Source
	}
	return result.Source + " (" + result.Locator + ")"
}

func formatMetadata(meta map[string]string) string {
	parts := make([]string, 0, len(meta))
	for k, v := range meta {
		parts = append(parts, k+"="+utils.Truncate(v, 40))
	}
	slices.Sort(parts)
	return strings.Join(parts, "  ")
}

// retrieverSearcher searches the local index without a generator.
type retrieverSearcher struct {
	retriever *rag.Retriever
	topK      int
	threshold float64
}

func (s *retrieverSearcher) Search(ctx context.Context, query string, k int, threshold float64) ([]vector.Result, error) {
	return s.retriever.Retrieve(ctx, query, k, threshold)
}

func (s *retrieverSearcher) TopK() int          { return s.topK }
func (s *retrieverSearcher) Threshold() float64 { return s.threshold }

// SearchAPI calls the docqa search API and returns the parsed output.
func SearchAPI(ctx context.Context, apiTarget string, input apisearch.SearchInput) (*apisearch.SearchOutput, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", input.Query)
	if input.TopK > 0 {
		q.Set("top_k", strconv.Itoa(input.TopK))
	}
	if input.Threshold != nil {
		q.Set("threshold", strconv.FormatFloat(*input.Threshold, 'f', -1, 64))
	}
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docqa API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output apisearch.SearchOutput
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
