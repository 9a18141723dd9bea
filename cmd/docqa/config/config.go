// Package configcmder provides the config command for managing persistent
// docqa configuration stored in the .docqa/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent docqa configuration.

Configuration is stored as config.toml in the .docqa/ directory and provides
default values for command flags. CLI flags and DOCQA_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  chunking.size, chunking.overlap, chunking.separators,
  retrieval.top_k, retrieval.threshold,
  prompt.template, prompt.fallback,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.provider, llm.target, llm.model, llm.max_tokens,
  vector_store.provider, vector_store.target, vector_store.collection,
  loader.csv_text_column, api.listen, client.api_target,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  telemetry.otlp_endpoint, telemetry.sample_rate

Use subcommands to get, set, or list configuration values:
  docqa config set <key> <value>    Set a configuration value
  docqa config get <key>            Get a configuration value
  docqa config list                 List all configuration values

Examples:
  docqa config set llm.provider anthropic
  docqa config set retrieval.threshold 0.5
  docqa config get embedding.model
  docqa config list`

const configShortDesc string = "Manage persistent docqa configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
