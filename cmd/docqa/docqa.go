// Package docqacmder provides the root docqa command.
package docqacmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/docqa/cmd/docqa/ask"
	configcmder "github.com/papercomputeco/docqa/cmd/docqa/config"
	evalcmder "github.com/papercomputeco/docqa/cmd/docqa/eval"
	indexcmder "github.com/papercomputeco/docqa/cmd/docqa/index"
	initcmder "github.com/papercomputeco/docqa/cmd/docqa/init"
	searchcmder "github.com/papercomputeco/docqa/cmd/docqa/search"
	servecmder "github.com/papercomputeco/docqa/cmd/docqa/serve"
	versioncmder "github.com/papercomputeco/docqa/cmd/docqa/version"
)

const docqaLongDesc string = `docqa answers questions about your documents.

Index text, markdown, CSV and PDF files once, then ask questions that are
answered only from what the documents say:
  docqa index ./docs          Build and persist the index
  docqa ask "question"        Answer a question and list its sources
  docqa search "query"        Show what the index retrieves
  docqa eval qa.csv           Grade answers against expected answers
  docqa serve                 Run the HTTP API and MCP server

Configuration lives in .docqa/config.toml (see "docqa config"), provider
keys in .docqa/credentials.toml or the provider's environment variable.`

const docqaShortDesc string = "docqa - grounded answers from your documents"

func NewDocqaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "docqa",
		Short:        docqaShortDesc,
		Long:         docqaLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .docqa/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(evalcmder.NewEvalCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
