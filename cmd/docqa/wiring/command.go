package wiring

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/logger"
)

// LoadConfig resolves the effective configuration for cmd: registered flags
// over DOCQA_* env over config.toml over defaults. It returns the config
// directory override alongside.
func LoadConfig(cmd *cobra.Command, flagKeys []string) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.DocqaFlags, flagKeys)

	return config.FromViper(v), configDir, nil
}

// NewLogger builds the command logger from the persistent --debug flag.
// Logs go to stderr so command output stays pipeable.
func NewLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")

	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(cliui.IsTerminal(os.Stderr)),
		logger.WithWriter(os.Stderr),
	)
}
