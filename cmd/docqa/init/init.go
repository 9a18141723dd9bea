// Package initcmder provides the init command for initializing a local .docqa
// directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
)

const (
	dirName = ".docqa"
)

type initCommander struct {
	preset string
	force  bool
}

const initLongDesc string = `Initialize a new .docqa/ directory in the current working directory.

Creates a local .docqa/ directory that takes precedence over the default
~/.docqa/ directory for configuration, credentials and the index database.
This is useful for keeping a separate index per project.

A config.toml with default values is written unless one exists. With
--preset the config is written for a provider combination instead:
  ollama      Local Ollama for embeddings and answers (default)
  openai      OpenAI embeddings and chat
  anthropic   OpenAI embeddings, Anthropic answers
  groq        Local Ollama embeddings, Groq answers
  gemini      Gemini embeddings and answers
  offline     Hashing embeddings, local Ollama answers

Examples:
  docqa init
  docqa init --preset openai
  docqa init --preset offline --force`

const initShortDesc string = "Initialize a local .docqa/ directory"

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Write a config.toml for a provider preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Overwrite an existing config.toml")

	return cmd
}

func (c *initCommander) run(out io.Writer) error {
	cfg := config.NewDefaultConfig()
	if c.preset != "" {
		var err error
		if cfg, err = config.PresetConfig(c.preset); err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .docqa directory: %w", err)
		}
		fmt.Fprintf(out, "Initialized .docqa directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfger.GetTarget()); err == nil && !c.force {
		if c.preset == "" {
			return nil
		}
		return fmt.Errorf("%s already exists, pass --force to overwrite it", cfger.GetTarget())
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	name := c.preset
	if name == "" {
		name = "default"
	}
	fmt.Fprintf(out, "%s Wrote %s config to %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(name), cfger.GetTarget())
	return nil
}
