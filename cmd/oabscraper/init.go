package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/nao1215/oabscraper/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/oabscraper.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a commented oabscraper configuration file",
		Long: `Initialize writes a commented .oabscraper configuration file.

The generated file documents every setting with its default value:
listing URL and page cap, output workbook, browser, captcha and speech
timeouts, selector overrides and logging.

Examples:
  # Create .oabscraper in current directory
  oabscraper init

  # Create config file at a specific path
  oabscraper init -o ~/.config/oabscraper/config.yaml

  # Force overwrite existing file
  oabscraper init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/oabscraper.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may later hold the speech API key.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Created configuration file: %s\n", color.New(color.FgGreen).Sprint("✓"), outputPath)
	fmt.Fprintf(out, "\n%s Set %s before running:\n", color.New(color.FgYellow).Sprint("!"), config.EnvSpeechAPIKey)
	fmt.Fprintf(out, "  export %s=<your Google Speech-to-Text key>\n", config.EnvSpeechAPIKey)

	return nil
}
