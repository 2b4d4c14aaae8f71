package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for oabscraper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oabscraper",
		Short: "Scrape the OAB-PR lawyer registry into a spreadsheet",
		Long: `oabscraper collects the public registry of lawyers of the OAB-PR.

It opens the paginated listing in a real browser, visits every lawyer's
detail page, solves the reCAPTCHA through its audio challenge using a
speech-to-text service, and appends the detail fields to an .xlsx file.

Set OABSCRAPER_SPEECH_API_KEY to your Google Speech-to-Text API key.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
