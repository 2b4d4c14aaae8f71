package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/oabscraper/internal/config"
	"github.com/nao1215/oabscraper/internal/database"
	"github.com/nao1215/oabscraper/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed when --limit is not set.
const defaultHistoryLimit = 20

// errConflictingViews is returned when more than one of --show and --failed is set.
var errConflictingViews = errors.New("--show and --failed cannot be used together")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs recorded in the history database",
		Long: `History reads the run database written by the run command.

Without flags it lists the most recent runs. Use --show to print the
full summary of one run and --failed to list the records of a run that
did not produce a row.

Examples:
  # List the last 20 runs
  oabscraper history

  # Show run 3 as Markdown
  oabscraper history --show 3 --markdown

  # Failed records of run 3 as JSON
  oabscraper history --failed 3 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs to list (0 = all)")
	cmd.Flags().Int64("show", 0,
		"Show the summary of the run with this ID")
	cmd.Flags().Int64("failed", 0,
		"List the failed records of the run with this ID")
	cmd.Flags().Bool("json", false,
		"Output JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	dbDir    string
	limit    int
	show     int64
	failed   int64
	json     bool
	markdown bool
	verbose  bool
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}
	return showHistory(cmd.Context(), opts, cmd.OutOrStdout())
}

func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	flags := cmd.Flags()
	opts := historyOptions{verbose: getVerboseFlag(cmd)}

	var err error
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.show, err = flags.GetInt64("show"); err != nil {
		return opts, err
	}
	if opts.failed, err = flags.GetInt64("failed"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}

	if opts.show != 0 && opts.failed != 0 {
		return opts, errConflictingViews
	}
	return opts, nil
}

// showHistory opens the database read-only and renders the requested view.
func showHistory(ctx context.Context, opts historyOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	w := historyWriter(opts, out)

	switch {
	case opts.show != 0:
		run, err := db.GetRun(ctx, opts.show)
		if err != nil {
			return err
		}
		_, err = w.Write(run)
		return err

	case opts.failed != 0:
		// GetRun distinguishes a missing run from a run without failures.
		if _, err := db.GetRun(ctx, opts.failed); err != nil {
			return err
		}
		failures, err := db.GetRecordResults(ctx, opts.failed, true)
		if err != nil {
			return err
		}
		_, err = w.WriteFailures(opts.failed, failures)
		return err

	default:
		runs, err := db.ListRuns(ctx, opts.limit)
		if err != nil {
			return err
		}
		_, err = w.WriteHistory(runs)
		return err
	}
}

// historyWriter picks the output format. JSON wins over Markdown.
func historyWriter(opts historyOptions, out io.Writer) report.Writer {
	switch {
	case opts.json:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(opts.verbose))
	}
}
