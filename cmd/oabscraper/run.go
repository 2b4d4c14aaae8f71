package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/oabscraper/internal/browser"
	"github.com/nao1215/oabscraper/internal/captcha"
	"github.com/nao1215/oabscraper/internal/config"
	"github.com/nao1215/oabscraper/internal/database"
	"github.com/nao1215/oabscraper/internal/listing"
	"github.com/nao1215/oabscraper/internal/locator"
	applog "github.com/nao1215/oabscraper/internal/log"
	"github.com/nao1215/oabscraper/internal/model"
	"github.com/nao1215/oabscraper/internal/pipeline"
	"github.com/nao1215/oabscraper/internal/report"
	"github.com/nao1215/oabscraper/internal/store"
	"github.com/nao1215/oabscraper/internal/transcribe"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape the lawyer registry into the output workbook",
		Long: `Run opens the registry listing, reads the number of pages and visits
every lawyer's detail page in order. Each detail page is behind a
reCAPTCHA, which is solved through its audio challenge. The detail
fields are appended as one row of the output workbook.

A record that fails is logged and skipped; the run continues with the
next one. Every outcome is recorded in the run history database.

Examples:
  # Scrape every page with the defaults
  oabscraper run

  # Scrape the first two pages into a custom file
  oabscraper run --max-pages 2 -o lawyers.xlsx

  # Use an already running Chrome
  oabscraper run --remote-browser ws://127.0.0.1:9222/devtools/browser/<id>

  # Also write a Markdown summary
  oabscraper run --markdown --report-file run.md`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .oabscraper in current or home directory)")
	cmd.Flags().String("url", config.DefaultListingURL,
		"Listing URL without the pg parameter")
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Workbook the rows are appended to")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Process at most this many pages (0 = all)")

	cmd.Flags().Bool("headless", false,
		"Run the local Chrome without a window")
	cmd.Flags().String("remote-browser", "",
		"DevTools URL of a running Chrome instead of launching one")
	cmd.Flags().String("browser-bin", "",
		"Chrome binary to launch (default: detected or downloaded)")
	cmd.Flags().Bool("proceed-on-captcha-failure", false,
		"Extract the detail page even when the challenge could not be solved")

	cmd.Flags().Bool("log-file", true,
		"Also write logs to a rotating file")
	cmd.Flags().String("log-dir", config.DefaultLogDir,
		"Directory of the log files")

	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	cmd.Flags().BoolP("markdown", "m", false,
		"Write the run summary in Markdown")
	cmd.Flags().String("report-file", "",
		"Write the run summary to this file instead of stdout")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildRunConfig(cmd, os.Getenv)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logOpts := applog.Options{
		Console: os.Stderr,
		Verbose: cfg.Verbose,
	}
	if cfg.LogToFile {
		logOpts.FileDir = cfg.LogDir
	}
	logger, closer, err := applog.New(logOpts)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if cfg.SpeechAPIKey == "" {
		logger.Warn("no speech API key configured, audio challenges will fail",
			"env", config.EnvSpeechAPIKey)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping after the current record...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScrape(ctx, cfg, logger, cmd.OutOrStdout(), startBrowser)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildRunConfig merges defaults, the configuration file, the environment
// and the flags the user set, in that order.
func buildRunConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; the search locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	config.ApplyEnv(cfg, getenv)

	if flags.Changed("url") {
		if cfg.ListingURL, err = flags.GetString("url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output") {
		if cfg.OutputFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("headless") {
		if cfg.Headless, err = flags.GetBool("headless"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("remote-browser") {
		if cfg.RemoteBrowserURL, err = flags.GetString("remote-browser"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("browser-bin") {
		if cfg.BrowserBin, err = flags.GetString("browser-bin"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proceed-on-captcha-failure") {
		if cfg.ProceedOnCaptchaFailure, err = flags.GetBool("proceed-on-captcha-failure"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("log-file") {
		if cfg.LogToFile, err = flags.GetBool("log-file"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("log-dir") {
		if cfg.LogDir, err = flags.GetString("log-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// driverStarter opens the page driver used for the whole run. The returned
// closer shuts the browser down.
type driverStarter func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (browser.Driver, io.Closer, error)

// startBrowser launches Chrome, or connects to the configured remote one.
func startBrowser(ctx context.Context, cfg *config.Config, logger *slog.Logger) (browser.Driver, io.Closer, error) {
	session := browser.NewSession(browser.Config{
		RemoteURL:         cfg.RemoteBrowserURL,
		Headless:          cfg.Headless,
		Bin:               cfg.BrowserBin,
		ElementTimeout:    cfg.ElementTimeout,
		NavigationTimeout: cfg.NavigationTimeout,
		Logger:            logger,
	})

	driver, err := session.Start(ctx)
	if err != nil {
		return nil, nil, err
	}
	return driver, session, nil
}

// runScrape wires every component and runs the scrape. The summary is
// written to out, or to cfg.ReportFile when set.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, start driverStarter) error {
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	runReport := model.NewRunReport(cfg.ListingURL, cfg.OutputFile)

	var db *database.RunDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if _, err := db.StartRun(ctx, runReport); err != nil {
			return err
		}
		logger.Info("run recorded", "run_id", runReport.RunID, "db", db.Path())
	}

	driver, closer, err := start(ctx, cfg, logger)
	if err != nil {
		runReport.Abort(err)
		runReport.Finish()
		finishRun(db, runReport, logger)
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	runner := newRunner(driver, reg, cfg, db, runReport.RunID, logger)
	runErr := runner.Run(ctx, runReport)

	finishRun(db, runReport, logger)

	if err := writeSummary(cfg, runReport, out); err != nil {
		logger.Error("failed to write summary", "error", err)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("run interrupted after %d record(s)", runReport.Processed)
		}
		return fmt.Errorf("run aborted: %w", runErr)
	}
	return nil
}

// newRunner assembles the record pipeline and the page loop.
func newRunner(driver browser.Driver, reg *locator.Registry, cfg *config.Config, db *database.RunDB, runID int64, logger *slog.Logger) *pipeline.Runner {
	transcriber := transcribe.NewService(
		transcribe.NewHTTPDownloader(transcribe.WithDownloadTimeout(cfg.DownloadTimeout)),
		transcribe.MP3ToWAV{},
		transcribe.NewCloudSpeech(cfg.SpeechAPIKey,
			transcribe.WithEndpoint(cfg.SpeechEndpoint),
			transcribe.WithLanguage(cfg.SpeechLanguage),
		),
		transcribe.WithTempDir(cfg.TempDir),
		transcribe.WithLogger(logger),
	)

	resolver := captcha.New(driver, transcriber, reg,
		captcha.WithSettleTimeout(cfg.SettleTimeout),
		captcha.WithSubmitTimeout(cfg.SubmitTimeout),
		captcha.WithLogger(logger),
	)

	workbook := store.New(cfg.OutputFile, store.WithLogger(logger))

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewNavigateStep(driver),
		pipeline.NewCaptchaStep(resolver,
			pipeline.WithProceedOnFailure(cfg.ProceedOnCaptchaFailure),
			pipeline.WithCaptchaLogger(logger),
		),
		pipeline.NewExtractStep(driver, reg,
			pipeline.WithExtractWaitTimeout(cfg.ElementTimeout),
			pipeline.WithExtractLogger(logger),
		),
		pipeline.NewPersistStep(workbook),
	)

	opts := []pipeline.RunnerOption{
		pipeline.WithMaxPages(cfg.MaxPages),
		pipeline.WithRunnerLogger(logger),
	}
	if db != nil {
		opts = append(opts, pipeline.WithResultSink(db.Sink(runID)))
	}

	nav := listing.New(driver, reg, cfg.ListingURL,
		listing.WithWaitTimeout(cfg.NavigationTimeout),
		listing.WithLogger(logger),
	)

	return pipeline.NewRunner(nav, workbook,
		pipeline.NewProcessor(p, pipeline.WithProcessorLogger(logger)),
		opts...,
	)
}

// finishRun stores the final counters. It runs even when the run was
// interrupted, so it does not use the run context.
func finishRun(db *database.RunDB, runReport *model.RunReport, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.FinishRun(context.Background(), runReport); err != nil {
		logger.Error("failed to record run result", "run_id", runReport.RunID, "error", err)
	}
}

// writeSummary renders the run report as text or Markdown.
func writeSummary(cfg *config.Config, runReport *model.RunReport, out io.Writer) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var w report.Writer
	if cfg.MarkdownReport {
		w = report.NewMarkdownWriter(out)
	} else {
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	_, err := w.Write(runReport)
	return err
}
