package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/oabscraper/internal/browser"
	"github.com/nao1215/oabscraper/internal/browser/browsertest"
	"github.com/nao1215/oabscraper/internal/config"
	"github.com/nao1215/oabscraper/internal/database"
	"github.com/nao1215/oabscraper/internal/locator"
	"github.com/nao1215/oabscraper/internal/store"
)

const testListingURL = "https://registry.test/lista/?nr_inscricao=0&nome=0&situacao=A"

var testReg = locator.Default()

func expr(key string) string {
	return testReg.MustGet(key).Expr
}

// solvedDetailPage builds a detail page whose challenge is already solved.
// Submitting the form reveals the print button.
func solvedDetailPage(name string) *browsertest.Document {
	anchor := browsertest.NewDocument().
		Add(expr(locator.KeyAnchorContent), browsertest.NewElement("I'm not a robot")).
		Add(expr(locator.KeyAnchorCheckbox), browsertest.NewElement("", "aria-checked", "true"))

	top := browsertest.NewDocument().AddFrame(expr(locator.KeyAnchorFrame), anchor)
	top.HTML = `<html><body><table class="table table-striped"><tbody>` +
		`<tr><td>Inscrição</td><td>1234</td></tr>` +
		`<tr><td>Nome</td><td>` + name + `</td></tr>` +
		`<tr><td>Nome social</td><td></td></tr>` +
		`<tr><td>Situação</td><td>Ativo</td></tr>` +
		`<tr><td>Cidade</td><td>Curitiba</td></tr>` +
		`<tr><td>Data</td><td>01/01/2000</td></tr>` +
		`<tr><td>Endereço</td><td>Rua A</td></tr>` +
		`<tr><td>Telefone</td><td>(41) 0000-0000</td></tr>` +
		`</tbody></table></body></html>`
	top.Add(expr(locator.KeyRows), browsertest.NewElement(""))

	submit := browsertest.NewElement("", "value", "ENVIAR")
	submit.OnClick = func() {
		top.Add(expr(locator.KeyPrint), browsertest.NewElement("", "value", "Imprimir"))
	}
	top.Add(expr(locator.KeySubmit), submit)
	return top
}

// newTestDriver serves a one-page listing with the given lawyers.
func newTestDriver(names ...string) *browsertest.Driver {
	listingDoc := browsertest.NewDocument()
	d := browsertest.NewDriver()
	for i, name := range names {
		href := fmt.Sprintf("https://registry.test/detalhe/?id=%d", i+1)
		listingDoc.Add(expr(locator.KeyRecordLink), browsertest.NewElement(name, "href", href))
		d.AddPage(href, solvedDetailPage(name))
	}
	listingDoc.Add(expr(locator.KeyLastPage), browsertest.NewElement("Última", "href", testListingURL+"&pg=1"))
	d.AddPage(testListingURL, listingDoc)
	return d
}

// nopBrowser is the closer of a test driver.
type nopBrowser struct{ closed bool }

func (b *nopBrowser) Close() error {
	b.closed = true
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.ListingURL = testListingURL
	cfg.OutputFile = filepath.Join(dir, "lawyers.xlsx")
	cfg.DBDir = filepath.Join(dir, "db")
	cfg.LogToFile = false
	cfg.SettleTimeout = 50 * time.Millisecond
	cfg.SubmitTimeout = time.Second
	cfg.ElementTimeout = time.Second
	cfg.TempDir = dir
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func starterFor(d browser.Driver, closer *nopBrowser) driverStarter {
	return func(context.Context, *config.Config, *slog.Logger) (browser.Driver, io.Closer, error) {
		return d, closer, nil
	}
}

// TestRunScrape tests a complete run against an in-memory registry.
func TestRunScrape(t *testing.T) {
	t.Parallel()

	t.Run("persists every record and records the run", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		closer := &nopBrowser{}
		var out bytes.Buffer

		err := runScrape(context.Background(), cfg, discardLogger(), &out,
			starterFor(newTestDriver("ANA", "BRUNO"), closer))
		if err != nil {
			t.Fatalf("runScrape() error: %v", err)
		}
		if !closer.closed {
			t.Error("expected the browser to be closed")
		}

		rows, err := store.New(cfg.OutputFile).Rows()
		if err != nil {
			t.Fatalf("Rows() error: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(rows))
		}
		if rows[1][1] != "ANA" || rows[2][1] != "BRUNO" {
			t.Errorf("unexpected names: %q, %q", rows[1][1], rows[2][1])
		}

		if !strings.Contains(out.String(), "OAB SCRAPER RUN") {
			t.Errorf("expected the summary on out, got:\n%s", out.String())
		}

		db, err := database.Open(cfg.DBDir, database.Options{})
		if err != nil {
			t.Fatalf("Open() error: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("ListRuns() error: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		if runs[0].Processed != 2 || runs[0].Persisted != 2 || runs[0].Aborted {
			t.Errorf("unexpected run summary: %+v", runs[0])
		}
		if runs[0].FinishedAt.IsZero() {
			t.Error("expected the run to be finished")
		}
	})

	t.Run("markdown summary goes to the report file", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		cfg.SaveToDB = false
		cfg.MarkdownReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "run.md")
		var out bytes.Buffer

		err := runScrape(context.Background(), cfg, discardLogger(), &out,
			starterFor(newTestDriver("ANA"), &nopBrowser{}))
		if err != nil {
			t.Fatalf("runScrape() error: %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("expected nothing on out, got:\n%s", out.String())
		}

		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(data), "# OAB Scraper Run") {
			t.Errorf("expected a Markdown summary, got:\n%s", data)
		}
		if _, err := os.Stat(filepath.Join(cfg.DBDir, database.FileName)); !os.IsNotExist(err) {
			t.Error("expected no database when the ledger is disabled")
		}
	})

	t.Run("missing listing aborts the run", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		var out bytes.Buffer

		err := runScrape(context.Background(), cfg, discardLogger(), &out,
			starterFor(browsertest.NewDriver(), &nopBrowser{}))
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "run aborted") {
			t.Errorf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "Aborted") {
			t.Errorf("expected an aborted summary, got:\n%s", out.String())
		}
	})

	t.Run("browser start failure is recorded", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		startErr := errors.New("chrome not found")
		start := func(context.Context, *config.Config, *slog.Logger) (browser.Driver, io.Closer, error) {
			return nil, nil, startErr
		}

		err := runScrape(context.Background(), cfg, discardLogger(), io.Discard, start)
		if !errors.Is(err, startErr) {
			t.Fatalf("expected %v, got %v", startErr, err)
		}

		db, err := database.Open(cfg.DBDir, database.Options{})
		if err != nil {
			t.Fatalf("Open() error: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("ListRuns() error: %v", err)
		}
		if len(runs) != 1 || !runs[0].Aborted {
			t.Errorf("expected one aborted run, got %+v", runs)
		}
	})

	t.Run("canceled context interrupts the run", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		cfg.SaveToDB = false
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := runScrape(ctx, cfg, discardLogger(), io.Discard,
			starterFor(newTestDriver("ANA"), &nopBrowser{}))
		if err == nil {
			t.Fatal("expected an error")
		}
	})
}

// TestBuildRunConfig tests the flag, file and environment layering.
func TestBuildRunConfig(t *testing.T) {
	t.Parallel()

	noEnv := func(string) string { return "" }

	t.Run("unset flags keep the file values", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "listing:\n  maxPages: 3\noutput:\n  file: from-file.xlsx\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewRunCmd()
		if err := cmd.ParseFlags([]string{"--config", path, "--headless"}); err != nil {
			t.Fatalf("ParseFlags() error: %v", err)
		}

		cfg, err := buildRunConfig(cmd, noEnv)
		if err != nil {
			t.Fatalf("buildRunConfig() error: %v", err)
		}
		if cfg.MaxPages != 3 {
			t.Errorf("expected max pages 3, got %d", cfg.MaxPages)
		}
		if cfg.OutputFile != "from-file.xlsx" {
			t.Errorf("expected output from file, got %q", cfg.OutputFile)
		}
		if !cfg.Headless {
			t.Error("expected headless from flag")
		}
	})

	t.Run("flags override the file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("listing:\n  maxPages: 3\n"), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewRunCmd()
		if err := cmd.ParseFlags([]string{"-c", path, "-p", "7", "--no-db"}); err != nil {
			t.Fatalf("ParseFlags() error: %v", err)
		}

		cfg, err := buildRunConfig(cmd, noEnv)
		if err != nil {
			t.Fatalf("buildRunConfig() error: %v", err)
		}
		if cfg.MaxPages != 7 {
			t.Errorf("expected max pages 7, got %d", cfg.MaxPages)
		}
		if cfg.SaveToDB {
			t.Error("expected the ledger to be disabled")
		}
	})

	t.Run("environment supplies the speech key", func(t *testing.T) {
		t.Parallel()

		cmd := NewRunCmd()
		path := filepath.Join(t.TempDir(), "empty.yaml")
		if err := os.WriteFile(path, []byte("{}\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if err := cmd.ParseFlags([]string{"-c", path}); err != nil {
			t.Fatalf("ParseFlags() error: %v", err)
		}

		env := func(key string) string {
			if key == config.EnvSpeechAPIKey {
				return "secret"
			}
			return ""
		}
		cfg, err := buildRunConfig(cmd, env)
		if err != nil {
			t.Fatalf("buildRunConfig() error: %v", err)
		}
		if cfg.SpeechAPIKey != "secret" {
			t.Errorf("expected key from environment, got %q", cfg.SpeechAPIKey)
		}
	})

	t.Run("explicit missing config is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewRunCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatalf("ParseFlags() error: %v", err)
		}

		_, err := buildRunConfig(cmd, noEnv)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}
