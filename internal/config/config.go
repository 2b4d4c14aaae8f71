package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/oabscraper/internal/locator"
)

// Default configuration values.
const (
	// DefaultListingURL is the lawyer search with every filter neutralized:
	// all names, all cities, all specialties, active status only.
	DefaultListingURL = "https://www.oabpr.org.br/servicos-consulta-de-advogados/lista-de-advogados/" +
		"?nr_inscricao=0&nome=0&cidade=0&especialidade=0&situacao=A"

	// DefaultOutputFile is created in the working directory.
	DefaultOutputFile = "advogados_OABPR.xlsx"

	// DefaultElementTimeout bounds every element lookup.
	DefaultElementTimeout = 30 * time.Second

	// DefaultNavigationTimeout bounds page loads. The registry is slow under
	// load, so this is twice the element timeout.
	DefaultNavigationTimeout = 60 * time.Second

	// DefaultSettleTimeout bounds the two challenge checkpoints: after the
	// checkbox click and after the audio answer is verified.
	DefaultSettleTimeout = 2 * time.Second

	// DefaultSubmitTimeout bounds the wait for the print button after the
	// detail form is submitted.
	DefaultSubmitTimeout = 60 * time.Second

	// DefaultDownloadTimeout bounds the audio challenge download.
	DefaultDownloadTimeout = 30 * time.Second

	// DefaultSpeechEndpoint is the Google Speech-to-Text v1 recognize method.
	DefaultSpeechEndpoint = "https://speech.googleapis.com/v1/speech:recognize"

	// DefaultSpeechLanguage matches the language of the audio challenge.
	DefaultSpeechLanguage = "en-US"

	// DefaultLogDir is relative to the working directory.
	DefaultLogDir = "logs"

	// AppName is the application name used for XDG directory paths.
	AppName = "oabscraper"

	// EnvSpeechAPIKey names the environment variable holding the recognition key.
	EnvSpeechAPIKey = "OABSCRAPER_SPEECH_API_KEY"
)

// Config holds all configuration options for a scraping run.
// It is populated from defaults, then the YAML file, then the environment,
// then CLI flags, and passed down explicitly to every component.
//
// Design decision: the struct stays flat like the CLI flags that fill it.
// The YAML file is sectioned for readability and File.Apply flattens it.
type Config struct {
	// ListingURL is the search-results URL without the pg parameter.
	ListingURL string

	// MaxPages caps the number of listing pages processed. Zero means every
	// page up to the last one.
	MaxPages int

	// OutputFile is the spreadsheet rows are appended to.
	OutputFile string

	// Headless runs the local browser without a window.
	Headless bool

	// RemoteBrowserURL connects to an existing DevTools endpoint instead of
	// launching a local browser.
	RemoteBrowserURL string

	// BrowserBin overrides the browser binary used by the launcher.
	BrowserBin string

	// ElementTimeout bounds element lookups.
	ElementTimeout time.Duration

	// NavigationTimeout bounds page loads.
	NavigationTimeout time.Duration

	// SettleTimeout bounds each challenge checkpoint poll.
	SettleTimeout time.Duration

	// SubmitTimeout bounds the wait for the post-submission page.
	SubmitTimeout time.Duration

	// ProceedOnCaptchaFailure extracts the record even when the challenge
	// resolver failed. By default such records are skipped.
	ProceedOnCaptchaFailure bool

	// SpeechAPIKey authenticates the recognition call.
	SpeechAPIKey string

	// SpeechEndpoint is the recognize URL.
	SpeechEndpoint string

	// SpeechLanguage is the BCP-47 language code sent to the recognizer.
	SpeechLanguage string

	// DownloadTimeout bounds the audio download.
	DownloadTimeout time.Duration

	// TempDir holds the transient audio files. Empty means the platform
	// temp directory.
	TempDir string

	// Locators overrides individual selector expressions by key.
	Locators map[string]string

	// Verbose enables debug logging.
	Verbose bool

	// LogToFile enables the rotating log file.
	LogToFile bool

	// LogDir is where log files are written.
	LogDir string

	// SaveToDB records every run and record outcome in the run ledger.
	SaveToDB bool

	// DBDir is the run ledger directory.
	DBDir string

	// MarkdownReport renders the run summary as Markdown.
	MarkdownReport bool

	// ReportFile receives the run summary instead of stdout.
	ReportFile string

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeouts, URLs).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		ListingURL:        DefaultListingURL,
		OutputFile:        DefaultOutputFile,
		ElementTimeout:    DefaultElementTimeout,
		NavigationTimeout: DefaultNavigationTimeout,
		SettleTimeout:     DefaultSettleTimeout,
		SubmitTimeout:     DefaultSubmitTimeout,
		DownloadTimeout:   DefaultDownloadTimeout,
		SpeechEndpoint:    DefaultSpeechEndpoint,
		SpeechLanguage:    DefaultSpeechLanguage,
		LogToFile:         true,
		LogDir:            DefaultLogDir,
		SaveToDB:          true,
		DBDir:             XDGDataDir(),
		Locators:          make(map[string]string),
	}
}

// XDGDataDir returns the XDG data directory for the scraper.
// On Linux: ~/.local/share/oabscraper
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the scraper.
// On Linux: ~/.config/oabscraper
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Registry returns the default locator registry with the configured
// overrides applied.
func (c *Config) Registry() (*locator.Registry, error) {
	reg := locator.Default()
	if len(c.Locators) == 0 {
		return reg, nil
	}
	if err := reg.Override(c.Locators); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLocators, err)
	}
	return reg, nil
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate once after flags and files are merged so the
// run fails before the browser is launched.
func (c *Config) Validate() error {
	if err := validateHTTPURL(c.ListingURL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListingURL, err)
	}

	if c.OutputFile == "" || !strings.EqualFold(filepath.Ext(c.OutputFile), ".xlsx") {
		return ErrInvalidOutputFile
	}

	if c.ElementTimeout <= 0 || c.NavigationTimeout <= 0 ||
		c.SettleTimeout <= 0 || c.SubmitTimeout <= 0 || c.DownloadTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if err := validateHTTPURL(c.SpeechEndpoint); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpeechEndpoint, err)
	}

	if c.RemoteBrowserURL != "" {
		u, err := url.Parse(c.RemoteBrowserURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http" && u.Scheme != "https") {
			return ErrInvalidRemoteBrowser
		}
	}

	if c.LogToFile && c.LogDir == "" {
		return ErrNoLogDir
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}

	if _, err := c.Registry(); err != nil {
		return err
	}

	return nil
}

// validateHTTPURL requires an absolute http or https URL.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
