package config

import "time"

// ListingSection configures which listing is scraped.
type ListingSection struct {
	// URL is the search-results URL without the pg parameter.
	URL string `yaml:"url,omitempty"`

	// MaxPages caps the number of pages processed.
	MaxPages int `yaml:"maxPages,omitempty"`
}

// OutputSection configures where results go.
type OutputSection struct {
	// File is the .xlsx workbook rows are appended to.
	File string `yaml:"file,omitempty"`

	// DBDir is the run ledger directory.
	DBDir string `yaml:"dbDir,omitempty"`
}

// BrowserSection configures the browser session.
type BrowserSection struct {
	Headless          *bool         `yaml:"headless,omitempty"`
	RemoteURL         string        `yaml:"remoteURL,omitempty"`
	Bin               string        `yaml:"bin,omitempty"`
	ElementTimeout    time.Duration `yaml:"elementTimeout,omitempty"`
	NavigationTimeout time.Duration `yaml:"navigationTimeout,omitempty"`
}

// CaptchaSection configures the challenge resolver.
type CaptchaSection struct {
	SettleTimeout    time.Duration `yaml:"settleTimeout,omitempty"`
	SubmitTimeout    time.Duration `yaml:"submitTimeout,omitempty"`
	ProceedOnFailure *bool         `yaml:"proceedOnFailure,omitempty"`
}

// SpeechSection configures audio download and recognition.
// The API key is better supplied through OABSCRAPER_SPEECH_API_KEY.
type SpeechSection struct {
	APIKey          string        `yaml:"apiKey,omitempty"`
	Endpoint        string        `yaml:"endpoint,omitempty"`
	Language        string        `yaml:"language,omitempty"`
	DownloadTimeout time.Duration `yaml:"downloadTimeout,omitempty"`
	TempDir         string        `yaml:"tempDir,omitempty"`
}

// LogSection configures the file sink.
type LogSection struct {
	Dir    string `yaml:"dir,omitempty"`
	ToFile *bool  `yaml:"toFile,omitempty"`
}

// File represents the structure of the .oabscraper configuration file.
// Every field is optional; unset fields keep the value already in Config.
type File struct {
	Listing ListingSection `yaml:"listing,omitempty"`
	Output  OutputSection  `yaml:"output,omitempty"`
	Browser BrowserSection `yaml:"browser,omitempty"`
	Captcha CaptchaSection `yaml:"captcha,omitempty"`
	Speech  SpeechSection  `yaml:"speech,omitempty"`

	// Locators maps locator keys to replacement selector expressions.
	// The dialect of each key is fixed.
	Locators map[string]string `yaml:"locators,omitempty"`

	Log LogSection `yaml:"log,omitempty"`
}

// Apply copies every set field of the file into cfg.
func (cf *File) Apply(cfg *Config) {
	setString(&cfg.ListingURL, cf.Listing.URL)
	if cf.Listing.MaxPages != 0 {
		cfg.MaxPages = cf.Listing.MaxPages
	}

	setString(&cfg.OutputFile, cf.Output.File)
	setString(&cfg.DBDir, cf.Output.DBDir)

	setBool(&cfg.Headless, cf.Browser.Headless)
	setString(&cfg.RemoteBrowserURL, cf.Browser.RemoteURL)
	setString(&cfg.BrowserBin, cf.Browser.Bin)
	setDuration(&cfg.ElementTimeout, cf.Browser.ElementTimeout)
	setDuration(&cfg.NavigationTimeout, cf.Browser.NavigationTimeout)

	setDuration(&cfg.SettleTimeout, cf.Captcha.SettleTimeout)
	setDuration(&cfg.SubmitTimeout, cf.Captcha.SubmitTimeout)
	setBool(&cfg.ProceedOnCaptchaFailure, cf.Captcha.ProceedOnFailure)

	setString(&cfg.SpeechAPIKey, cf.Speech.APIKey)
	setString(&cfg.SpeechEndpoint, cf.Speech.Endpoint)
	setString(&cfg.SpeechLanguage, cf.Speech.Language)
	setDuration(&cfg.DownloadTimeout, cf.Speech.DownloadTimeout)
	setString(&cfg.TempDir, cf.Speech.TempDir)

	if len(cf.Locators) > 0 {
		if cfg.Locators == nil {
			cfg.Locators = make(map[string]string, len(cf.Locators))
		}
		for k, v := range cf.Locators {
			cfg.Locators[k] = v
		}
	}

	setString(&cfg.LogDir, cf.Log.Dir)
	setBool(&cfg.LogToFile, cf.Log.ToFile)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
