package transcribe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrMissingAPIKey is returned when the cloud recognizer has no API key.
var ErrMissingAPIKey = errors.New("speech API key is not set")

// Recognizer converts a waveform file into text.
type Recognizer interface {
	Recognize(ctx context.Context, wavPath string) (string, error)
}

// CloudSpeech calls the Google Speech-to-Text v1 recognize method.
type CloudSpeech struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	language string
}

// CloudSpeechOption configures CloudSpeech.
type CloudSpeechOption func(*CloudSpeech)

// WithEndpoint overrides the recognize URL.
func WithEndpoint(endpoint string) CloudSpeechOption {
	return func(c *CloudSpeech) {
		c.endpoint = endpoint
	}
}

// WithLanguage sets the BCP-47 language code.
func WithLanguage(language string) CloudSpeechOption {
	return func(c *CloudSpeech) {
		c.language = language
	}
}

// WithRecognizeTimeout bounds each recognize call.
func WithRecognizeTimeout(d time.Duration) CloudSpeechOption {
	return func(c *CloudSpeech) {
		c.client.SetTimeout(d)
	}
}

// NewCloudSpeech creates a recognizer authenticated with apiKey.
func NewCloudSpeech(apiKey string, opts ...CloudSpeechOption) *CloudSpeech {
	c := &CloudSpeech{
		client:   resty.New().SetTimeout(30 * time.Second),
		endpoint: "https://speech.googleapis.com/v1/speech:recognize",
		apiKey:   apiKey,
		language: "en-US",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

// recognitionConfig omits encoding and sample rate; the WAV header carries both.
type recognitionConfig struct {
	LanguageCode    string `json:"languageCode"`
	MaxAlternatives int    `json:"maxAlternatives"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Recognize implements Recognizer. The top alternative of every result is
// joined with spaces. No results yields an empty string and a nil error.
func (c *CloudSpeech) Recognize(ctx context.Context, wavPath string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	data, err := os.ReadFile(wavPath) //nolint:gosec // path comes from TempPaths
	if err != nil {
		return "", fmt.Errorf("failed to read wav: %w", err)
	}

	var result recognizeResponse
	var failure apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(recognizeRequest{
			Config: recognitionConfig{LanguageCode: c.language, MaxAlternatives: 1},
			Audio:  recognitionAudio{Content: base64.StdEncoding.EncodeToString(data)},
		}).
		SetResult(&result).
		SetError(&failure).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("speech recognition request failed: %w", err)
	}
	if resp.IsError() {
		if failure.Error.Message != "" {
			return "", fmt.Errorf("speech recognition failed: %s: %s", resp.Status(), failure.Error.Message)
		}
		return "", fmt.Errorf("speech recognition failed: %s", resp.Status())
	}

	parts := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
