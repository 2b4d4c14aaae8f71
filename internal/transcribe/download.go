package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Downloader fetches a remote resource into a local file.
type Downloader interface {
	Download(ctx context.Context, url, dst string) error
}

// HTTPDownloader downloads over HTTP with resty.
type HTTPDownloader struct {
	client *resty.Client
}

// DownloaderOption configures an HTTPDownloader.
type DownloaderOption func(*HTTPDownloader)

// WithDownloadTimeout bounds each download.
func WithDownloadTimeout(d time.Duration) DownloaderOption {
	return func(h *HTTPDownloader) {
		h.client.SetTimeout(d)
	}
}

// WithDownloadClient replaces the resty client.
func WithDownloadClient(c *resty.Client) DownloaderOption {
	return func(h *HTTPDownloader) {
		h.client = c
	}
}

// NewHTTPDownloader creates a downloader with a 30 second timeout.
func NewHTTPDownloader(opts ...DownloaderOption) *HTTPDownloader {
	h := &HTTPDownloader{client: resty.New().SetTimeout(30 * time.Second)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Download writes the response body of a GET to url into dst.
// A non-2xx status is an error.
func (h *HTTPDownloader) Download(ctx context.Context, url, dst string) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetOutput(dst).
		Get(url)
	if err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to download audio: unexpected status %s", resp.Status())
	}
	return nil
}
