package transcribe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/oabscraper/internal/model"
)

// Service runs download, transcode and recognize for one audio challenge.
type Service struct {
	downloader Downloader
	transcoder Transcoder
	recognizer Recognizer
	dir        string
	paths      func(dir string) (string, string)
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTempDir sets the directory for the temp audio files.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dir = dir
		}
	}
}

// WithPathFunc replaces TempPaths.
func WithPathFunc(fn func(dir string) (string, string)) Option {
	return func(s *Service) {
		s.paths = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service writing temp files to DefaultTempDir.
func NewService(d Downloader, t Transcoder, r Recognizer, opts ...Option) *Service {
	s := &Service{
		downloader: d,
		transcoder: t,
		recognizer: r,
		dir:        DefaultTempDir(),
		paths:      TempPaths,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transcribe returns the recognized text of the audio at audioURL.
// Failures are *model.Error values of kind KindTranscription.
func (s *Service) Transcribe(ctx context.Context, audioURL string) (string, error) {
	mp3Path, wavPath := s.paths(s.dir)
	defer s.remove(mp3Path)
	defer s.remove(wavPath)

	s.logger.Debug("downloading audio challenge", "dst", mp3Path)
	if err := s.downloader.Download(ctx, audioURL, mp3Path); err != nil {
		return "", model.NewError(model.KindTranscription, "download audio", err)
	}

	if err := s.transcoder.Transcode(mp3Path, wavPath); err != nil {
		return "", model.NewError(model.KindTranscription, "transcode audio", err)
	}

	text, err := s.recognizer.Recognize(ctx, wavPath)
	if err != nil {
		return "", model.NewError(model.KindTranscription, "recognize audio", err)
	}

	s.logger.Debug("audio challenge transcribed", "chars", len(text))
	return text, nil
}

func (s *Service) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove temp audio file", "path", path, "error", err)
	}
}
