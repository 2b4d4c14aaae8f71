package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultMaxSizeMB is the size at which the log file is rotated.
	DefaultMaxSizeMB = 1

	// DefaultMaxBackups is the number of rotated files kept next to the active one.
	DefaultMaxBackups = 5

	// fileTimeLayout renders the run start time into the log file name.
	fileTimeLayout = "02-01-2006_15-04-05"

	// consoleTimeLayout is the timestamp shown on the console.
	consoleTimeLayout = "02-01-2006 15:04:05"
)

// Options configures New.
type Options struct {
	// Console receives human-readable colored output. Nil disables the console sink.
	Console io.Writer

	// NoColor disables ANSI colors on the console.
	NoColor bool

	// Verbose lowers the level of every sink to Debug.
	Verbose bool

	// FileDir enables the rotating file sink when non-empty.
	FileDir string

	// MaxSizeMB and MaxBackups tune rotation. Zero values use the defaults.
	MaxSizeMB  int
	MaxBackups int

	// Now overrides the clock used to name the log file.
	Now func() time.Time
}

// nopCloser is returned when no file sink is configured.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the application logger.
//
// Records flow through a SecureHandler into a fan-out of the enabled sinks,
// so the console and the log file always see the same sanitized attributes.
// The returned io.Closer flushes and closes the log file and must be closed
// when the run ends.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := levelFor(opts.Verbose)

	var handlers []slog.Handler
	if opts.Console != nil {
		handlers = append(handlers, tint.NewHandler(opts.Console, &tint.Options{
			Level:      level,
			TimeFormat: consoleTimeLayout,
			NoColor:    opts.NoColor,
		}))
	}

	var closer io.Closer = nopCloser{}
	if opts.FileDir != "" {
		file, err := newRotatingFile(opts)
		if err != nil {
			return nil, nil, err
		}
		closer = file
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}))
	}

	if len(handlers) == 0 {
		return Discard(), closer, nil
	}

	return slog.New(NewSecureHandler(slogmulti.Fanout(handlers...))), closer, nil
}

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("log_%s.log", t.Format(fileTimeLayout))
}

// newRotatingFile creates the log directory and the lumberjack writer.
func newRotatingFile(opts Options) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(opts.FileDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = DefaultMaxSizeMB
	}
	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(opts.FileDir, FileName(now())),
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}, nil
}

// Discard returns a logger that drops every record. It is the default for
// components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
