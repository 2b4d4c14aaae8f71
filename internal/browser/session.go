package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Default timeouts used when the configuration leaves them unset.
const (
	DefaultElementTimeout    = 30 * time.Second
	DefaultNavigationTimeout = 60 * time.Second
)

// Config configures the browser session.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless launches the local Chrome without a window.
	Headless bool

	// Bin is an explicit Chrome binary path. Empty = let launcher find or
	// download one.
	Bin string

	ElementTimeout    time.Duration
	NavigationTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ElementTimeout <= 0 {
		c.ElementTimeout = DefaultElementTimeout
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session owns the single browser used for the whole run.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
}

// NewSession creates a Session. Call Start to launch Chrome.
func NewSession(cfg Config) *Session {
	cfg.defaults()
	return &Session{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance), opens one tab
// and returns a Driver bound to it.
func (s *Session) Start(ctx context.Context) (*RodDriver, error) {
	log := s.cfg.Logger

	wsURL := s.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(s.cfg.Headless)
		if s.cfg.Bin != "" {
			l = l.Bin(s.cfg.Bin)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		log.Info("browser: launched local chrome", "headless", s.cfg.Headless)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	s.page = page

	return NewRodDriver(page,
		WithElementTimeout(s.cfg.ElementTimeout),
		WithNavigationTimeout(s.cfg.NavigationTimeout),
		WithRodLogger(log),
	), nil
}

// Close shuts down the tab and the browser.
func (s *Session) Close() error {
	s.cleanup()
	return nil
}

func (s *Session) cleanup() {
	if s.page != nil {
		_ = s.page.Close() //nolint:errcheck // Best effort cleanup
		s.page = nil
	}
	if s.browser != nil {
		_ = s.browser.Close() //nolint:errcheck // Best effort cleanup
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}
