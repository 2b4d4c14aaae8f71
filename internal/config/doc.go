// Package config provides configuration structures and utilities for the
// OAB-PR scraper. It defines the listing target, output locations, browser
// and challenge timeouts, speech recognition settings, locator overrides and
// logging preferences.
package config
