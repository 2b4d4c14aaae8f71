// Package locator holds the selector expressions used to find elements on
// the listing, detail and challenge pages.
//
// Two selector dialects are used: XPath for the listing table and the
// challenge frame, CSS for everything else. The keys are stable names that
// the rest of the code refers to; the expressions can be overridden from the
// configuration file when the site markup changes.
package locator

import (
	"errors"
	"fmt"
	"sort"
)

// Dialect is the selector language of an expression.
type Dialect int

const (
	// XPath expressions are evaluated with document.evaluate.
	XPath Dialect = iota
	// CSS expressions are evaluated with querySelector.
	CSS
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case XPath:
		return "xpath"
	case CSS:
		return "css"
	default:
		return "unknown"
	}
}

// Locator keys.
const (
	// Listing page.
	KeyRecordLink = "dado"
	KeyLastPage   = "ultima_pagina"

	// Challenge widget.
	KeyAnchorFrame    = "reCAPTCHA"
	KeyAnchorContent  = "body"
	KeyAnchorCheckbox = "solved"
	KeyChallengeFrame = "iframe"
	KeyAudioButton    = "audio"
	KeyAudioSource    = "audio-source"
	KeyAudioResponse  = "input"
	KeyVerifyButton   = "verify_btn"

	// Detail page.
	KeySubmit = `[value="ENVIAR"]`
	KeyPrint  = `[value="Imprimir"]`
	KeyRows   = "rows"
)

// ErrUnknownLocator is returned when a key is not in the registry.
var ErrUnknownLocator = errors.New("unknown locator")

// ErrEmptyExpression is returned when a locator has an empty expression.
var ErrEmptyExpression = errors.New("empty locator expression")

// Selector is a named selector expression.
type Selector struct {
	Key     string
	Dialect Dialect
	Expr    string
}

// String formats the selector for logs and errors.
func (s Selector) String() string {
	return fmt.Sprintf("%s(%s)", s.Dialect, s.Expr)
}

// Registry maps locator keys to selectors.
type Registry struct {
	selectors map[string]Selector
}

// Default returns the registry matching the current site markup.
func Default() *Registry {
	r := &Registry{selectors: make(map[string]Selector)}

	r.set(KeyRecordLink, XPath, `//table/tbody/tr/td[2]/a`)
	r.set(KeyLastPage, XPath, `//a[span[contains(text(), "ltima")]]`)
	// The anchor frame also declares a width, so it is excluded here.
	r.set(KeyChallengeFrame, XPath, `//iframe[@width][not(@title="reCAPTCHA")]`)

	r.set(KeyAnchorFrame, CSS, `[title=reCAPTCHA]`)
	r.set(KeyAnchorContent, CSS, `.rc-anchor-content`)
	r.set(KeyAnchorCheckbox, CSS, `#recaptcha-anchor`)
	r.set(KeyAudioButton, CSS, `#recaptcha-audio-button`)
	r.set(KeyAudioSource, CSS, `#audio-source`)
	r.set(KeyAudioResponse, CSS, `#audio-response`)
	r.set(KeyVerifyButton, CSS, `#recaptcha-verify-button`)
	r.set(KeySubmit, CSS, `[value="ENVIAR"]`)
	r.set(KeyPrint, CSS, `[value="Imprimir"]`)
	r.set(KeyRows, CSS, `table.table-striped tbody tr`)

	return r
}

func (r *Registry) set(key string, d Dialect, expr string) {
	r.selectors[key] = Selector{Key: key, Dialect: d, Expr: expr}
}

// Get returns the selector registered under key.
func (r *Registry) Get(key string) (Selector, error) {
	s, ok := r.selectors[key]
	if !ok {
		return Selector{}, fmt.Errorf("%w: %q", ErrUnknownLocator, key)
	}
	return s, nil
}

// MustGet is like Get but panics on unknown keys.
// It is meant for the fixed keys declared in this package.
func (r *Registry) MustGet(key string) Selector {
	s, err := r.Get(key)
	if err != nil {
		panic(err)
	}
	return s
}

// Override replaces the expressions of existing keys. The dialect of each
// key is kept. Unknown keys are rejected so that typos in the configuration
// file surface at startup.
func (r *Registry) Override(exprs map[string]string) error {
	for key, expr := range exprs {
		s, ok := r.selectors[key]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLocator, key)
		}
		if expr == "" {
			return fmt.Errorf("%w: %q", ErrEmptyExpression, key)
		}
		s.Expr = expr
		r.selectors[key] = s
	}
	return nil
}

// Validate checks that every required key is present with an expression.
func (r *Registry) Validate() error {
	for _, key := range RequiredKeys() {
		s, ok := r.selectors[key]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLocator, key)
		}
		if s.Expr == "" {
			return fmt.Errorf("%w: %q", ErrEmptyExpression, key)
		}
	}
	return nil
}

// Keys returns all registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.selectors))
	for k := range r.selectors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RequiredKeys lists the keys the scraper cannot work without.
func RequiredKeys() []string {
	return []string{
		KeyRecordLink, KeyLastPage, KeyChallengeFrame,
		KeyAnchorFrame, KeyAnchorContent, KeyAnchorCheckbox,
		KeyAudioButton, KeyAudioSource, KeyAudioResponse, KeyVerifyButton,
		KeySubmit, KeyPrint, KeyRows,
	}
}
