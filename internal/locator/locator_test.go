package locator

import (
	"errors"
	"testing"
)

// TestDefault tests the default registry.
func TestDefault(t *testing.T) {
	t.Parallel()

	r := Default()

	t.Run("contains every required key", func(t *testing.T) {
		t.Parallel()
		if err := r.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("listing selectors use xpath", func(t *testing.T) {
		t.Parallel()
		for _, key := range []string{KeyRecordLink, KeyLastPage, KeyChallengeFrame} {
			s := r.MustGet(key)
			if s.Dialect != XPath {
				t.Errorf("%s: expected xpath, got %s", key, s.Dialect)
			}
		}
	})

	t.Run("widget selectors use css", func(t *testing.T) {
		t.Parallel()
		for _, key := range []string{KeyAnchorFrame, KeyAudioSource, KeySubmit, KeyPrint, KeyRows} {
			s := r.MustGet(key)
			if s.Dialect != CSS {
				t.Errorf("%s: expected css, got %s", key, s.Dialect)
			}
		}
	})

	t.Run("submit and print keys are their own expressions", func(t *testing.T) {
		t.Parallel()
		if got := r.MustGet(KeySubmit).Expr; got != `[value="ENVIAR"]` {
			t.Errorf("unexpected submit expression %q", got)
		}
		if got := r.MustGet(KeyPrint).Expr; got != `[value="Imprimir"]` {
			t.Errorf("unexpected print expression %q", got)
		}
	})
}

// TestRegistryGet tests lookups of unknown keys.
func TestRegistryGet(t *testing.T) {
	t.Parallel()

	_, err := Default().Get("nope")
	if !errors.Is(err, ErrUnknownLocator) {
		t.Errorf("expected ErrUnknownLocator, got %v", err)
	}
}

// TestRegistryOverride tests replacing expressions.
func TestRegistryOverride(t *testing.T) {
	t.Parallel()

	t.Run("replaces expression and keeps dialect", func(t *testing.T) {
		t.Parallel()
		r := Default()
		if err := r.Override(map[string]string{KeyRecordLink: "//a[@class='adv']"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s := r.MustGet(KeyRecordLink)
		if s.Expr != "//a[@class='adv']" {
			t.Errorf("expression not replaced: %q", s.Expr)
		}
		if s.Dialect != XPath {
			t.Errorf("dialect changed to %s", s.Dialect)
		}
	})

	t.Run("rejects unknown key", func(t *testing.T) {
		t.Parallel()
		err := Default().Override(map[string]string{"typo": "x"})
		if !errors.Is(err, ErrUnknownLocator) {
			t.Errorf("expected ErrUnknownLocator, got %v", err)
		}
	})

	t.Run("rejects empty expression", func(t *testing.T) {
		t.Parallel()
		err := Default().Override(map[string]string{KeyRows: ""})
		if !errors.Is(err, ErrEmptyExpression) {
			t.Errorf("expected ErrEmptyExpression, got %v", err)
		}
	})
}

func TestSelectorString(t *testing.T) {
	t.Parallel()

	s := Selector{Key: "k", Dialect: CSS, Expr: "#id"}
	if got := s.String(); got != "css(#id)" {
		t.Errorf("unexpected string %q", got)
	}
}

func TestKeysSorted(t *testing.T) {
	t.Parallel()

	keys := Default().Keys()
	if len(keys) != len(RequiredKeys()) {
		t.Fatalf("expected %d keys, got %d", len(RequiredKeys()), len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
}
