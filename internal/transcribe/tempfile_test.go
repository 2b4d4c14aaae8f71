package transcribe

import (
	"path/filepath"
	"regexp"
	"runtime"
	"testing"
)

// TestTempPaths tests the temp audio file naming.
func TestTempPaths(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^([1-9]|[1-9][0-9]|[1-9][0-9][0-9])\.(mp3|wav)$`)
	dir := t.TempDir()

	seen := make(map[string]struct{})
	for range 50 {
		mp3Path, wavPath := TempPaths(dir)

		if filepath.Dir(mp3Path) != dir || filepath.Dir(wavPath) != dir {
			t.Fatalf("expected both paths in %q, got %q and %q", dir, mp3Path, wavPath)
		}
		if filepath.Ext(mp3Path) != ".mp3" {
			t.Errorf("expected .mp3 extension, got %q", mp3Path)
		}
		if filepath.Ext(wavPath) != ".wav" {
			t.Errorf("expected .wav extension, got %q", wavPath)
		}
		for _, p := range []string{mp3Path, wavPath} {
			if !pattern.MatchString(filepath.Base(p)) {
				t.Errorf("unexpected temp file name %q", filepath.Base(p))
			}
		}
		seen[mp3Path] = struct{}{}
	}

	// 50 draws from 999 values are distinct with high probability; more than
	// a handful of collisions means the suffix is not random.
	if len(seen) < 40 {
		t.Errorf("expected mostly distinct names, got %d distinct of 50", len(seen))
	}
}

// TestDefaultTempDir tests the platform temp directory.
func TestDefaultTempDir(t *testing.T) {
	t.Parallel()

	dir := DefaultTempDir()
	if runtime.GOOS != "windows" && dir != "/tmp" {
		t.Errorf("expected /tmp, got %q", dir)
	}
	if dir == "" {
		t.Error("expected non-empty temp dir")
	}
}
