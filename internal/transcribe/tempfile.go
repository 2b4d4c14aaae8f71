package transcribe

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// maxSuffix bounds the random file name suffix.
const maxSuffix = 999

// DefaultTempDir returns %TEMP% on Windows and /tmp elsewhere.
func DefaultTempDir() string {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("TEMP"); dir != "" {
			return dir
		}
		return os.TempDir()
	}
	return "/tmp"
}

// TempPaths returns a compressed and an uncompressed audio path in dir, named
// <n>.mp3 and <m>.wav with independent random n and m in [1, 999].
// Collisions with existing files are not detected; an existing file with
// the same name is overwritten.
func TempPaths(dir string) (mp3Path, wavPath string) {
	return filepath.Join(dir, randomName(".mp3")), filepath.Join(dir, randomName(".wav"))
}

func randomName(ext string) string {
	return strconv.Itoa(rand.IntN(maxSuffix)+1) + ext //nolint:gosec // file names need no cryptographic randomness
}
