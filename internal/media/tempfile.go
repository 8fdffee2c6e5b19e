package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WithTempFile copies r into a uniquely named file in dir and calls fn with
// its path. The file is closed before fn runs and removed before WithTempFile
// returns, whatever fn does.
func WithTempFile(dir, suffix string, r io.Reader, fn func(path string) error) (err error) {
	f, err := os.CreateTemp(dir, "voice-*"+suffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = fmt.Errorf("remove temp file: %w", rmErr)
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return fn(path)
}

// SuffixFor returns a safe temp-file suffix derived from an upload name,
// defaulting to ".wav".
func SuffixFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ".wav"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".wav"
		}
	}
	return ext
}
