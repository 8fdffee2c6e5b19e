package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ResolveFFmpeg locates the ffmpeg executable. An explicit binary path wins;
// otherwise ffmpeg is looked up on PATH.
func ResolveFFmpeg(binary string) (string, error) {
	if binary != "" {
		info, err := os.Stat(binary)
		if err != nil {
			return "", fmt.Errorf("stat ffmpeg binary: %w", err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("ffmpeg binary %s is a directory", binary)
		}
		return filepath.Abs(binary)
	}

	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}
	return filepath.Abs(path)
}

// PrependPath puts dir at the front of the process PATH so child processes
// started by decoding libraries can find the binaries it holds.
func PrependPath(dir string) error {
	current := os.Getenv("PATH")
	parts := filepath.SplitList(current)
	if len(parts) > 0 && parts[0] == dir {
		return nil
	}
	if current == "" {
		return os.Setenv("PATH", dir)
	}
	return os.Setenv("PATH", dir+string(os.PathListSeparator)+current)
}

// Converter normalizes audio with ffmpeg.
type Converter struct {
	bin string
}

func NewConverter(bin string) *Converter {
	return &Converter{bin: bin}
}

// ToWAV converts in to 16 kHz mono 16-bit PCM WAV at out, the format
// whisper.cpp expects.
func (c *Converter) ToWAV(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, c.bin,
		"-i", in,
		"-y",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// IsWAV reports whether path has a .wav extension.
func IsWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// HasWAVHeader reports whether the file at path starts with a RIFF/WAVE
// header. Unreadable or short files report false.
func HasWAVHeader(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	var hdr [12]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return false
	}
	return string(hdr[0:4]) == "RIFF" && string(hdr[8:12]) == "WAVE"
}
