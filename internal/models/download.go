// Package models fetches whisper ggml model files from HuggingFace.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mhersche/whisperclip/internal/config"
)

const (
	// DefaultModel is downloaded when the config names no local model.
	DefaultModel = "base.en"

	repoURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"
)

// known maps short model names to their approximate download size. The
// set mirrors what ggerganov/whisper.cpp publishes.
var known = map[string]string{
	"tiny":     "~75 MB",
	"tiny.en":  "~75 MB",
	"base":     "~142 MB",
	"base.en":  "~142 MB",
	"small":    "~466 MB",
	"small.en": "~466 MB",
	"medium":   "~1.5 GB",
	"large-v3": "~2.9 GB",
}

// FileName returns the ggml file name for a short model name.
func FileName(model string) string {
	return "ggml-" + model + ".bin"
}

// Path returns where a model lives under the default models directory.
func Path(model string) string {
	return filepath.Join(config.DefaultModelsDir(), FileName(model))
}

// Ensure returns the path to the named model, downloading it first if it
// is not already present.
func Ensure(model string) (string, error) {
	dest := Path(model)
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}
	if err := Download(model); err != nil {
		return "", err
	}
	return dest, nil
}

// Download fetches the named model into the default models directory.
// Progress is printed to stdout.
func Download(model string) error {
	return download(repoURL, model, config.DefaultModelsDir())
}

func download(baseURL, model, dir string) error {
	if _, ok := known[model]; !ok {
		return fmt.Errorf("unknown model %q", model)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}

	dest := filepath.Join(dir, FileName(model))
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		fmt.Printf("  Model already exists: %s (%.0f MB)\n", dest, float64(info.Size())/(1024*1024))
		return nil
	}

	url := baseURL + "/" + FileName(model)
	fmt.Printf("  Downloading %s (%s)\n", model, known[model])
	fmt.Printf("  URL: %s\n", url)
	fmt.Printf("  Destination: %s\n", dest)

	resp, err := http.Get(url) //nolint:gosec // base URL is a compile-time constant
	if err != nil {
		return fmt.Errorf("downloading model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := dest + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		total:  resp.ContentLength,
		label:  FileName(model),
	}

	written, err := io.Copy(pr, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing model file: %w", err)
	}

	fmt.Printf("\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}

	return nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Printf("\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Printf("\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
