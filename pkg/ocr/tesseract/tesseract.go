// Package tesseract recognizes receipt text by running the tesseract CLI.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/ArionMiles/smartspend/pkg/imaging"
	"github.com/ArionMiles/smartspend/pkg/ocr"
)

// Recognizer pipes a PNG to tesseract on stdin and reads text from stdout.
type Recognizer struct {
	bin    string
	logger *slog.Logger
}

// New returns a recognizer that runs bin. An empty bin means "tesseract" on PATH.
func New(bin string, logger *slog.Logger) *Recognizer {
	if bin == "" {
		bin = "tesseract"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{bin: bin, logger: logger.With("component", "tesseract")}
}

// Args returns the command-line arguments used for whitelist.
// LSTM engine, single uniform block of text.
func Args(whitelist string) []string {
	args := []string{"stdin", "stdout", "--oem", "3", "--psm", "6"}
	if whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+ocr.ExpandWhitelist(whitelist))
	}
	return args
}

// Recognize implements api.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image, whitelist string) (string, error) {
	var in bytes.Buffer
	if err := imaging.EncodePNG(&in, img); err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.bin, Args(whitelist)...)
	cmd.Stdin = &in
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running %s: %w: %s", r.bin, err, strings.TrimSpace(stderr.String()))
	}

	text := stdout.String()
	r.logger.Debug("recognized text", "bytes", len(text), "lines", strings.Count(text, "\n"))
	return text, nil
}

// Available reports whether the tesseract binary can be found.
func (r *Recognizer) Available() error {
	if _, err := exec.LookPath(r.bin); err != nil {
		return fmt.Errorf("tesseract not found: %w", err)
	}
	return nil
}
