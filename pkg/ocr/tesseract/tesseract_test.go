package tesseract

import (
	"context"
	"image"
	"slices"
	"strings"
	"testing"
)

func TestArgs(t *testing.T) {
	args := Args("0-3.")
	want := []string{"stdin", "stdout", "--oem", "3", "--psm", "6", "-c", "tessedit_char_whitelist=0123."}
	if !slices.Equal(args, want) {
		t.Errorf("got %v, want %v", args, want)
	}

	if got := Args(""); slices.Contains(got, "-c") {
		t.Errorf("empty whitelist should not set a variable: %v", got)
	}
}

func TestRecognizeMissingBinary(t *testing.T) {
	r := New("smartspend-no-such-tesseract", nil)
	if err := r.Available(); err == nil {
		t.Error("expected Available to fail")
	}
	_, err := r.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2)), "")
	if err == nil || !strings.Contains(err.Error(), "smartspend-no-such-tesseract") {
		t.Errorf("got %v, want error naming the binary", err)
	}
}
