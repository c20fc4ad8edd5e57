package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// receiptLike draws dark "ink" columns on a light background.
func receiptLike(w, h int, ink, paper uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := paper
			if x%4 == 0 {
				v = ink
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestOtsuThresholdTwoLevels(t *testing.T) {
	g := Grayscale(receiptLike(16, 8, 10, 200))
	th := OtsuThreshold(g)
	if th < 10 || th >= 200 {
		t.Errorf("threshold %d should separate 10 and 200", th)
	}
}

func TestOtsuThresholdEmpty(t *testing.T) {
	if got := OtsuThreshold(image.NewGray(image.Rect(0, 0, 0, 0))); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestNormalize(t *testing.T) {
	src := receiptLike(16, 8, 40, 180)
	out := Normalize(src)

	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), src.Bounds())
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			got := out.GrayAt(x, y).Y
			want := uint8(255)
			if x%4 == 0 {
				want = 0
			}
			if got != want {
				t.Fatalf("pixel (%d,%d): got %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestNormalizeOffsetBounds(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 9, 9))
	for i := range src.Pix {
		src.Pix[i] = 220
	}
	src.SetGray(6, 6, color.Gray{Y: 20})

	out := Normalize(src)
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), src.Bounds())
	}
	if out.GrayAt(6, 6).Y != 0 {
		t.Errorf("ink pixel should be dark")
	}
	if out.GrayAt(8, 8).Y != 255 {
		t.Errorf("paper pixel should be light")
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, receiptLike(4, 4, 0, 255)); err != nil {
		t.Fatal(err)
	}

	img, format, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "png" {
		t.Errorf("format: got %q, want png", format)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("width: got %d, want 4", img.Bounds().Dx())
	}

	_, _, err = Decode(strings.NewReader("definitely not an image"))
	if !errors.Is(err, api.ErrUndecodable) {
		t.Errorf("got %v, want ErrUndecodable", err)
	}
}
