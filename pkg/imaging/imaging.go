// Package imaging prepares receipt photos for OCR.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// Decode reads an image in any registered format and reports the format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", api.ErrUndecodable, err)
	}
	return img, format, nil
}

// Normalize converts img into a bilevel image with dark text on a light
// background. The result has the same bounds as img.
//
// The image is reduced to luminance, binarized inversely at the Otsu
// threshold (bright pixels become black) and then inverted back.
func Normalize(img image.Image) *image.Gray {
	gray := Grayscale(img)
	t := OtsuThreshold(gray)

	out := image.NewGray(gray.Bounds())
	for i, v := range gray.Pix {
		// inverse binary
		var bin uint8
		if v <= t {
			bin = 255
		}
		out.Pix[i] = ^bin
	}
	return out
}

// Grayscale returns the luminance channel of img.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		cp := image.NewGray(g.Bounds())
		for y := g.Rect.Min.Y; y < g.Rect.Max.Y; y++ {
			copy(cp.Pix[cp.PixOffset(g.Rect.Min.X, y):], g.Pix[g.PixOffset(g.Rect.Min.X, y):g.PixOffset(g.Rect.Max.X, y)])
		}
		return cp
	}

	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetGray(x, y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return out
}

// OtsuThreshold returns the intensity that maximizes the between-class
// variance of the histogram of g. Pixels at or below it form the dark class.
func OtsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, y):g.PixOffset(b.Max.X, y)]
		for _, v := range row {
			hist[v]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i * n)
	}

	var (
		sumDark   float64
		weightDk  int
		best      float64
		threshold uint8
	)
	for t := 0; t < 256; t++ {
		weightDk += hist[t]
		if weightDk == 0 {
			continue
		}
		weightLt := total - weightDk
		if weightLt == 0 {
			break
		}
		sumDark += float64(t * hist[t])

		meanDark := sumDark / float64(weightDk)
		meanLight := (sumAll - sumDark) / float64(weightLt)
		diff := meanDark - meanLight
		between := float64(weightDk) * float64(weightLt) * diff * diff

		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}
