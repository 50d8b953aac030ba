package testsupport

import (
	"image"
	"image/color"
	"testing"
)

// SolidFrame returns a uniformly colored frame, useful as a caption-free
// video sample.
func SolidFrame(t testing.TB, width, height int, c color.Color) *image.RGBA {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// CaptionFrame returns a dark frame with a bright block-letter band across
// the bottom fifth, approximating a burned-in subtitle.
func CaptionFrame(t testing.TB, width, height int) *image.RGBA {
	t.Helper()
	img := SolidFrame(t, width, height, color.RGBA{R: 18, G: 18, B: 22, A: 255})

	bandTop := height * 4 / 5
	bandBottom := height - height/20
	white := color.RGBA{R: 245, G: 245, B: 245, A: 255}
	// Alternating glyph-width strokes so the band has edges, not one blob.
	stroke := width / 24
	if stroke < 2 {
		stroke = 2
	}
	for y := bandTop; y < bandBottom; y++ {
		for x := width / 8; x < width*7/8; x++ {
			if (x/stroke)%2 == 0 {
				img.Set(x, y, white)
			}
		}
	}
	return img
}
