package ocr

import (
	"image"
	"image/color"
)

// adaptiveWindowDivisor sizes the local-mean window relative to the smaller
// image dimension.
const adaptiveWindowDivisor = 8

// adaptiveBias is subtracted from the local mean before comparison, which
// suppresses low-contrast texture that is not text.
const adaptiveBias = 10

// Normalize prepares a cropped region for text recognition: grayscale
// conversion followed by adaptive local-mean thresholding. The output is
// binarized with text rendered dark on a light background, the orientation
// OCR engines handle best.
func Normalize(img image.Image) *image.Gray {
	gray := toGray(img)
	return adaptiveThreshold(gray)
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return gray
}

// adaptiveThreshold binarizes against the mean of a sliding window computed
// from a summed-area table, so the pass stays O(pixels) regardless of window
// size.
func adaptiveThreshold(gray *image.Gray) *image.Gray {
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	window := minInt(w, h) / adaptiveWindowDivisor
	if window < 3 {
		window = 3
	}
	half := window / 2

	integral := make([]uint64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(gray.GrayAt(x, y).Y)
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	dark := 0
	for y := 0; y < h; y++ {
		y0 := maxInt(0, y-half)
		y1 := minInt(h-1, y+half)
		for x := 0; x < w; x++ {
			x0 := maxInt(0, x-half)
			x1 := minInt(w-1, x+half)
			area := uint64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := integral[(y1+1)*(w+1)+x1+1] -
				integral[y0*(w+1)+x1+1] -
				integral[(y1+1)*(w+1)+x0] +
				integral[y0*(w+1)+x0]
			mean := sum / area

			value := uint64(gray.GrayAt(x, y).Y)
			if value+adaptiveBias < mean {
				out.SetGray(x, y, color.Gray{Y: 0})
				dark++
			} else {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	// Light captions on dark video binarize inverted; flip when the
	// foreground would dominate.
	if dark*2 > w*h {
		for i, v := range out.Pix {
			out.Pix[i] = 255 - v
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
