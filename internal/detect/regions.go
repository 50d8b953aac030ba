package detect

import (
	"image"
)

// Region is a fractional sub-rectangle of a frame tested for caption text.
// Coordinates are fractions of frame width/height.
type Region struct {
	Name string
	// Rank reflects cascade priority; lower ranks are tried first.
	Rank                     int
	Left, Top, Right, Bottom float64
}

// Region names, in cascade priority order.
const (
	RegionBottom = "bottom"
	RegionTop    = "top"
	RegionLeft   = "left"
	RegionRight  = "right"
	RegionCenter = "center"
	RegionFull   = "full"
)

// DefaultRegions returns the cascade order: bottom, top, left, right, center,
// then the full frame as last resort.
func DefaultRegions() []Region {
	return []Region{
		{Name: RegionBottom, Rank: 0, Left: 0.10, Top: 0.70, Right: 0.90, Bottom: 0.95},
		{Name: RegionTop, Rank: 1, Left: 0.10, Top: 0.05, Right: 0.90, Bottom: 0.30},
		{Name: RegionLeft, Rank: 2, Left: 0.02, Top: 0.20, Right: 0.25, Bottom: 0.80},
		{Name: RegionRight, Rank: 3, Left: 0.75, Top: 0.20, Right: 0.98, Bottom: 0.80},
		{Name: RegionCenter, Rank: 4, Left: 0.25, Top: 0.35, Right: 0.75, Bottom: 0.65},
		{Name: RegionFull, Rank: 5, Left: 0, Top: 0, Right: 1, Bottom: 1},
	}
}

// Bounds maps the fractional region onto a frame of the given dimensions.
func (r Region) Bounds(width, height int) image.Rectangle {
	rect := image.Rect(
		int(r.Left*float64(width)),
		int(r.Top*float64(height)),
		int(r.Right*float64(width)),
		int(r.Bottom*float64(height)),
	)
	return rect.Intersect(image.Rect(0, 0, width, height))
}

// Crop extracts the region's pixels into a standalone image anchored at the
// origin, so backend word boxes come back in crop coordinates.
func (r Region) Crop(img image.Image) (image.Image, image.Rectangle) {
	bounds := img.Bounds()
	rect := r.Bounds(bounds.Dx(), bounds.Dy()).Add(bounds.Min)

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			out.Set(x-rect.Min.X, y-rect.Min.Y, img.At(x, y))
		}
	}
	return out, rect.Sub(bounds.Min)
}
