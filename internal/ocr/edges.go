package ocr

import (
	"context"
	"image"
)

// gradientThreshold is the minimum luminance delta between horizontal
// neighbors counted as a stroke edge.
const gradientThreshold = 60

// edgeSaturation is the edge-pixel ratio at which the backend reports full
// confidence. Rendered caption text in a tight crop typically lands between
// 0.04 and 0.12.
const edgeSaturation = 0.08

// Edges is a cheap secondary backend that scores regions by the density of
// hard horizontal luminance transitions, which rendered text produces in
// abundance. It recognizes no words; it only votes on text presence.
type Edges struct{}

// NewEdges returns the luminance-edge heuristic backend.
func NewEdges() *Edges { return &Edges{} }

func (e *Edges) Name() string { return "edges" }

func (e *Edges) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	gray := toGray(img)
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	if w < 2 || h < 1 {
		return Result{}, nil
	}

	edgePixels := 0
	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		for x := 0; x < w-1; x++ {
			left := int(gray.GrayAt(x, y).Y)
			right := int(gray.GrayAt(x+1, y).Y)
			delta := left - right
			if delta < 0 {
				delta = -delta
			}
			if delta < gradientThreshold {
				continue
			}
			edgePixels++
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if edgePixels == 0 {
		return Result{}, nil
	}

	ratio := float64(edgePixels) / float64(w*h)
	confidence := ratio / edgeSaturation
	if confidence > 1 {
		confidence = 1
	}

	box := image.Rect(minX, minY, maxX+1, maxY+1)
	return Result{
		Confidence: confidence,
		Words:      []Word{{Confidence: confidence, Box: box}},
	}, nil
}
