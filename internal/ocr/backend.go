// Package ocr defines the text-detection backend capability and its concrete
// implementations.
//
// A Backend scores one prepared image region and reports recognized text with
// a confidence in [0,1]. The cascade and the ensemble voter depend only on
// this interface, never on a concrete engine.
package ocr

import (
	"context"
	"image"
	"strings"
)

// Word is a single recognized token with its bounding box in the coordinates
// of the image handed to Recognize.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// Result is the outcome of running one backend over one image region.
type Result struct {
	Text       string
	Confidence float64
	Words      []Word
}

// HasText reports whether the result carries any non-whitespace text.
func (r Result) HasText() bool {
	return strings.TrimSpace(r.Text) != ""
}

// Backend is a pluggable text detector. Implementations are not required to
// be safe for concurrent use; callers serialize access to a shared instance.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (Result, error)
}
