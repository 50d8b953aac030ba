package detect

import (
	"image"
	"math"
	"time"
)

// FrameEvidence is the per-frame aggregate over a cascade result. It is
// immutable after creation.
type FrameEvidence struct {
	Index     int
	Timestamp time.Duration

	Detected   bool
	Region     string
	Detections int

	ConfidenceMean float64
	ConfidenceMax  float64
	ConfidenceMin  float64
	ConfidenceStd  float64

	TextLengthMean float64
	TextLengthMax  int

	// Extent is the union-box area as a fraction of the frame area.
	Extent   float64
	UnionBox image.Rectangle

	Text     string
	Conflict bool
}

// NewFrameEvidence reduces one frame's cascade outcome. A nil result yields
// a non-detecting evidence record with zeroed statistics.
func NewFrameEvidence(index int, timestamp time.Duration, frameBounds image.Rectangle, result *ROIResult) FrameEvidence {
	evidence := FrameEvidence{Index: index, Timestamp: timestamp}
	if result == nil {
		return evidence
	}

	evidence.Detected = true
	evidence.Region = result.Region
	evidence.Detections = len(result.Boxes)
	evidence.Text = result.Text()
	evidence.Conflict = result.Conflict
	evidence.UnionBox = result.UnionBox()

	if frameArea := frameBounds.Dx() * frameBounds.Dy(); frameArea > 0 {
		union := evidence.UnionBox
		evidence.Extent = float64(union.Dx()*union.Dy()) / float64(frameArea)
	}

	if len(result.Confidences) > 0 {
		evidence.ConfidenceMean, evidence.ConfidenceStd = meanStd(result.Confidences)
		evidence.ConfidenceMax = result.Confidences[0]
		evidence.ConfidenceMin = result.Confidences[0]
		for _, c := range result.Confidences[1:] {
			evidence.ConfidenceMax = math.Max(evidence.ConfidenceMax, c)
			evidence.ConfidenceMin = math.Min(evidence.ConfidenceMin, c)
		}
	} else {
		// Backends like the edge heuristic vote without word-level output.
		evidence.ConfidenceMean = result.MeanConfidence
		evidence.ConfidenceMax = result.MeanConfidence
		evidence.ConfidenceMin = result.MeanConfidence
	}

	if len(result.Texts) > 0 {
		var total int
		for _, text := range result.Texts {
			length := len([]rune(text))
			total += length
			if length > evidence.TextLengthMax {
				evidence.TextLengthMax = length
			}
		}
		evidence.TextLengthMean = float64(total) / float64(len(result.Texts))
	}

	return evidence
}

// meanStd returns the mean and population standard deviation of values, or
// zeros for an empty slice.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}
	var variance float64
	for _, v := range values {
		delta := v - mean
		variance += delta * delta
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}
