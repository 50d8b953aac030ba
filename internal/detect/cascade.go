package detect

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"subscreen/internal/logging"
	"subscreen/internal/ocr"
)

// ROIResult is the outcome of running the detection backends over one
// cropped region of one frame. Box coordinates are absolute frame
// coordinates.
type ROIResult struct {
	Region         string
	Rank           int
	Boxes          []image.Rectangle
	Texts          []string
	Confidences    []float64
	MeanConfidence float64
	// Conflict reports ensemble disagreement without a dominant backend.
	Conflict bool
}

// Cascade runs the prioritized region sweep over a single frame.
type Cascade struct {
	regions  []Region
	backends []ocr.Backend
	voter    *Voter
	accept   float64
	logger   *slog.Logger
}

// NewCascade builds a cascade over the default region order. voter may be
// nil when a single backend is configured.
func NewCascade(backends []ocr.Backend, voter *Voter, accept float64, logger *slog.Logger) (*Cascade, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("cascade requires at least one backend")
	}
	if len(backends) > 1 && voter == nil {
		return nil, fmt.Errorf("cascade with %d backends requires a voter", len(backends))
	}
	if accept < 0 || accept > 1 {
		return nil, fmt.Errorf("acceptance threshold %v outside [0,1]", accept)
	}
	return &Cascade{
		regions:  DefaultRegions(),
		backends: backends,
		voter:    voter,
		accept:   accept,
		logger:   logging.NewComponentLogger(logger, "cascade"),
	}, nil
}

// Detect sweeps the regions in priority order and returns the first result
// whose combined confidence reaches the acceptance threshold. When no region
// is accepted, the best attempted region is returned instead; nil means
// nothing was detected anywhere. Given identical pixels and configuration
// the same winner is always picked: region order is fixed and there is no
// randomized tie-breaking.
func (c *Cascade) Detect(ctx context.Context, frame image.Image) (*ROIResult, error) {
	var best *ROIResult

	for _, region := range c.regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.evaluateRegion(ctx, region, frame)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}

		if result.MeanConfidence >= c.accept {
			c.logger.Debug("cascade accepted region",
				logging.String("region", result.Region),
				logging.Float64("confidence", result.MeanConfidence))
			return result, nil
		}
		if best == nil || result.MeanConfidence > best.MeanConfidence {
			best = result
		}
	}

	return best, nil
}

// evaluateRegion crops, normalizes, and runs every backend over one region.
// A backend error other than context expiry is an abstention, not a failure;
// the region only errors out when the frame budget itself is exhausted.
func (c *Cascade) evaluateRegion(ctx context.Context, region Region, frame image.Image) (*ROIResult, error) {
	crop, rect := region.Crop(frame)
	if rect.Empty() {
		return nil, nil
	}
	normalized := ocr.Normalize(crop)

	result := &ROIResult{Region: region.Name, Rank: region.Rank}
	verdicts := make([]Verdict, 0, len(c.backends))

	for _, backend := range c.backends {
		recognized, err := backend.Recognize(ctx, normalized)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug("backend abstained",
				logging.String("backend", backend.Name()),
				logging.String("region", region.Name),
				logging.Error(err))
			continue
		}

		verdicts = append(verdicts, Verdict{
			Backend:    backend.Name(),
			Positive:   recognized.HasText() || recognized.Confidence >= 0.5,
			Confidence: recognized.Confidence,
		})
		for _, word := range recognized.Words {
			result.Boxes = append(result.Boxes, word.Box.Add(rect.Min))
			result.Texts = append(result.Texts, word.Text)
			result.Confidences = append(result.Confidences, word.Confidence)
		}
	}

	if len(verdicts) == 0 {
		return nil, nil
	}

	if c.voter != nil {
		_, confidence, conflict := c.voter.Vote(verdicts)
		result.MeanConfidence = confidence
		result.Conflict = conflict
	} else {
		result.MeanConfidence = verdicts[0].Confidence
	}

	if result.MeanConfidence == 0 && len(result.Boxes) == 0 {
		return nil, nil
	}
	return result, nil
}

// Text joins the recognized tokens of the winning region.
func (r *ROIResult) Text() string {
	if r == nil {
		return ""
	}
	return strings.Join(r.Texts, " ")
}

// UnionBox returns the bounding box covering every detection in the region,
// or the zero rectangle when there are none.
func (r *ROIResult) UnionBox() image.Rectangle {
	if r == nil || len(r.Boxes) == 0 {
		return image.Rectangle{}
	}
	union := r.Boxes[0]
	for _, box := range r.Boxes[1:] {
		union = union.Union(box)
	}
	return union
}
