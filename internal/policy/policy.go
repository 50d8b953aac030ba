// Package policy maps aggregated video evidence to a confidence score and a
// three-way decision.
//
// The score is an ordered risk value in [0,1], not a calibrated probability.
// Scoring is pure arithmetic with no side effects; weights and thresholds
// come from configuration and any calibration happens offline.
package policy

import (
	"fmt"

	"subscreen/internal/config"
	"subscreen/internal/detect"
)

// Bucket is the decision for one evaluated video.
type Bucket string

const (
	// Proceed treats the video as clean; stray detections are noise.
	Proceed Bucket = "proceed"
	// Caution proceeds but logs; the result is never cached.
	Caution Bucket = "caution"
	// Reject excludes the video and records it in the denylist.
	Reject Bucket = "reject"
)

// Weights are the fixed coefficients of the confidence combination.
type Weights struct {
	Persistence float64
	Stability   float64
	Run         float64
	Confidence  float64
}

// Policy is the deterministic decision function.
type Policy struct {
	low     float64
	high    float64
	weights Weights
}

// New builds a Policy from configuration.
func New(cfg *config.Config) (*Policy, error) {
	return NewPolicy(cfg.Policy.LowThreshold, cfg.Policy.HighThreshold, Weights{
		Persistence: cfg.Policy.PersistenceWeight,
		Stability:   cfg.Policy.StabilityWeight,
		Run:         cfg.Policy.RunWeight,
		Confidence:  cfg.Policy.ConfidenceWeight,
	})
}

// NewPolicy builds a Policy from explicit thresholds and weights.
func NewPolicy(low, high float64, weights Weights) (*Policy, error) {
	if low < 0 || low > 1 || high < 0 || high > 1 {
		return nil, fmt.Errorf("thresholds (%v, %v) outside [0,1]", low, high)
	}
	if low >= high {
		return nil, fmt.Errorf("low threshold %v must be below high threshold %v", low, high)
	}
	for name, w := range map[string]float64{
		"persistence": weights.Persistence,
		"stability":   weights.Stability,
		"run":         weights.Run,
		"confidence":  weights.Confidence,
	} {
		if w < 0 {
			return nil, fmt.Errorf("%s weight must not be negative", name)
		}
	}
	return &Policy{low: low, high: high, weights: weights}, nil
}

// Score derives the confidence from aggregated evidence.
//
// Components, all in [0,1]:
//   - persistence: fraction of sampled frames with a detection. Zero
//     persistence short-circuits to zero confidence: no detections, no risk.
//   - stability: consecutive-frame IoU mean damped by its spread. Captions
//     sit still; transient overlays drift.
//   - run: longest detection streak relative to the sample count, penalized
//     by flicker (transition count). One long run beats many short ones.
//   - confidence: the mean backend confidence across detecting frames.
func (p *Policy) Score(evidence detect.VideoEvidence) float64 {
	if evidence.PersistenceRatio == 0 || evidence.FramesSampled == 0 {
		return 0
	}

	stability := evidence.IoUMean * (1 - clamp01(evidence.IoUStd))

	frames := float64(evidence.FramesSampled)
	run := float64(evidence.LongestRun) / frames
	flickerPenalty := float64(evidence.Transitions) / (2 * frames)
	runScore := clamp01(run - flickerPenalty)

	score := p.weights.Persistence*clamp01(evidence.PersistenceRatio) +
		p.weights.Stability*clamp01(stability) +
		p.weights.Run*runScore +
		p.weights.Confidence*clamp01(evidence.ConfidenceMean)

	return clamp01(score)
}

// Decide partitions [0,1] into three contiguous buckets. Boundaries belong
// to the higher-risk bucket: exactly high rejects, exactly low cautions.
func (p *Policy) Decide(confidence float64) Bucket {
	switch {
	case confidence >= p.high:
		return Reject
	case confidence >= p.low:
		return Caution
	default:
		return Proceed
	}
}

// Thresholds reports the configured (low, high) decision boundaries.
func (p *Policy) Thresholds() (low, high float64) {
	return p.low, p.high
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
