package detect

import (
	"image"
	"strings"

	"subscreen/internal/textutil"
)

// VideoEvidence is the temporal aggregate over all frame evidence of one
// video. It is the sole input to the confidence policy and is not persisted
// beyond the decision. Every statistic defaults to zero — never NaN — when
// fewer than two qualifying frames exist.
type VideoEvidence struct {
	FramesSampled  int            `json:"frames_sampled"`
	FramesWithText int            `json:"frames_with_text"`
	RegionHits     map[string]int `json:"region_hits"`
	Conflicts      int            `json:"conflicts"`

	// PersistenceRatio is the fraction of sampled frames with any detection.
	PersistenceRatio float64 `json:"persistence_ratio"`
	// LongestRun is the maximum streak of consecutive detecting frames.
	LongestRun int `json:"longest_run"`
	// Transitions counts detecting/non-detecting state changes between
	// consecutive frames. Many short runs suggest transient UI noise; one
	// long run suggests a real caption track.
	Transitions int `json:"transitions"`

	IoUMean float64 `json:"iou_mean"`
	IoUStd  float64 `json:"iou_std"`

	ConsecutiveSimilarityMean float64 `json:"consecutive_similarity_mean"`
	ConsecutiveSimilarityStd  float64 `json:"consecutive_similarity_std"`
	OverallSimilarityMean     float64 `json:"overall_similarity_mean"`
	OverallSimilarityStd      float64 `json:"overall_similarity_std"`

	ConfidenceMean float64 `json:"confidence_mean"`
	ConfidenceStd  float64 `json:"confidence_std"`
	ConfidenceMax  float64 `json:"confidence_max"`
	ConfidenceMin  float64 `json:"confidence_min"`
}

// Aggregate reduces the ordered per-frame evidence of one video.
func Aggregate(frames []FrameEvidence) VideoEvidence {
	evidence := VideoEvidence{
		FramesSampled: len(frames),
		RegionHits:    make(map[string]int),
	}
	if len(frames) == 0 {
		return evidence
	}

	var (
		run             int
		confidences     []float64
		ious            []float64
		consecutiveSims []float64
		detectingTexts  []string
		prevDetecting   *FrameEvidence
	)

	for i := range frames {
		frame := &frames[i]

		if i > 0 && frames[i-1].Detected != frame.Detected {
			evidence.Transitions++
		}

		if !frame.Detected {
			run = 0
			continue
		}

		evidence.FramesWithText++
		evidence.RegionHits[frame.Region]++
		if frame.Conflict {
			evidence.Conflicts++
		}
		confidences = append(confidences, frame.ConfidenceMean)
		detectingTexts = append(detectingTexts, frame.Text)

		run++
		if run > evidence.LongestRun {
			evidence.LongestRun = run
		}

		// Spatial and textual stability compare directly adjacent sampled
		// frames only; a gap resets the chain.
		if prevDetecting != nil && prevDetecting.Index == frame.Index-1 {
			ious = append(ious, boxIoU(prevDetecting.UnionBox, frame.UnionBox))
			consecutiveSims = append(consecutiveSims, textutil.Similarity(prevDetecting.Text, frame.Text))
		}
		prevDetecting = frame
	}

	evidence.PersistenceRatio = float64(evidence.FramesWithText) / float64(evidence.FramesSampled)

	if len(confidences) > 0 {
		evidence.ConfidenceMean, evidence.ConfidenceStd = meanStd(confidences)
		evidence.ConfidenceMax = confidences[0]
		evidence.ConfidenceMin = confidences[0]
		for _, c := range confidences[1:] {
			if c > evidence.ConfidenceMax {
				evidence.ConfidenceMax = c
			}
			if c < evidence.ConfidenceMin {
				evidence.ConfidenceMin = c
			}
		}
	}

	evidence.IoUMean, evidence.IoUStd = meanStd(ious)
	evidence.ConsecutiveSimilarityMean, evidence.ConsecutiveSimilarityStd = meanStd(consecutiveSims)
	evidence.OverallSimilarityMean, evidence.OverallSimilarityStd = overallSimilarity(detectingTexts)

	return evidence
}

// overallSimilarity measures how much each detecting frame's text resembles
// the video's pooled text, via token-frequency cosine similarity. A stable
// caption track repeats vocabulary across frames; transient UI text does not.
func overallSimilarity(texts []string) (mean, std float64) {
	if len(texts) < 2 {
		return 0, 0
	}
	corpus := textutil.NewFingerprint(strings.Join(texts, " "))
	if corpus == nil {
		return 0, 0
	}
	sims := make([]float64, 0, len(texts))
	for _, text := range texts {
		sims = append(sims, textutil.NewFingerprint(text).CosineSimilarity(corpus))
	}
	return meanStd(sims)
}

// boxIoU is the intersection-over-union of two rectangles. Two empty boxes
// have no overlap signal and score zero.
func boxIoU(a, b image.Rectangle) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}
	intersection := a.Intersect(b)
	interArea := intersection.Dx() * intersection.Dy()
	unionArea := a.Dx()*a.Dy() + b.Dx()*b.Dy() - interArea
	if unionArea <= 0 {
		return 0
	}
	return float64(interArea) / float64(unionArea)
}
