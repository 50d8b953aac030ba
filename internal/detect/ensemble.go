package detect

import (
	"errors"
	"fmt"
)

// Verdict is one backend's opinion about one region.
type Verdict struct {
	Backend string
	// Positive reports whether the backend considers text present.
	Positive bool
	// Confidence is the backend's probability-like score for text presence.
	Confidence float64
}

// Voter combines independent backend verdicts using fixed per-backend
// weights.
type Voter struct {
	weights   map[string]float64
	dominance float64
}

// NewVoter builds a voter from relative backend weights, normalizing them to
// sum to one. dominance is the normalized weight above which a single
// backend's verdict stands unflagged even when others disagree.
func NewVoter(weights map[string]float64, dominance float64) (*Voter, error) {
	if len(weights) == 0 {
		return nil, errors.New("ensemble voter requires at least one backend weight")
	}
	if dominance <= 0 || dominance > 1 {
		return nil, fmt.Errorf("dominance threshold %v outside (0,1]", dominance)
	}

	var total float64
	for name, weight := range weights {
		if weight < 0 {
			return nil, fmt.Errorf("backend %q has negative weight", name)
		}
		total += weight
	}
	if total == 0 {
		return nil, errors.New("ensemble weights sum to zero")
	}

	normalized := make(map[string]float64, len(weights))
	for name, weight := range weights {
		normalized[name] = weight / total
	}
	return &Voter{weights: normalized, dominance: dominance}, nil
}

// Vote computes the weighted text-presence score across the verdicts that
// arrived. Backends that produced no verdict (errored) abstain: the remaining
// weights are renormalized rather than counted as negative votes.
//
// conflict is raised when the backends disagree on the boolean outcome and no
// single participant holds dominant weight — a high-confidence heavyweight
// backend is allowed to overrule dissenters silently, but an even split is
// surfaced for review.
func (v *Voter) Vote(verdicts []Verdict) (decision bool, confidence float64, conflict bool) {
	if len(verdicts) == 0 {
		return false, 0, false
	}

	var totalWeight, score, maxWeight float64
	positives, negatives := 0, 0
	for _, verdict := range verdicts {
		weight, ok := v.weights[verdict.Backend]
		if !ok {
			continue
		}
		totalWeight += weight
		score += weight * verdict.Confidence
		if weight > maxWeight {
			maxWeight = weight
		}
		if verdict.Positive {
			positives++
		} else {
			negatives++
		}
	}
	if totalWeight == 0 {
		return false, 0, false
	}

	confidence = score / totalWeight
	decision = confidence >= 0.5

	disagree := positives > 0 && negatives > 0
	dominated := maxWeight/totalWeight > v.dominance
	conflict = disagree && !dominated
	return decision, confidence, conflict
}
