package detect_test

import (
	"math"
	"testing"

	"subscreen/internal/detect"
)

func TestVoterWeightedScore(t *testing.T) {
	voter, err := detect.NewVoter(map[string]float64{"a": 0.7, "b": 0.3}, 0.6)
	if err != nil {
		t.Fatalf("NewVoter failed: %v", err)
	}

	decision, confidence, conflict := voter.Vote([]detect.Verdict{
		{Backend: "a", Positive: true, Confidence: 0.9},
		{Backend: "b", Positive: true, Confidence: 0.6},
	})
	want := 0.7*0.9 + 0.3*0.6
	if math.Abs(confidence-want) > 1e-9 {
		t.Fatalf("confidence = %v, want %v", confidence, want)
	}
	if !decision {
		t.Fatal("expected positive decision")
	}
	if conflict {
		t.Fatal("agreeing backends must not conflict")
	}
}

func TestVoterConflictOnEvenDisagreement(t *testing.T) {
	voter, err := detect.NewVoter(map[string]float64{"a": 0.5, "b": 0.5}, 0.6)
	if err != nil {
		t.Fatalf("NewVoter failed: %v", err)
	}

	_, _, conflict := voter.Vote([]detect.Verdict{
		{Backend: "a", Positive: true, Confidence: 0.8},
		{Backend: "b", Positive: false, Confidence: 0.2},
	})
	if !conflict {
		t.Fatal("even disagreement should be flagged as conflict")
	}
}

func TestVoterDominantBackendSuppressesConflict(t *testing.T) {
	// A single highly confident backend should not be overridden — or
	// flagged — by low-weight dissenters.
	voter, err := detect.NewVoter(map[string]float64{"a": 0.8, "b": 0.1, "c": 0.1}, 0.6)
	if err != nil {
		t.Fatalf("NewVoter failed: %v", err)
	}

	decision, _, conflict := voter.Vote([]detect.Verdict{
		{Backend: "a", Positive: true, Confidence: 0.95},
		{Backend: "b", Positive: false, Confidence: 0.1},
		{Backend: "c", Positive: false, Confidence: 0.2},
	})
	if conflict {
		t.Fatal("dominant backend disagreement must not flag conflict")
	}
	if !decision {
		t.Fatal("dominant backend should carry the decision")
	}
}

func TestVoterAbstentionRenormalizes(t *testing.T) {
	voter, err := detect.NewVoter(map[string]float64{"a": 0.7, "b": 0.3}, 0.6)
	if err != nil {
		t.Fatalf("NewVoter failed: %v", err)
	}

	// Backend b errored and produced no verdict: a's weight carries alone.
	_, confidence, conflict := voter.Vote([]detect.Verdict{
		{Backend: "a", Positive: true, Confidence: 0.9},
	})
	if math.Abs(confidence-0.9) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.9 after renormalization", confidence)
	}
	if conflict {
		t.Fatal("a lone verdict cannot conflict")
	}
}

func TestVoterRejectsBadConstruction(t *testing.T) {
	if _, err := detect.NewVoter(nil, 0.6); err == nil {
		t.Fatal("expected error for empty weights")
	}
	if _, err := detect.NewVoter(map[string]float64{"a": 1}, 0); err == nil {
		t.Fatal("expected error for zero dominance")
	}
	if _, err := detect.NewVoter(map[string]float64{"a": -1}, 0.6); err == nil {
		t.Fatal("expected error for negative weight")
	}
}
