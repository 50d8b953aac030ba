package textutil_test

import (
	"math"
	"testing"

	"subscreen/internal/textutil"
)

func TestNormalizeCollapsesWhitespaceAndCase(t *testing.T) {
	got := textutil.Normalize("  Hello\t WORLD \n")
	if got != "hello world" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestSimilarityIdentical(t *testing.T) {
	if sim := textutil.Similarity("never gonna give", "never gonna give"); sim != 1 {
		t.Fatalf("expected 1.0 for identical text, got %v", sim)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if sim := textutil.Similarity("", ""); sim != 1 {
		t.Fatalf("two empty strings should be identical, got %v", sim)
	}
	if sim := textutil.Similarity("caption", ""); sim != 0 {
		t.Fatalf("empty vs non-empty should be 0, got %v", sim)
	}
}

func TestSimilarityTracksOCRJitter(t *testing.T) {
	// One substituted character in a subtitle line should stay close to 1.
	sim := textutil.Similarity("the quick brown fox", "the quick br0wn fox")
	if sim < 0.9 {
		t.Fatalf("expected near-identical similarity, got %v", sim)
	}
	unrelated := textutil.Similarity("the quick brown fox", "suscribe y dale like")
	if unrelated >= sim {
		t.Fatalf("unrelated text (%v) should score below jittered text (%v)", unrelated, sim)
	}
}

func TestSimilarityIgnoresCaseAndSpacing(t *testing.T) {
	if sim := textutil.Similarity("Hello World", "hello   world"); sim != 1 {
		t.Fatalf("expected 1.0 after normalization, got %v", sim)
	}
}

func TestFingerprintCosine(t *testing.T) {
	a := textutil.NewFingerprint("breaking news tonight breaking")
	b := textutil.NewFingerprint("breaking news tonight breaking")
	if a == nil || b == nil {
		t.Fatal("expected fingerprints for valid text")
	}
	if sim := a.CosineSimilarity(b); math.Abs(sim-1) > 1e-9 {
		t.Fatalf("identical text cosine = %v, want 1", sim)
	}

	c := textutil.NewFingerprint("completely different words here")
	if sim := a.CosineSimilarity(c); sim != 0 {
		t.Fatalf("disjoint text cosine = %v, want 0", sim)
	}
}

func TestFingerprintNilForNoise(t *testing.T) {
	if fp := textutil.NewFingerprint("a b !!"); fp != nil {
		t.Fatal("expected nil fingerprint for sub-token noise")
	}
	var nilFP *textutil.Fingerprint
	if sim := nilFP.CosineSimilarity(textutil.NewFingerprint("some text here")); sim != 0 {
		t.Fatalf("nil fingerprint similarity = %v, want 0", sim)
	}
}
