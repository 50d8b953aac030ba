package textutil

import (
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Normalize canonicalizes OCR output for comparison: NFKC fold, lowercase,
// collapsed whitespace. OCR engines disagree on compatibility forms and
// spacing far more often than on letters.
func Normalize(text string) string {
	folded := norm.NFKC.String(text)
	lowered := strings.ToLower(folded)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(lowered, " "))
}

// Similarity returns a normalized edit-distance similarity in [0,1] between
// two strings after normalization. Two empty strings are identical; an empty
// string against a non-empty one scores zero.
func Similarity(a, b string) float64 {
	a = Normalize(a)
	b = Normalize(b)
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	distance := levenshtein.ComputeDistance(a, b)
	if distance >= longest {
		return 0
	}
	return 1 - float64(distance)/float64(longest)
}

// Tokenize splits text into lowercase tokens, filtering tokens shorter than
// three characters.
func Tokenize(text string) []string {
	lowered := strings.ToLower(Normalize(text))
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if len(token) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// Fingerprint represents a term-frequency vector for text similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text produces no valid tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var n float64
	for _, count := range counts {
		n += count * count
	}
	return &Fingerprint{
		tokens: counts,
		norm:   math.Sqrt(n),
	}
}

// CosineSimilarity returns the cosine similarity between two fingerprints.
// A nil fingerprint scores zero against anything.
func (f *Fingerprint) CosineSimilarity(other *Fingerprint) float64 {
	if f == nil || other == nil || f.norm == 0 || other.norm == 0 {
		return 0
	}
	shorter, longer := f, other
	if len(longer.tokens) < len(shorter.tokens) {
		shorter, longer = longer, shorter
	}
	var dot float64
	for token, count := range shorter.tokens {
		if otherCount, ok := longer.tokens[token]; ok {
			dot += count * otherCount
		}
	}
	return dot / (f.norm * other.norm)
}
