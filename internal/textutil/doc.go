// Package textutil provides text normalization and similarity helpers used
// by the temporal aggregator to compare OCR output across frames.
//
// Two similarity measures are exposed: a normalized edit distance for
// consecutive-frame comparison (sensitive to small OCR jitter) and a
// token-frequency cosine similarity for whole-video text cohesion.
package textutil
