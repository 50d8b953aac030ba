package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text through the Tesseract engine via gosseract.
// A fresh client is created per call; the engine holds mutable native state
// and is not reentrant.
type Tesseract struct {
	language string
}

// NewTesseract returns a Tesseract backend for the given language code
// (e.g. "eng").
func NewTesseract(language string) *Tesseract {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "eng"
	}
	return &Tesseract{language: language}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize runs Tesseract over the image. The native call cannot be
// cancelled mid-flight, so on context expiry the worker goroutine is
// abandoned and the caller gets ctx.Err().
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("encode region: %w", err)
	}

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := t.recognize(buf.Bytes())
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case out := <-done:
		return out.result, out.err
	}
}

func (t *Tesseract) recognize(imageBytes []byte) (Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return Result{}, fmt.Errorf("set language %q: %w", t.language, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return Result{}, fmt.Errorf("set page segmentation: %w", err)
	}
	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("extract text: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Result{}, fmt.Errorf("extract word boxes: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	var confidenceSum float64
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" || box.Confidence <= 0 {
			continue
		}
		words = append(words, Word{
			Text:       word,
			Confidence: box.Confidence / 100.0,
			Box:        box.Box,
		})
		confidenceSum += box.Confidence / 100.0
	}

	result := Result{Text: strings.TrimSpace(text), Words: words}
	if len(words) > 0 {
		result.Confidence = confidenceSum / float64(len(words))
	}
	return result, nil
}
