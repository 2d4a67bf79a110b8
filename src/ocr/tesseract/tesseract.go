// Package tesseract is the offline OCR engine backed by gosseract. It is kept
// apart from package ocr so that only binaries which need it link libtesseract.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"screen-ocr-translate/src/ocr"
	"screen-ocr-translate/src/screenshot"
)

var defaultLanguages = []string{"eng"}

// Engine runs Tesseract on captured images. A gosseract client is not safe
// for concurrent use, so calls are serialized.
type Engine struct {
	mu             sync.Mutex
	tessdataPrefix string
}

func New(tessdataPrefix string) *Engine {
	return &Engine{tessdataPrefix: tessdataPrefix}
}

// Recognize returns one span per detected text line, ordered top to bottom
// and then left to right.
func (e *Engine) Recognize(ctx context.Context, img image.Image, languages []string) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return ocr.Result{}, err
	}
	if len(languages) == 0 {
		languages = defaultLanguages
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return ocr.Result{}, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(languages...); err != nil {
		return ocr.Result{}, fmt.Errorf("failed to set languages %v: %w", languages, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return ocr.Result{}, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("tesseract OCR failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	return spansFromBoxes(boxes), nil
}

// spansFromBoxes keeps the lines in the order tesseract emits them, blank
// ones included. Only the line terminator is stripped.
func spansFromBoxes(boxes []gosseract.BoundingBox) ocr.Result {
	var res ocr.Result
	for _, b := range boxes {
		text := strings.TrimRight(b.Word, "\r\n")
		res.Spans = append(res.Spans, ocr.Span{Text: text, Bounds: b.Box, Confidence: b.Confidence})
	}
	return res
}
