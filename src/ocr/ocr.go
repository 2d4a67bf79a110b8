package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"screen-ocr-translate/src/screenshot"
)

// ErrNoImage is returned when Extract is called without pixels.
var ErrNoImage = errors.New("no image to extract text from")

// Span is one recognized line of text and its location in the image.
type Span struct {
	Text       string
	Bounds     image.Rectangle
	Confidence float64
}

// Result is the ordered output of one extraction. It has no spans when the
// image contains no readable text.
type Result struct {
	Spans []Span
}

// Text joins the spans with newlines in the order the engine emitted them.
func (r Result) Text() string {
	if len(r.Spans) == 0 {
		return ""
	}
	lines := make([]string, 0, len(r.Spans))
	for _, s := range r.Spans {
		lines = append(lines, s.Text)
	}
	return strings.Join(lines, "\n")
}

// Empty reports a result with no text.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text()) == ""
}

// Engine is a text recognizer. languages are engine specific hints such as
// tesseract traineddata names.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, languages []string) (Result, error)
}

// Options tune an Extractor.
type Options struct {
	// DebugDir, when set, receives a PNG of every image handed to the engine.
	DebugDir string
}

// Extractor runs an Engine on captured images.
type Extractor struct {
	engine Engine
	opts   Options
}

func New(engine Engine, opts Options) *Extractor {
	return &Extractor{engine: engine, opts: opts}
}

// Extract recognizes the text in img. An image without text is not an
// error: the result is simply empty.
func (e *Extractor) Extract(ctx context.Context, img image.Image, languages []string) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, ErrNoImage
	}
	if e.opts.DebugDir != "" {
		saveDebugImage(e.opts.DebugDir, img)
	}

	start := time.Now()
	res, err := e.engine.Recognize(ctx, img, languages)
	if err != nil {
		return Result{}, fmt.Errorf("text extraction failed: %w", err)
	}
	log.Printf("ocr: %d span(s) in %v", len(res.Spans), time.Since(start))
	return res, nil
}

// DebugDirFromEnv mirrors the OCR_DEBUG_SAVE_IMAGES switch: when enabled,
// images go to the working directory.
func DebugDirFromEnv() string {
	if os.Getenv("OCR_DEBUG_SAVE_IMAGES") == "true" {
		return "."
	}
	return ""
}

func saveDebugImage(dir string, img image.Image) {
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		log.Printf("Warning: Could not encode debug image: %v", err)
		return
	}
	b := img.Bounds()
	name := filepath.Join(dir, fmt.Sprintf("debug_captured_region_%dx%d.png", b.Dx(), b.Dy()))
	if err := os.WriteFile(name, data, 0600); err != nil {
		log.Printf("Warning: Could not save debug image: %v", err)
		return
	}
	log.Printf("DEBUG: Saved captured region to %s (size: %d bytes)", name, len(data))
}

// VisionModel is the LLM call used by VisionEngine.
type VisionModel interface {
	QueryVision(ctx context.Context, png []byte) (string, error)
}

// VisionEngine recognizes text by sending the image to a vision model. The
// model has no geometry, so every output line becomes a span covering the
// whole image.
type VisionEngine struct {
	Model VisionModel
}

func (v VisionEngine) Recognize(ctx context.Context, img image.Image, _ []string) (Result, error) {
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return Result{}, err
	}
	text, err := v.Model.QueryVision(ctx, data)
	if err != nil {
		return Result{}, err
	}
	return spansFromText(text, img.Bounds()), nil
}

// spansFromText turns each output line into a span, blank lines included.
// A single trailing newline ends the last line and adds no span.
func spansFromText(text string, bounds image.Rectangle) Result {
	var res Result
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return res
	}
	for _, line := range strings.Split(text, "\n") {
		res.Spans = append(res.Spans, Span{Text: line, Bounds: bounds})
	}
	return res
}
