package screenshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"

	"github.com/kbinani/screenshot"

	"screen-ocr-translate/src/selection"
)

var (
	// ErrEmptyRegion means the box had zero width or height and nothing was
	// captured.
	ErrEmptyRegion = errors.New("empty capture region")
	// ErrCaptureFailed wraps backend failures (permissions, no display).
	ErrCaptureFailed = errors.New("screen capture failed")
)

// CaptureFunc grabs the pixels of an absolute virtual-screen rectangle.
type CaptureFunc func(bounds image.Rectangle) (*image.RGBA, error)

// Acquirer captures normalized bounding boxes. Boxes are relative to the
// virtual screen, Origin is the virtual screen's top-left corner.
type Acquirer struct {
	Origin image.Point
	grab   CaptureFunc
}

// NewAcquirer returns an Acquirer backed by kbinani/screenshot and anchored
// at the current virtual screen origin.
func NewAcquirer() (*Acquirer, error) {
	bounds, err := VirtualBounds()
	if err != nil {
		return nil, err
	}
	return &Acquirer{Origin: bounds.Min, grab: screenshot.CaptureRect}, nil
}

// NewAcquirerWith is used when the capture backend is supplied by the caller.
func NewAcquirerWith(origin image.Point, grab CaptureFunc) *Acquirer {
	return &Acquirer{Origin: origin, grab: grab}
}

// Capture grabs the pixels inside box. A zero-area box yields ErrEmptyRegion.
func (a *Acquirer) Capture(box selection.BoundingBox) (*image.RGBA, error) {
	if box.Empty() {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrEmptyRegion, box.Width(), box.Height())
	}

	bounds := box.Rect(a.Origin)
	log.Printf("screenshot: capturing %v (%dx%d)", bounds, bounds.Dx(), bounds.Dy())

	img, err := a.grab(bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: backend returned no pixels", ErrCaptureFailed)
	}
	return img, nil
}

// VirtualBounds returns the union of all active display bounds.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: no active displays found", ErrCaptureFailed)
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// CaptureScreen captures the entire virtual screen across all active displays.
func CaptureScreen() (*image.RGBA, error) {
	union, err := VirtualBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(union)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	return img, nil
}

// EncodePNG converts a captured image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
