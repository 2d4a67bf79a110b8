package screenshot

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"screen-ocr-translate/src/selection"
)

func TestCaptureScreen(t *testing.T) {
	// Needs a display; only make sure it does not panic.
	_, err := CaptureScreen()
	if err != nil {
		t.Logf("Failed to capture screenshot (expected in headless environment): %v", err)
	}
}

func TestCaptureEmptyRegion(t *testing.T) {
	called := false
	a := NewAcquirerWith(image.Point{}, func(image.Rectangle) (*image.RGBA, error) {
		called = true
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	})

	boxes := []selection.BoundingBox{
		{X1: 5, Y1: 5, X2: 5, Y2: 5},
		{X1: 5, Y1: 5, X2: 50, Y2: 5},
		{X1: 5, Y1: 5, X2: 5, Y2: 50},
	}
	for _, b := range boxes {
		_, err := a.Capture(b)
		if !errors.Is(err, ErrEmptyRegion) {
			t.Fatalf("Capture(%v) err = %v, want ErrEmptyRegion", b, err)
		}
	}
	if called {
		t.Fatal("backend must not be called for a zero-area box")
	}
}

func TestCaptureOffsetsByOrigin(t *testing.T) {
	var got image.Rectangle
	a := NewAcquirerWith(image.Pt(-1280, 0), func(r image.Rectangle) (*image.RGBA, error) {
		got = r
		return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
	})

	img, err := a.Capture(selection.BoundingBox{X1: 100, Y1: 50, X2: 300, Y2: 150})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if got != image.Rect(-1180, 50, -980, 150) {
		t.Fatalf("backend got %v", got)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Fatalf("unexpected image size %v", img.Bounds())
	}
}

func TestCaptureBackendFailure(t *testing.T) {
	a := NewAcquirerWith(image.Point{}, func(image.Rectangle) (*image.RGBA, error) {
		return nil, errors.New("access denied")
	})
	_, err := a.Capture(selection.BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10})
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestEncodePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(1, 1, color.RGBA{R: 255, A: 255})
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Fatalf("expected PNG magic, got % x", data[:8])
	}
}
