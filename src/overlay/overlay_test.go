package overlay

import (
	"context"
	"errors"
	"image"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"screen-ocr-translate/src/selection"
)

func mouse(x, y float32) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     desktop.MouseButtonPrimary,
	}
}

func TestAreaSelection(t *testing.T) {
	test.NewTempApp(t)

	var got *selection.State
	a := newArea(image.NewRGBA(image.Rect(0, 0, 400, 200)), func(st selection.State) {
		got = &st
	})
	a.Resize(fyne.NewSize(200, 100))

	a.MouseDown(mouse(60, 40))
	if a.outline.Visible() {
		t.Fatal("outline must not show before the pointer moves")
	}
	a.MouseMoved(mouse(20, 10))
	if !a.outline.Visible() {
		t.Fatal("expected outline while selecting")
	}
	if pos := a.outline.Position(); pos != fyne.NewPos(20, 10) {
		t.Fatalf("outline at %v", pos)
	}
	if size := a.outline.Size(); size != fyne.NewSize(40, 30) {
		t.Fatalf("outline size %v", size)
	}

	a.MouseUp(mouse(10, 5))
	if a.outline.Visible() {
		t.Fatal("outline must be removed on pointer-up")
	}
	if got == nil {
		t.Fatal("expected the selection to finish")
	}
	box := selection.Normalize(*got, 400, 200)
	if box != (selection.BoundingBox{X1: 20, Y1: 10, X2: 120, Y2: 80}) {
		t.Fatalf("box = %v", box)
	}
}

func TestAreaIgnoresSecondaryButton(t *testing.T) {
	test.NewTempApp(t)
	a := newArea(image.NewRGBA(image.Rect(0, 0, 100, 100)), nil)
	a.Resize(fyne.NewSize(100, 100))

	ev := mouse(10, 10)
	ev.Button = desktop.MouseButtonSecondary
	a.MouseDown(ev)
	if a.tracker.Phase() != selection.Idle {
		t.Fatalf("phase = %v", a.tracker.Phase())
	}
}

func TestAreaSecondaryReleaseKeepsSelecting(t *testing.T) {
	test.NewTempApp(t)
	finished := 0
	a := newArea(image.NewRGBA(image.Rect(0, 0, 100, 100)), func(selection.State) { finished++ })
	a.Resize(fyne.NewSize(100, 100))

	a.MouseDown(mouse(10, 10))
	a.MouseMoved(mouse(20, 20))
	right := mouse(25, 25)
	right.Button = desktop.MouseButtonSecondary
	a.MouseUp(right)
	if finished != 0 || a.tracker.Phase() != selection.Selecting {
		t.Fatalf("secondary release ended the selection: finished=%d phase=%v", finished, a.tracker.Phase())
	}

	a.MouseUp(mouse(40, 50))
	if finished != 1 {
		t.Fatalf("expected primary release to finish, got %d", finished)
	}
	if st := a.tracker.State(); st.Cursor != (selection.Point{X: 40, Y: 50}) {
		t.Fatalf("cursor = %+v", st.Cursor)
	}
}

func TestAreaDragEndFinishes(t *testing.T) {
	test.NewTempApp(t)
	finished := 0
	a := newArea(image.NewRGBA(image.Rect(0, 0, 100, 100)), func(selection.State) { finished++ })
	a.Resize(fyne.NewSize(100, 100))

	a.MouseDown(mouse(10, 10))
	a.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, 40)}})
	a.DragEnd()
	a.MouseUp(mouse(30, 40))

	if finished != 1 {
		t.Fatalf("expected exactly one finish, got %d", finished)
	}
	if st := a.tracker.State(); st.Cursor != (selection.Point{X: 30, Y: 40}) {
		t.Fatalf("cursor = %+v", st.Cursor)
	}
}

func TestSelectCaptureFailure(t *testing.T) {
	s := &Selector{capture: func() (*image.RGBA, error) { return nil, errors.New("no display") }}
	_, cancelled, err := s.Select(context.Background())
	if err == nil || cancelled {
		t.Fatalf("expected capture error, got cancelled=%v err=%v", cancelled, err)
	}
}
