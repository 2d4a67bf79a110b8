package overlay

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"screen-ocr-translate/src/screenshot"
	"screen-ocr-translate/src/selection"
)

const windowTitle = "Select region"

var (
	outlineColor = color.NRGBA{R: 0, G: 120, B: 212, A: 255}
	shadeColor   = color.NRGBA{A: 64}
)

// Selector shows a full-screen overlay over a frozen screenshot and returns
// the box the user drags. Select suspends the calling goroutine until the
// overlay finishes; it must not be called on the UI goroutine.
type Selector struct {
	app     fyne.App
	capture func() (*image.RGBA, error)
	mu      sync.Mutex
}

func NewSelector(a fyne.App) *Selector {
	return &Selector{app: a, capture: screenshot.CaptureScreen}
}

type outcome struct {
	box       selection.BoundingBox
	cancelled bool
}

// Select returns (box, cancelled, error). Escape or closing the overlay
// cancels. The box is in virtual-screen pixels.
func (s *Selector) Select(ctx context.Context) (selection.BoundingBox, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frozen, err := s.capture()
	if err != nil {
		return selection.BoundingBox{}, false, fmt.Errorf("failed to capture screen for overlay: %w", err)
	}

	done := make(chan outcome, 1)
	var w fyne.Window
	fyne.DoAndWait(func() {
		w = s.open(frozen, done)
	})

	select {
	case o := <-done:
		return o.box, o.cancelled, nil
	case <-ctx.Done():
		fyne.Do(w.Close)
		return selection.BoundingBox{}, false, ctx.Err()
	}
}

func (s *Selector) open(frozen *image.RGBA, done chan<- outcome) fyne.Window {
	w := s.app.NewWindow(windowTitle)
	w.SetPadded(false)

	var once sync.Once
	finish := func(o outcome) {
		once.Do(func() {
			done <- o
			w.Close()
		})
	}

	width, height := frozen.Bounds().Dx(), frozen.Bounds().Dy()
	area := newArea(frozen, func(st selection.State) {
		box := selection.Normalize(st, width, height)
		log.Printf("overlay: selected %v", box)
		finish(outcome{box: box})
	})

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			log.Printf("overlay: cancelled with Escape")
			finish(outcome{cancelled: true})
		}
	})
	w.SetOnClosed(func() {
		finish(outcome{cancelled: true})
	})

	w.SetContent(area)
	w.SetFullScreen(true)
	w.Show()
	w.RequestFocus()
	return w
}

// area is the overlay content: the frozen screen, a light shade and the
// selection outline. It implements selection.Outline.
type area struct {
	widget.BaseWidget

	bg      *canvas.Image
	shade   *canvas.Rectangle
	outline *canvas.Rectangle
	pixels  image.Point
	tracker *selection.Tracker
	onDone  func(selection.State)
}

func newArea(frozen image.Image, onDone func(selection.State)) *area {
	bg := canvas.NewImageFromImage(frozen)
	bg.FillMode = canvas.ImageFillStretch
	bg.ScaleMode = canvas.ImageScaleFastest

	outline := canvas.NewRectangle(color.Transparent)
	outline.StrokeColor = outlineColor
	outline.StrokeWidth = 2
	outline.Hide()

	a := &area{
		bg:      bg,
		shade:   canvas.NewRectangle(shadeColor),
		outline: outline,
		pixels:  frozen.Bounds().Size(),
		onDone:  onDone,
	}
	a.tracker = selection.NewTracker(a)
	a.ExtendBaseWidget(a)
	return a
}

func (a *area) Clear() {
	a.outline.Hide()
}

func (a *area) Draw(r image.Rectangle) {
	sx, sy := a.scale()
	if sx == 0 || sy == 0 {
		return
	}
	a.outline.Move(fyne.NewPos(float32(r.Min.X)/sx, float32(r.Min.Y)/sy))
	a.outline.Resize(fyne.NewSize(float32(r.Dx())/sx, float32(r.Dy())/sy))
	a.outline.Show()
	canvas.Refresh(a.outline)
}

// scale is pixels per canvas unit on each axis.
func (a *area) scale() (float32, float32) {
	size := a.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return 0, 0
	}
	return float32(a.pixels.X) / size.Width, float32(a.pixels.Y) / size.Height
}

func (a *area) toPixel(pos fyne.Position) selection.Point {
	sx, sy := a.scale()
	return selection.Point{X: int(pos.X*sx + 0.5), Y: int(pos.Y*sy + 0.5)}
}

func (a *area) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	a.tracker.Down(a.toPixel(ev.Position))
}

func (a *area) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	a.finish(a.toPixel(ev.Position))
}

func (a *area) MouseIn(*desktop.MouseEvent) {}

func (a *area) MouseMoved(ev *desktop.MouseEvent) {
	a.tracker.Move(a.toPixel(ev.Position))
}

func (a *area) MouseOut() {}

// Dragged and DragEnd cover drivers that report motion with a held button as
// a drag instead of hover.
func (a *area) Dragged(ev *fyne.DragEvent) {
	a.tracker.Move(a.toPixel(ev.Position))
}

func (a *area) DragEnd() {
	if a.tracker.Phase() == selection.Selecting {
		a.finish(a.tracker.State().Cursor)
	}
}

func (a *area) finish(p selection.Point) {
	if st, ok := a.tracker.Up(p); ok && a.onDone != nil {
		a.onDone(st)
	}
}

func (a *area) Cursor() desktop.Cursor {
	return desktop.CrosshairCursor
}

func (a *area) CreateRenderer() fyne.WidgetRenderer {
	return &areaRenderer{a: a}
}

type areaRenderer struct {
	a *area
}

func (r *areaRenderer) Layout(s fyne.Size) {
	r.a.bg.Resize(s)
	r.a.shade.Resize(s)
}

func (r *areaRenderer) MinSize() fyne.Size { return fyne.NewSize(1, 1) }

func (r *areaRenderer) Refresh() {
	canvas.Refresh(r.a.bg)
	canvas.Refresh(r.a.shade)
}

func (r *areaRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.a.bg, r.a.shade, r.a.outline}
}

func (r *areaRenderer) Destroy() {}
