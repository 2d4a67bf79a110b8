package selection

import (
	"image"
	"log"
	"sync"
)

// Phase is the selection lifecycle: Idle -> Selecting -> Done.
type Phase int

const (
	Idle Phase = iota
	Selecting
	Done
)

func (p Phase) String() string {
	switch p {
	case Selecting:
		return "selecting"
	case Done:
		return "done"
	default:
		return "idle"
	}
}

// Outline is the visible selection rectangle on the overlay.
type Outline interface {
	Clear()
	Draw(r image.Rectangle)
}

// Tracker turns pointer down/move/up events into a finished State.
// A Tracker is used for exactly one capture request.
type Tracker struct {
	mu      sync.Mutex
	phase   Phase
	state   State
	outline Outline
}

// NewTracker returns an Idle tracker. outline may be nil.
func NewTracker(outline Outline) *Tracker {
	return &Tracker{outline: outline}
}

func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Down starts the selection. Ignored unless Idle.
func (t *Tracker) Down(p Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Idle {
		return
	}
	t.phase = Selecting
	t.state = State{Anchor: p, Cursor: p, Active: true}
	log.Printf("selection: down at (%d,%d)", p.X, p.Y)
}

// Move updates the cursor and replaces the drawn outline. Ignored unless
// Selecting.
func (t *Tracker) Move(p Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Selecting {
		return
	}
	t.state.Cursor = p
	if t.outline != nil {
		t.outline.Clear()
		t.outline.Draw(spanned(t.state))
	}
}

// Up finishes the selection and returns the final state. The second result
// is false when no selection was in progress.
func (t *Tracker) Up(p Point) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Selecting {
		return State{}, false
	}
	t.state.Cursor = p
	t.state.Active = false
	t.phase = Done
	if t.outline != nil {
		t.outline.Clear()
	}
	log.Printf("selection: up at (%d,%d), anchor (%d,%d)", p.X, p.Y, t.state.Anchor.X, t.state.Anchor.Y)
	return t.state, true
}

// Box normalizes the finished selection against the screen size.
func (t *Tracker) Box(screenW, screenH int) BoundingBox {
	return Normalize(t.State(), screenW, screenH)
}

func spanned(s State) image.Rectangle {
	return image.Rect(s.Anchor.X, s.Anchor.Y, s.Cursor.X, s.Cursor.Y)
}
