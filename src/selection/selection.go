package selection

import (
	"fmt"
	"image"
)

// Point is a pointer position in overlay pixels.
type Point struct {
	X int
	Y int
}

// State is the pointer selection in progress. It is a value: every
// transition returns a new State and nothing outside the Tracker holds it.
type State struct {
	Anchor Point
	Cursor Point
	Active bool
}

// BoundingBox is an axis-aligned screen rectangle with X1 <= X2 and
// Y1 <= Y2, clamped to the screen. Build it with Normalize.
type BoundingBox struct {
	X1, Y1 int
	X2, Y2 int
}

func (b BoundingBox) Width() int  { return b.X2 - b.X1 }
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

// Empty reports a zero-area box, e.g. a click without a drag.
func (b BoundingBox) Empty() bool { return b.Width() <= 0 || b.Height() <= 0 }

// Rect returns the box as an image.Rectangle offset by origin.
func (b BoundingBox) Rect(origin image.Point) image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2).Add(origin)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// Normalize orders the two corners per axis and clamps them to
// [0, screenW] x [0, screenH].
func Normalize(s State, screenW, screenH int) BoundingBox {
	x1 := clamp(minInt(s.Anchor.X, s.Cursor.X), 0, screenW)
	y1 := clamp(minInt(s.Anchor.Y, s.Cursor.Y), 0, screenH)
	x2 := clamp(maxInt(s.Anchor.X, s.Cursor.X), 0, screenW)
	y2 := clamp(maxInt(s.Anchor.Y, s.Cursor.Y), 0, screenH)
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
