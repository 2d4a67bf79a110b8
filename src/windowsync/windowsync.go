package windowsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrNotReady means a window does not exist yet, is hidden or is minimized.
var ErrNotReady = errors.New("window not ready")

// Rect is a window's outer geometry in screen pixels.
type Rect struct {
	X, Y          int
	Width, Height int
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Window exposes the position and size of a top-level window.
type Window interface {
	Geometry() (Rect, error)
	SetGeometry(r Rect) error
}

// Syncer keeps the primary (control) window flush beneath the secondary
// (result) window at a fixed size.
type Syncer struct {
	primary   Window
	secondary Window
	width     int
	height    int
	interval  time.Duration

	mu      sync.Mutex
	skipped int
	moved   int
}

func New(primary, secondary Window, width, height int, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Syncer{
		primary:   primary,
		secondary: secondary,
		width:     width,
		height:    height,
		interval:  interval,
	}
}

// Target is where the primary window belongs for a given secondary window.
func (s *Syncer) Target(secondary Rect) Rect {
	return Rect{X: secondary.X, Y: secondary.Y + secondary.Height, Width: s.width, Height: s.height}
}

// Tick repositions the primary window once. A window that is not ready
// skips the tick; the next tick tries again. It reports whether the primary
// window was moved.
func (s *Syncer) Tick() bool {
	sec, err := s.secondary.Geometry()
	if err != nil {
		s.skip(err)
		return false
	}
	target := s.Target(sec)

	if cur, err := s.primary.Geometry(); err == nil && cur == target {
		return false
	} else if err != nil && !errors.Is(err, ErrNotReady) {
		s.skip(err)
		return false
	}

	if err := s.primary.SetGeometry(target); err != nil {
		s.skip(err)
		return false
	}
	s.mu.Lock()
	s.moved++
	s.mu.Unlock()
	return true
}

func (s *Syncer) skip(err error) {
	s.mu.Lock()
	s.skipped++
	n := s.skipped
	s.mu.Unlock()
	if !errors.Is(err, ErrNotReady) || n == 1 {
		log.Printf("windowsync: tick skipped: %v", err)
	}
}

// Stats returns how many ticks moved the primary window and how many were
// skipped.
func (s *Syncer) Stats() (moved, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moved, s.skipped
}

// Run ticks every interval until ctx is done. dispatch hands each tick to the
// UI context and must not block.
func (s *Syncer) Run(ctx context.Context, dispatch func(func())) {
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("windowsync: running every %v", s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dispatch(func() { s.Tick() })
		}
	}
}
