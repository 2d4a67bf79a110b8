//go:build windows

package windowsync

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/lxn/win"
)

// NativeWindow addresses a top-level window by its title. The handle is
// looked up lazily and again whenever it goes stale.
type NativeWindow struct {
	mu    sync.Mutex
	title string
	hwnd  win.HWND
}

func Find(title string) *NativeWindow {
	return &NativeWindow{title: title}
}

func (w *NativeWindow) handle() (win.HWND, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hwnd != 0 {
		return w.hwnd, nil
	}
	title, err := syscall.UTF16PtrFromString(w.title)
	if err != nil {
		return 0, err
	}
	w.hwnd = win.FindWindow(nil, title)
	if w.hwnd == 0 {
		return 0, fmt.Errorf("%w: %q not found", ErrNotReady, w.title)
	}
	return w.hwnd, nil
}

func (w *NativeWindow) forget() {
	w.mu.Lock()
	w.hwnd = 0
	w.mu.Unlock()
}

func (w *NativeWindow) Geometry() (Rect, error) {
	h, err := w.handle()
	if err != nil {
		return Rect{}, err
	}
	if !win.IsWindowVisible(h) || win.IsIconic(h) {
		return Rect{}, fmt.Errorf("%w: %q hidden or minimized", ErrNotReady, w.title)
	}
	var r win.RECT
	if !win.GetWindowRect(h, &r) {
		w.forget()
		return Rect{}, fmt.Errorf("%w: %q has no rect", ErrNotReady, w.title)
	}
	return Rect{
		X:      int(r.Left),
		Y:      int(r.Top),
		Width:  int(r.Right - r.Left),
		Height: int(r.Bottom - r.Top),
	}, nil
}

func (w *NativeWindow) SetGeometry(r Rect) error {
	h, err := w.handle()
	if err != nil {
		return err
	}
	if !win.SetWindowPos(h, 0, int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height), win.SWP_NOZORDER|win.SWP_NOACTIVATE) {
		w.forget()
		return fmt.Errorf("%w: SetWindowPos failed for %q", ErrNotReady, w.title)
	}
	return nil
}
