//go:build !windows

package windowsync

import (
	"fmt"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// display is the shared X connection. It is opened on first use and dropped
// after an error so the next tick reconnects.
var display struct {
	mu   sync.Mutex
	conn *xgb.Conn
	root xproto.Window
}

func xconn() (*xgb.Conn, xproto.Window, error) {
	display.mu.Lock()
	defer display.mu.Unlock()
	if display.conn != nil {
		return display.conn, display.root, nil
	}
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: no X display: %v", ErrNotReady, err)
	}
	display.conn = conn
	display.root = xproto.Setup(conn).DefaultScreen(conn).Root
	return display.conn, display.root, nil
}

func dropConn(conn *xgb.Conn) {
	display.mu.Lock()
	defer display.mu.Unlock()
	if display.conn == conn {
		display.conn.Close()
		display.conn = nil
	}
}

// NativeWindow addresses a top-level X11 window by its title, listed in the
// window manager's _NET_CLIENT_LIST.
type NativeWindow struct {
	mu    sync.Mutex
	title string
	id    xproto.Window
}

func Find(title string) *NativeWindow {
	return &NativeWindow{title: title}
}

func (w *NativeWindow) handle() (*xgb.Conn, xproto.Window, xproto.Window, error) {
	conn, root, err := xconn()
	if err != nil {
		return nil, 0, 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.id != 0 {
		return conn, root, w.id, nil
	}
	clients, err := clientList(conn, root)
	if err != nil {
		dropConn(conn)
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	for _, c := range clients {
		if windowName(conn, c) == w.title {
			w.id = c
			return conn, root, c, nil
		}
	}
	return nil, 0, 0, fmt.Errorf("%w: %q not found", ErrNotReady, w.title)
}

func (w *NativeWindow) forget() {
	w.mu.Lock()
	w.id = 0
	w.mu.Unlock()
}

func (w *NativeWindow) Geometry() (Rect, error) {
	conn, root, id, err := w.handle()
	if err != nil {
		return Rect{}, err
	}
	attrs, err := xproto.GetWindowAttributes(conn, id).Reply()
	if err != nil {
		w.forget()
		return Rect{}, fmt.Errorf("%w: %q attributes: %v", ErrNotReady, w.title, err)
	}
	if attrs.MapState != xproto.MapStateViewable {
		return Rect{}, fmt.Errorf("%w: %q hidden or minimized", ErrNotReady, w.title)
	}
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(id)).Reply()
	if err != nil {
		w.forget()
		return Rect{}, fmt.Errorf("%w: %q geometry: %v", ErrNotReady, w.title, err)
	}
	// Geometry is relative to the parent, which is the WM frame when the
	// window is reparented.
	pos, err := xproto.TranslateCoordinates(conn, id, root, 0, 0).Reply()
	if err != nil {
		w.forget()
		return Rect{}, fmt.Errorf("%w: %q position: %v", ErrNotReady, w.title, err)
	}
	return Rect{
		X:      int(pos.DstX),
		Y:      int(pos.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

func (w *NativeWindow) SetGeometry(r Rect) error {
	conn, _, id, err := w.handle()
	if err != nil {
		return err
	}
	mask := uint16(xproto.ConfigWindowX | xproto.ConfigWindowY | xproto.ConfigWindowWidth | xproto.ConfigWindowHeight)
	values := []uint32{uint32(int32(r.X)), uint32(int32(r.Y)), uint32(r.Width), uint32(r.Height)}
	if err := xproto.ConfigureWindowChecked(conn, id, mask, values).Check(); err != nil {
		w.forget()
		return fmt.Errorf("%w: configure %q: %v", ErrNotReady, w.title, err)
	}
	return nil
}

func atom(conn *xgb.Conn, name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

func clientList(conn *xgb.Conn, root xproto.Window) ([]xproto.Window, error) {
	list, err := atom(conn, "_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	if list == xproto.AtomNone {
		return nil, fmt.Errorf("window manager does not publish _NET_CLIENT_LIST")
	}
	reply, err := xproto.GetProperty(conn, false, root, list, xproto.AtomWindow, 0, 1<<16).Reply()
	if err != nil {
		return nil, err
	}
	return decodeWindows(reply.Value), nil
}

// decodeWindows reads a format-32 window list as xgb delivers it.
func decodeWindows(value []byte) []xproto.Window {
	out := make([]xproto.Window, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		out = append(out, xproto.Window(xgb.Get32(value[i:])))
	}
	return out
}

// windowName prefers the UTF-8 _NET_WM_NAME and falls back to WM_NAME.
func windowName(conn *xgb.Conn, id xproto.Window) string {
	if netName, err := atom(conn, "_NET_WM_NAME"); err == nil && netName != xproto.AtomNone {
		reply, err := xproto.GetProperty(conn, false, id, netName, xproto.GetPropertyTypeAny, 0, 1024).Reply()
		if err == nil && len(reply.Value) > 0 {
			return string(reply.Value)
		}
	}
	reply, err := xproto.GetProperty(conn, false, id, xproto.AtomWmName, xproto.GetPropertyTypeAny, 0, 1024).Reply()
	if err != nil {
		return ""
	}
	return string(reply.Value)
}
