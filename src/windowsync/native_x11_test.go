//go:build !windows

package windowsync

import (
	"os"
	"testing"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

func TestDecodeWindows(t *testing.T) {
	value := []byte{
		0x01, 0x00, 0x20, 0x00,
		0xff, 0x00, 0x00, 0x04,
		0x07, // trailing partial entry
	}
	got := decodeWindows(value)
	want := []xproto.Window{xproto.Window(xgb.Get32(value[0:])), xproto.Window(xgb.Get32(value[4:]))}
	if len(got) != len(want) {
		t.Fatalf("decodeWindows() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("decodeWindows() = %v, want %v", got, want)
		}
	}
}

func TestNativeWindowX11(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("no X display")
	}
	conn, err := xgb.NewConn()
	if err != nil {
		t.Skipf("X display unavailable: %v", err)
	}
	defer conn.Close()

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	if _, err := clientList(conn, root); err != nil {
		t.Skipf("no EWMH window manager: %v", err)
	}

	id, err := xproto.NewWindowId(conn)
	if err != nil {
		t.Fatal(err)
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	xproto.CreateWindow(conn, screen.RootDepth, id, root, 50, 60, 300, 200, 0,
		xproto.WindowClassInputOutput, screen.RootVisual, 0, nil)
	const title = "windowsync x11 test window"
	xproto.ChangeProperty(conn, xproto.PropModeReplace, id, xproto.AtomWmName, xproto.AtomString, 8, uint32(len(title)), []byte(title))
	xproto.MapWindow(conn, id)
	defer xproto.DestroyWindow(conn, id)

	w := Find(title)
	var r Rect
	deadline := time.Now().Add(3 * time.Second)
	for {
		if r, err = w.Geometry(); err == nil || time.Now().After(deadline) {
			break
		}
		w.forget()
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		t.Skipf("window manager did not list the test window: %v", err)
	}
	if r.Width <= 0 || r.Height <= 0 {
		t.Fatalf("Geometry() = %v", r)
	}
	if err := w.SetGeometry(Rect{X: r.X, Y: r.Y, Width: 320, Height: 240}); err != nil {
		t.Fatalf("SetGeometry failed: %v", err)
	}
}
