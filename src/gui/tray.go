package gui

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// trayMenu is the system tray menu: capture, show the windows, quit.
func (g *App) trayMenu() *fyne.Menu {
	capture := fyne.NewMenuItem("Capture", func() {
		if g.cb.OnCapture != nil {
			g.cb.OnCapture()
		}
	})
	show := fyne.NewMenuItem("Show windows", func() {
		g.result.Show()
		g.control.Show()
		g.control.RequestFocus()
	})
	quit := fyne.NewMenuItem("Quit", g.Quit)
	quit.IsQuit = true
	return fyne.NewMenu(ControlTitle, capture, show, fyne.NewMenuItemSeparator(), quit)
}

// installTray adds the tray icon when the driver supports one.
func (g *App) installTray() {
	desk, ok := g.app.(desktop.App)
	if !ok {
		log.Printf("gui: no system tray support")
		return
	}
	desk.SetSystemTrayMenu(g.trayMenu())
	desk.SetSystemTrayIcon(appIcon)
}
