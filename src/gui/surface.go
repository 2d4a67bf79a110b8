package gui

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// EntrySurface adapts a text entry to publish.Surface. UI goroutine only.
type EntrySurface struct {
	Entry *widget.Entry
}

func (s EntrySurface) Clear() {
	s.Entry.SetText("")
}

func (s EntrySurface) Append(text string) {
	s.Entry.Append(text)
}

// Dispatch runs f on the UI goroutine and waits for it.
func Dispatch(f func()) {
	fyne.DoAndWait(func() {
		defer recoverUI()
		f()
	})
}

// Post runs f on the UI goroutine without waiting.
func Post(f func()) {
	fyne.Do(func() {
		defer recoverUI()
		f()
	})
}

func recoverUI() {
	if r := recover(); r != nil {
		log.Printf("PANIC in UI callback: %v", r)
	}
}
