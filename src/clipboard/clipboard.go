package clipboard

import (
	"errors"
	"log"
	"sync"

	"golang.design/x/clipboard"

	"screen-ocr-translate/src/publish"
)

var (
	writeMu sync.Mutex
	ready   bool

	ErrUnavailable = errors.New("clipboard unavailable")
)

func Init() error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if err := clipboard.Init(); err != nil {
		return err
	}
	ready = true
	return nil
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if !ready {
		return ErrUnavailable
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Copier puts published results on the clipboard.
type Copier struct {
	write func(string) error
}

func NewCopier() *Copier {
	return &Copier{write: Write}
}

// OnPublish copies the translation, or the extracted text when there is no
// translation. Empty results leave the clipboard untouched.
func (c *Copier) OnPublish(r publish.Result) {
	text := r.Translated
	if text == "" {
		text = r.Extracted
	}
	if text == "" {
		return
	}
	if err := c.write(text); err != nil {
		log.Printf("clipboard: copy failed: %v", err)
	}
}
