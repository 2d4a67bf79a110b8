package gui

import (
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"screen-ocr-translate/src/pipeline"
	"screen-ocr-translate/src/publish"
)

// Window titles are unique so the window synchronizer can find the native
// windows.
const (
	ControlTitle = "Screen OCR Translate"
	ResultTitle  = "Screen OCR Translate - Result"
)

var languages = []string{"zh", "en", "ja", "ko", "de", "fr", "es", "ru", "pt", "it"}

type Options struct {
	ControlWidth   int
	ControlHeight  int
	ResultWidth    int
	ResultHeight   int
	AutoRearm      bool
	TargetLanguage string
	Hotkey         string
}

type Callbacks struct {
	OnCapture        func()
	OnAutoRearm      func(bool)
	OnTargetLanguage func(string)
	OnQuit           func()
}

// App owns the control window and the result window.
type App struct {
	app  fyne.App
	opts Options
	cb   Callbacks

	control fyne.Window
	result  fyne.Window

	extracted  *widget.Entry
	translated *widget.Entry
	status     *widget.Label
	capture    *widget.Button
	rearm      *widget.Check
	target     *widget.Select
}

// New builds both windows. Call it on the UI goroutine.
func New(a fyne.App, opts Options, cb Callbacks) *App {
	g := &App{app: a, opts: opts, cb: cb}
	a.SetIcon(appIcon)
	g.buildResult()
	g.buildControl()
	g.installTray()
	return g
}

func (g *App) buildResult() {
	g.extracted = newPane("Waiting for capture…")
	g.translated = newPane("Waiting for translation…")

	split := container.NewVSplit(
		container.NewBorder(sectionLabel("Extracted"), nil, nil, nil, g.extracted),
		container.NewBorder(sectionLabel("Translated"), nil, nil, nil, g.translated),
	)
	split.SetOffset(0.5)

	w := g.app.NewWindow(ResultTitle)
	w.SetIcon(appIcon)
	w.SetContent(split)
	w.Resize(fyne.NewSize(float32(g.opts.ResultWidth), float32(g.opts.ResultHeight)))
	w.SetCloseIntercept(g.Quit)
	g.result = w
}

func (g *App) buildControl() {
	g.capture = widget.NewButtonWithIcon("Capture", theme.ContentCutIcon(), func() {
		if g.cb.OnCapture != nil {
			g.cb.OnCapture()
		}
	})

	g.rearm = widget.NewCheck("Auto re-arm", nil)
	g.rearm.SetChecked(g.opts.AutoRearm)
	g.rearm.OnChanged = func(on bool) {
		log.Printf("gui: auto re-arm %v", on)
		if g.cb.OnAutoRearm != nil {
			g.cb.OnAutoRearm(on)
		}
	}

	g.target = widget.NewSelect(withLanguage(languages, g.opts.TargetLanguage), nil)
	g.target.SetSelected(g.opts.TargetLanguage)
	g.target.OnChanged = func(code string) {
		log.Printf("gui: target language %s", code)
		if g.cb.OnTargetLanguage != nil {
			g.cb.OnTargetLanguage(code)
		}
	}

	g.status = widget.NewLabel(stageText(pipeline.Armed))
	if g.opts.Hotkey != "" {
		g.capture.SetText(fmt.Sprintf("Capture (%s)", g.opts.Hotkey))
	}

	w := g.app.NewWindow(ControlTitle)
	w.SetIcon(appIcon)
	w.SetContent(container.NewVBox(
		g.capture,
		container.NewHBox(g.rearm, g.target),
		g.status,
	))
	w.Resize(fyne.NewSize(float32(g.opts.ControlWidth), float32(g.opts.ControlHeight)))
	w.SetFixedSize(true)
	w.SetMaster()
	w.SetCloseIntercept(g.Quit)
	g.control = w
}

func newPane(placeholder string) *widget.Entry {
	e := widget.NewMultiLineEntry()
	e.Wrapping = fyne.TextWrapWord
	e.SetPlaceHolder(placeholder)
	return e
}

func sectionLabel(text string) *widget.Label {
	return widget.NewLabelWithStyle(text, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
}

func withLanguage(list []string, code string) []string {
	for _, l := range list {
		if l == code {
			return list
		}
	}
	if code == "" {
		return list
	}
	return append(append([]string{}, list...), code)
}

// Surfaces returns the extracted and translated panes.
func (g *App) Surfaces() (extracted, translated publish.Surface) {
	return EntrySurface{g.extracted}, EntrySurface{g.translated}
}

// SetStage shows the pipeline stage in the control window. Safe to call
// from any goroutine.
func (g *App) SetStage(s pipeline.Stage) {
	Post(func() {
		g.status.SetText(stageText(s))
	})
}

// Apply updates the controls after a configuration reload. UI goroutine only.
func (g *App) Apply(targetLanguage string, autoRearm bool) {
	if targetLanguage != "" && targetLanguage != g.target.Selected {
		g.target.Options = withLanguage(g.target.Options, targetLanguage)
		g.target.SetSelected(targetLanguage)
	}
	if autoRearm != g.rearm.Checked {
		g.rearm.SetChecked(autoRearm)
	}
}

// ShowAndRun shows both windows and runs the UI loop until Quit.
func (g *App) ShowAndRun() {
	g.result.Show()
	g.control.Show()
	g.app.Run()
}

func (g *App) Quit() {
	log.Printf("gui: quitting")
	if g.cb.OnQuit != nil {
		g.cb.OnQuit()
	}
	g.app.Quit()
}

func stageText(s pipeline.Stage) string {
	switch s {
	case pipeline.Armed:
		return "Ready"
	case pipeline.Capturing:
		return "Select a region…"
	case pipeline.Extracting:
		return "Extracting text…"
	case pipeline.Translating:
		return "Translating…"
	case pipeline.Publishing:
		return "Publishing…"
	case pipeline.Stopped:
		return "Stopped"
	}
	return s.String()
}
