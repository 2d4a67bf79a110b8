package publish

import (
	"log"
	"sync"
)

// Surface is a text pane owned by the UI layer.
type Surface interface {
	Clear()
	Append(text string)
}

// Result is what one pipeline run shows to the user.
type Result struct {
	Extracted  string
	Translated string
}

// Publisher replaces the content of the extracted and translated panes.
// Until the panes are attached, the latest result is held and written on
// Attach. Publish must be called on the UI context.
type Publisher struct {
	mu         sync.Mutex
	extracted  Surface
	translated Surface
	pending    *Result
	last       *Result
	listeners  []func(Result)
}

func New() *Publisher {
	return &Publisher{}
}

// Attach sets the panes and flushes a result published before they existed.
func (p *Publisher) Attach(extracted, translated Surface) {
	p.mu.Lock()
	p.extracted, p.translated = extracted, translated
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	if pending != nil {
		log.Printf("publish: flushing result queued before attach")
		p.Publish(pending.Extracted, pending.Translated)
	}
}

// OnPublish registers fn to run after every publish.
func (p *Publisher) OnPublish(fn func(Result)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Publish clears both panes and writes the new texts. It never fails: with
// no panes attached the result is queued instead.
func (p *Publisher) Publish(extracted, translated string) {
	res := Result{Extracted: extracted, Translated: translated}

	p.mu.Lock()
	p.last = &res
	if p.extracted == nil || p.translated == nil {
		p.pending = &res
		p.mu.Unlock()
		log.Printf("publish: surfaces not ready, queued result")
		return
	}
	ex, tr := p.extracted, p.translated
	listeners := append([]func(Result){}, p.listeners...)
	p.mu.Unlock()

	replace(ex, extracted)
	replace(tr, translated)

	for _, fn := range listeners {
		fn(res)
	}
}

// Last returns the most recently published result.
func (p *Publisher) Last() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Result{}, false
	}
	return *p.last, true
}

func replace(s Surface, text string) {
	s.Clear()
	if text != "" {
		s.Append(text)
	}
}
