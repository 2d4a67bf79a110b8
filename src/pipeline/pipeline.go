package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"screen-ocr-translate/src/ocr"
	"screen-ocr-translate/src/screenshot"
	"screen-ocr-translate/src/selection"
	"screen-ocr-translate/src/worker"
)

// Stage is the orchestrator state: Armed -> Capturing -> Extracting ->
// Translating -> Publishing -> Armed. Stopped is entered only by Cancel.
type Stage int

const (
	Armed Stage = iota
	Capturing
	Extracting
	Translating
	Publishing
	Stopped
)

func (s Stage) String() string {
	switch s {
	case Armed:
		return "armed"
	case Capturing:
		return "capturing"
	case Extracting:
		return "extracting"
	case Translating:
		return "translating"
	case Publishing:
		return "publishing"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Selector runs the region overlay. cancelled is true when the user dismissed
// the overlay without selecting.
type Selector interface {
	Select(ctx context.Context) (box selection.BoundingBox, cancelled bool, err error)
}

type Acquirer interface {
	Capture(box selection.BoundingBox) (*image.RGBA, error)
}

type Extractor interface {
	Extract(ctx context.Context, img image.Image, languages []string) (ocr.Result, error)
}

type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

type Publisher interface {
	Publish(extracted, translated string)
}

// Dispatcher runs f on the UI context and returns once f has run.
type Dispatcher func(f func())

func direct(f func()) { f() }

// Timer is a pending re-arm.
type Timer interface {
	Stop() bool
}

// Scheduler delays re-arms. The default uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type Options struct {
	Languages      []string
	TargetLanguage string
	AutoRearm      bool
	RearmDelay     time.Duration
	Dispatch       Dispatcher
	Scheduler      Scheduler
	// OnStage is called from the worker goroutine on every stage change.
	OnStage func(Stage)
}

var ErrAlreadyStarted = errors.New("pipeline already started")

// Orchestrator runs one capture -> extract -> translate -> publish pass at a
// time on a worker goroutine and re-arms itself after every publish.
type Orchestrator struct {
	sel  Selector
	acq  Acquirer
	ext  Extractor
	tr   Translator
	pub  Publisher
	opts Options
	pool *worker.Pool

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	stage     Stage
	busy      bool
	arms      int
	runs      int
	autoRearm bool
	paused    bool
	target    string
	timer     Timer
	timerSeq  uint64
}

func New(sel Selector, acq Acquirer, ext Extractor, tr Translator, pub Publisher, opts Options) *Orchestrator {
	if opts.Dispatch == nil {
		opts.Dispatch = direct
	}
	if opts.Scheduler == nil {
		opts.Scheduler = timeScheduler{}
	}
	if opts.RearmDelay <= 0 {
		opts.RearmDelay = time.Second
	}
	return &Orchestrator{
		sel:       sel,
		acq:       acq,
		ext:       ext,
		tr:        tr,
		pub:       pub,
		opts:      opts,
		pool:      worker.New(1),
		autoRearm: opts.AutoRearm,
		target:    opts.TargetLanguage,
	}
}

// Start binds the orchestrator to ctx and leaves it Armed. The first run
// comes from Trigger.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.ctx != nil {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.stage = Armed
	o.mu.Unlock()

	log.Printf("pipeline: armed (auto re-arm=%v, delay=%v)", o.opts.AutoRearm, o.opts.RearmDelay)
	return nil
}

// Trigger starts a run now, as the control window's action button does. A
// pending re-arm is consumed. It resumes auto re-arm paused by a cancelled
// selection. Returns false when a run is already in flight or the
// orchestrator is not running.
func (o *Orchestrator) Trigger() bool {
	o.mu.Lock()
	if o.ctx == nil || o.ctx.Err() != nil {
		o.mu.Unlock()
		return false
	}
	if o.busy {
		o.mu.Unlock()
		log.Printf("pipeline: busy, trigger ignored")
		return false
	}
	o.paused = false
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	} else {
		o.arms++
	}
	o.mu.Unlock()
	return o.submit()
}

// Cancel stops the re-arm loop and signals the in-flight run to stop at the
// next stage boundary.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.setStage(Stopped)
}

// Wait blocks until the in-flight run has returned. Call after Cancel.
func (o *Orchestrator) Wait() {
	o.pool.Close()
}

func (o *Orchestrator) SetAutoRearm(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.autoRearm = enabled
	if !enabled && o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *Orchestrator) SetTargetLanguage(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.target = code
}

func (o *Orchestrator) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

// Arms is the number of arm cycles so far: one per Trigger that starts a
// run plus one per scheduled re-arm.
func (o *Orchestrator) Arms() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.arms
}

// Runs is the number of completed runs.
func (o *Orchestrator) Runs() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runs
}

func (o *Orchestrator) submit() bool {
	o.mu.Lock()
	if o.busy || o.ctx.Err() != nil {
		o.mu.Unlock()
		return false
	}
	o.busy = true
	ctx := o.ctx
	o.mu.Unlock()

	runID := uuid.NewString()[:8]
	if !o.pool.Submit(ctx, "run "+runID, func(ctx context.Context) { o.run(ctx, runID) }) {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
		log.Printf("pipeline: run %s dropped", runID)
		return false
	}
	return true
}

// rearm is the callback of re-arm timer seq. A callback whose timer was
// already consumed or replaced does nothing.
func (o *Orchestrator) rearm(seq uint64) {
	o.mu.Lock()
	if o.timer == nil || o.timerSeq != seq {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	o.mu.Unlock()
	o.submit()
}

func (o *Orchestrator) run(ctx context.Context, runID string) {
	published := o.runOnce(ctx, runID)

	o.mu.Lock()
	armed := ctx.Err() == nil && o.stage != Stopped
	if armed {
		o.stage = Armed
	}
	o.busy = false
	if published {
		o.runs++
	}
	rearm := published && armed && o.autoRearm && !o.paused
	if rearm {
		o.arms++
		o.timerSeq++
		seq := o.timerSeq
		o.timer = o.opts.Scheduler.AfterFunc(o.opts.RearmDelay, func() { o.rearm(seq) })
	}
	onStage := o.opts.OnStage
	o.mu.Unlock()

	if armed && onStage != nil {
		onStage(Armed)
	}
	if rearm {
		log.Printf("pipeline: run %s done, re-arming in %v", runID, o.opts.RearmDelay)
	}
}

// runOnce performs one pass and reports whether a result was published.
func (o *Orchestrator) runOnce(ctx context.Context, runID string) bool {
	o.setStage(Capturing)
	box, cancelled, err := o.sel.Select(ctx)
	if ctx.Err() != nil {
		return false
	}
	if cancelled {
		o.mu.Lock()
		o.paused = true
		o.mu.Unlock()
		log.Printf("pipeline: run %s selection cancelled, auto re-arm paused", runID)
		return false
	}
	if err != nil {
		log.Printf("pipeline: run %s selection failed: %v", runID, err)
		return o.publish(ctx, fmt.Sprintf("Selection failed: %v", err), "")
	}
	log.Printf("pipeline: run %s selected %v", runID, box)

	img, err := o.acq.Capture(box)
	if errors.Is(err, screenshot.ErrEmptyRegion) {
		log.Printf("pipeline: run %s empty region, nothing to extract", runID)
		return o.publish(ctx, "", "")
	}
	if err != nil {
		log.Printf("pipeline: run %s capture failed: %v", runID, err)
		return o.publish(ctx, fmt.Sprintf("Capture failed: %v", err), "")
	}
	if ctx.Err() != nil {
		return false
	}

	o.setStage(Extracting)
	res, err := o.ext.Extract(ctx, img, o.opts.Languages)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		log.Printf("pipeline: run %s extraction failed: %v", runID, err)
		return o.publish(ctx, fmt.Sprintf("Text extraction failed: %v", err), "")
	}
	text := res.Text()
	log.Printf("pipeline: run %s extracted %d line(s)", runID, len(res.Spans))

	o.setStage(Translating)
	o.mu.Lock()
	target := o.target
	o.mu.Unlock()
	translated, err := o.tr.Translate(ctx, text, target)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		log.Printf("pipeline: run %s translation failed: %v", runID, err)
		translated = fmt.Sprintf("Translation failed: %v", err)
	}

	return o.publish(ctx, text, translated)
}

func (o *Orchestrator) publish(ctx context.Context, extracted, translated string) bool {
	if ctx.Err() != nil {
		return false
	}
	o.setStage(Publishing)
	o.opts.Dispatch(func() {
		o.pub.Publish(extracted, translated)
	})
	return true
}

func (o *Orchestrator) setStage(s Stage) {
	o.mu.Lock()
	if o.stage == Stopped {
		o.mu.Unlock()
		return
	}
	o.stage = s
	onStage := o.opts.OnStage
	o.mu.Unlock()
	if onStage != nil {
		onStage(s)
	}
}
