package worker

import (
	"context"
	"log"
	"runtime"
	"sync"
)

// Job is one unit of work. It runs on a worker goroutine and must honor ctx.
type Job func(ctx context.Context)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

type job struct {
	ctx  context.Context
	name string
	run  Job
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				if err := j.ctx.Err(); err != nil {
					log.Printf("Worker: skipping %s: %v", j.name, err)
					continue
				}
				log.Printf("Worker: starting %s", j.name)
				j.run(j.ctx)
				log.Printf("Worker: %s returned", j.name)
			}
		}()
	}
}

// Submit enqueues a job if the single-slot queue is free. Returns false if
// dropped or if the pool is closed.
func (p *Pool) Submit(ctx context.Context, name string, run Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job{ctx: ctx, name: name, run: run}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
