/*
pool.go - Bounded parser/validator worker pool

PURPOSE:
  Runs ParseAndValidate off the request-handling goroutines so a large
  upload cannot stall concurrent request handling. One Submit = one unit
  of work (the whole buffer); the caller blocks until a worker returns
  the complete result. No partial results cross the boundary and no
  mutable state is shared between calls.

SIZING:
  The pool keeps Min resident workers alive and grows on demand up to
  Max. Workers above Min exit after IdleTimeout without work. When all
  workers are busy and the pool is at Max, Submit queues on the task
  channel rather than spawning further workers.

LIFECYCLE:
  Long-lived, explicitly constructed and injected; Start before use,
  Stop on shutdown. Submit after Stop returns ErrPoolStopped.

SEE ALSO:
  - parser.go: The work each unit performs
*/
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pool size defaults, used when PoolOptions leaves a field zero.
const (
	DefaultMinWorkers  = 2
	DefaultMaxWorkers  = 4
	DefaultIdleTimeout = 30 * time.Second
)

// PoolOptions configures a Pool. Zero values fall back to the defaults
// above.
type PoolOptions struct {
	Min         int
	Max         int
	IdleTimeout time.Duration
	Logger      zerolog.Logger
}

// Pool is a bounded pool of parse/validate workers.
type Pool struct {
	min  int
	max  int
	idle time.Duration
	log  zerolog.Logger

	mu      sync.Mutex
	running bool
	workers int

	tasks chan task
	quit  chan struct{}
	wg    sync.WaitGroup
}

type task struct {
	raw []byte
	out chan taskResult
}

type taskResult struct {
	res *Result
	err error
}

// NewPool creates a pool. Call Start before submitting work.
func NewPool(opts PoolOptions) *Pool {
	if opts.Min <= 0 {
		opts.Min = DefaultMinWorkers
	}
	if opts.Max < opts.Min {
		opts.Max = opts.Min
		if DefaultMaxWorkers > opts.Min {
			opts.Max = DefaultMaxWorkers
		}
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	return &Pool{
		min:  opts.Min,
		max:  opts.Max,
		idle: opts.IdleTimeout,
		log:  opts.Logger,
	}
}

// Start spawns the resident workers. Calling Start on a running pool is
// a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.tasks = make(chan task)
	p.quit = make(chan struct{})

	for i := 0; i < p.min; i++ {
		p.workers++
		p.wg.Add(1)
		go p.worker(false)
	}

	p.log.Info().Int("min", p.min).Int("max", p.max).Dur("idle", p.idle).
		Msg("parser pool started")
}

// Stop shuts the pool down and waits for in-flight work to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.quit)
	p.wg.Wait()

	p.log.Info().Msg("parser pool stopped")
}

// Submit hands one buffer to the pool and blocks until the parsed,
// validated result is available, the context is cancelled, or the pool
// stops.
func (p *Pool) Submit(ctx context.Context, raw []byte) (*Result, error) {
	// Snapshot the channels under the lock: Start replaces them on
	// restart, and a Submit racing a Stop+Start must not mix generations.
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil, ErrPoolStopped
	}
	tasks, quit := p.tasks, p.quit
	p.mu.Unlock()

	t := task{raw: raw, out: make(chan taskResult, 1)}

	// Fast path: an idle worker picks the task up immediately.
	select {
	case tasks <- t:
	default:
		p.grow()
		select {
		case tasks <- t:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-quit:
			return nil, ErrPoolStopped
		}
	}

	// The task channel is unbuffered, so a completed send means a worker
	// holds the task and will deliver a result even if the pool stops
	// underneath us.
	select {
	case r := <-t.out:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// grow spawns one extra worker if the pool is below Max.
func (p *Pool) grow() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running || p.workers >= p.max {
		return
	}
	p.workers++
	p.wg.Add(1)
	go p.worker(true)
	p.log.Debug().Int("workers", p.workers).Msg("parser pool grew")
}

// worker processes tasks until the pool stops. Transient workers (those
// above Min) also exit after the idle timeout.
func (p *Pool) worker(transient bool) {
	defer p.wg.Done()

	idle := time.NewTimer(p.idle)
	defer idle.Stop()

	for {
		select {
		case t := <-p.tasks:
			res, err := ParseAndValidate(t.raw)
			t.out <- taskResult{res: res, err: err}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.idle)

		case <-idle.C:
			if transient {
				p.mu.Lock()
				p.workers--
				p.mu.Unlock()
				p.log.Debug().Msg("idle parser worker reclaimed")
				return
			}
			idle.Reset(p.idle)

		case <-p.quit:
			p.mu.Lock()
			p.workers--
			p.mu.Unlock()
			return
		}
	}
}

// WorkerCount reports the current number of live workers (for tests and
// observability).
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}
