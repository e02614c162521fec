package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/asynclist/result"
	"golang.org/x/sync/errgroup"
)

// Priority of a job.
type Priority int32

const (
	Preload Priority = iota
	Display
)

func (p Priority) String() string {
	if p == Display {
		return "display"
	}
	return "preload"
}

// Func is the computation of a job. It should return early if ctx is done.
type Func func(ctx context.Context) (any, error)

// Config configures a pool.
type Config[K comparable] struct {
	Workers int           // number of worker goroutines; 0 means DefaultWorkerCount()
	Notify  func(*Job[K]) // called on the worker goroutine after a job finished
}

const (
	stateQueued int32 = iota
	stateRunning
	stateDone
)

// Job is a unit of work for a key.
type Job[K comparable] struct {
	key    K
	fn     Func
	prio   atomic.Int32
	state  atomic.Int32
	stale  atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	res    result.Result[any]
	next   *Job[K] // queued when this job completes; guarded by the pool
	parked bool    // waits for a cancelled predecessor; guarded by the pool
}

// Key returns the key of the job.
func (j *Job[K]) Key() K {
	return j.key
}

// Priority returns the current priority of the job.
func (j *Job[K]) Priority() Priority {
	return Priority(j.prio.Load())
}

// Done is closed as soon as the job has a result.
func (j *Job[K]) Done() <-chan struct{} {
	return j.done
}

// IsStale is true if the job has been cancelled.
func (j *Job[K]) IsStale() bool {
	return j.stale.Load()
}

// Result returns the result of a finished job. For unfinished jobs false is
// returned.
func (j *Job[K]) Result() (result.Result[any], bool) {
	select {
	case <-j.done:
		return j.res, true
	default:
		return nil, false
	}
}

// Wait blocks until the job is finished or ctx is done.
func (j *Job[K]) Wait(ctx context.Context) result.Result[any] {
	select {
	case <-j.done:
		return j.res
	case <-ctx.Done():
		return result.Err[any](ctx.Err())
	}
}

// Cancel marks the job stale and cancels its context. A queued job will not
// be started any more.
func (j *Job[K]) Cancel() {
	j.stale.Store(true)
	j.cancel()
}

// finish sets the result. It must be called exactly once per job.
func (j *Job[K]) finish(r result.Result[any]) {
	j.res = r
	j.state.Store(stateDone)
	close(j.done)
}

// Pool is a pool of workers with two priority queues.
type Pool[K comparable] struct {
	mx       sync.Mutex
	wakeup   *sync.Cond
	inflight map[K]*Job[K]
	display  []*Job[K]
	preload  []*Job[K]
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc
	group    *errgroup.Group
	notify   func(*Job[K])
}

// NewPool creates a pool and starts its workers.
func NewPool[K comparable](conf Config[K]) *Pool[K] {
	n := conf.Workers
	if n <= 0 {
		n = DefaultWorkerCount()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool[K]{
		inflight: make(map[K]*Job[K]),
		ctx:      ctx,
		cancel:   cancel,
		notify:   conf.Notify,
	}
	p.wakeup = sync.NewCond(&p.mx)
	p.group = &errgroup.Group{}
	for i := 0; i < n; i++ {
		wno := i + 1
		p.group.Go(func() error {
			p.work(wno)
			return nil
		})
	}
	tracer().Debugf("worker pool started with %d workers", n)
	return p
}

// Submit submits a computation for key. If a live job for key is in flight,
// no new job is created and the existing one is returned together with
// false. A Display submission for a queued Preload job upgrades that job.
//
// A cancelled job in flight is never returned. The new job replaces it; if
// the cancelled job is still running, the new one is queued only after it
// completed.
func (p *Pool[K]) Submit(key K, prio Priority, fn Func) (*Job[K], bool) {
	p.mx.Lock()
	defer p.mx.Unlock()
	prev, ok := p.inflight[key]
	if ok && !prev.IsStale() {
		jobsDeduplicated.Inc()
		if prio == Display {
			p.upgrade(prev)
		}
		return prev, false
	}
	ctx, cancel := context.WithCancel(p.ctx)
	job := &Job[K]{key: key, fn: fn, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	job.prio.Store(int32(prio))
	if p.closed {
		job.stale.Store(true)
		job.finish(result.Err[any](ErrPoolClosed))
		return job, true
	}
	p.inflight[key] = job
	jobsSubmitted.WithLabelValues(prio.String()).Inc()
	jobsInFlight.Inc()
	if ok && (prev.parked || prev.state.Load() == stateRunning) {
		prev.next, job.parked = job, true
		tracer().P("key", key).Debugf("job waits for cancelled predecessor")
		return job, true
	}
	p.enqueue(job)
	return job, true
}

// enqueue appends a job to the queue of its priority. p.mx must be held.
func (p *Pool[K]) enqueue(job *Job[K]) {
	if job.Priority() == Display {
		p.display = append(p.display, job)
	} else {
		p.preload = append(p.preload, job)
	}
	p.wakeup.Signal()
}

// Upgrade raises a queued Preload job for key to Display priority. It
// returns false if there is no job in flight for key.
func (p *Pool[K]) Upgrade(key K) bool {
	p.mx.Lock()
	defer p.mx.Unlock()
	job, ok := p.inflight[key]
	if ok {
		p.upgrade(job)
	}
	return ok
}

func (p *Pool[K]) upgrade(job *Job[K]) {
	if !job.prio.CompareAndSwap(int32(Preload), int32(Display)) {
		return
	}
	jobsUpgraded.Inc()
	tracer().P("key", job.key).Debugf("upgraded job to display priority")
	if job.state.Load() == stateQueued && !job.parked {
		p.display = append(p.display, job)
		p.wakeup.Signal()
	}
}

// InFlight returns the job for key, if one is queued or running.
func (p *Pool[K]) InFlight(key K) (*Job[K], bool) {
	p.mx.Lock()
	defer p.mx.Unlock()
	job, ok := p.inflight[key]
	return job, ok
}

// Cancel cancels the job in flight for key, if any.
func (p *Pool[K]) Cancel(key K) {
	p.mx.Lock()
	job, ok := p.inflight[key]
	p.mx.Unlock()
	if ok {
		job.Cancel()
	}
}

// Close stops the workers after their current jobs. Queued jobs are
// finished as stale.
func (p *Pool[K]) Close() error {
	p.mx.Lock()
	if p.closed {
		p.mx.Unlock()
		return nil
	}
	p.closed = true
	p.cancel()
	p.wakeup.Broadcast()
	p.mx.Unlock()
	err := p.group.Wait()
	p.mx.Lock()
	queued := append(p.display, p.preload...)
	p.display, p.preload = nil, nil
	p.mx.Unlock()
	for _, job := range queued {
		if job.state.CompareAndSwap(stateQueued, stateRunning) {
			job.stale.Store(true)
			p.complete(job, result.Err[any](ErrPoolClosed))
		}
	}
	tracer().Debugf("worker pool closed")
	return err
}

// next takes the next runnable job, preferring display jobs. It blocks
// until a job is available or the pool is closed.
func (p *Pool[K]) next() *Job[K] {
	p.mx.Lock()
	defer p.mx.Unlock()
	for {
		if p.closed {
			return nil
		}
		for len(p.display) > 0 || len(p.preload) > 0 {
			var job *Job[K]
			if len(p.display) > 0 {
				job, p.display = p.display[0], p.display[1:]
			} else {
				job, p.preload = p.preload[0], p.preload[1:]
			}
			if job.state.CompareAndSwap(stateQueued, stateRunning) { // skip duplicates of upgraded jobs
				return job
			}
		}
		p.wakeup.Wait()
	}
}

func (p *Pool[K]) work(wno int) {
	for {
		job := p.next()
		if job == nil {
			return
		}
		if job.IsStale() {
			p.complete(job, result.Err[any](ErrStale))
			continue
		}
		p.complete(job, run(job))
		tracer().P("key", job.key).Debugf("worker %d finished job", wno)
	}
}

func run[K comparable](job *Job[K]) (r result.Result[any]) {
	defer func() {
		if x := recover(); x != nil {
			r = result.Err[any](fmt.Errorf("%w: panic in worker: %v", contract.ErrMeasurementFailed, x))
		}
	}()
	v, err := job.fn(job.ctx)
	if err == nil && job.IsStale() {
		err = ErrStale
	}
	return result.From(v, err)
}

// complete finishes a job, removes it from the in-flight set and notifies
// the pool's client.
func (p *Pool[K]) complete(job *Job[K], r result.Result[any]) {
	p.mx.Lock()
	if p.inflight[job.key] == job {
		delete(p.inflight, job.key)
	}
	succ := job.next
	job.next = nil
	closed := p.closed
	if succ != nil {
		succ.parked = false
		if !closed {
			p.enqueue(succ)
		}
	}
	p.mx.Unlock()
	job.finish(r)
	job.cancel()
	jobsInFlight.Dec()
	switch {
	case job.IsStale():
		jobsFinished.WithLabelValues("stale").Inc()
	case r.IsErr():
		jobsFinished.WithLabelValues("failed").Inc()
	default:
		jobsFinished.WithLabelValues("ok").Inc()
	}
	if p.notify != nil {
		p.notify(job)
	}
	if succ != nil && closed && succ.state.CompareAndSwap(stateQueued, stateRunning) {
		succ.stale.Store(true)
		p.complete(succ, result.Err[any](ErrPoolClosed))
	}
}
