/*
Package coord implements the coordination context: a single goroutine which
executes tasks one after the other in the order they were posted.

All mutation of shared collection state happens on the loop. Other goroutines
hand over work with Post (fire and forget) or Do (wait for the outcome).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'asynclist.coord'.
func tracer() tracing.Trace {
	return tracing.Select("asynclist.coord")
}

// ErrLoopStopped is returned for tasks which could not run because the loop
// has been stopped.
var ErrLoopStopped = errors.New("coordination loop stopped")

// ErrLoopRunning is returned if Run is called for a loop already running.
var ErrLoopRunning = errors.New("coordination loop already running")

// Task is a unit of work executed on the loop. ctx is marked as being on the
// loop, see OnLoop.
type Task func(ctx context.Context)

// Loop is a serial FIFO executor. The zero value is not usable, create loops
// with NewLoop.
type Loop struct {
	mx      sync.Mutex
	queue   []Task
	signal  chan struct{} // capacity 1, wakes up the loop
	stopCh  chan struct{}
	once    sync.Once
	running atomic.Bool
}

// NewLoop creates a loop. Tasks may be posted before Run is called; they
// execute as soon as the loop runs.
func NewLoop() *Loop {
	return &Loop{
		signal: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

type loopKey struct{}

// OnLoop is true if ctx has been handed out by loop l, i.e. the caller is
// executing as a task of l.
func (l *Loop) OnLoop(ctx context.Context) bool {
	return ctx != nil && ctx.Value(loopKey{}) == l
}

// Run executes tasks until ctx is done or Stop is called. Tasks still queued
// at that time are dropped.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	lctx := context.WithValue(ctx, loopKey{}, l)
	tracer().Debugf("coordination loop started")
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.stopCh:
			tracer().Debugf("coordination loop stopped")
			return nil
		case <-l.signal:
		}
		for task := l.pop(); task != nil; task = l.pop() {
			select {
			case <-l.stopCh:
				return nil
			default:
			}
			l.exec(lctx, task)
		}
	}
}

// Stop signals the loop to exit. Stop is idempotent.
func (l *Loop) Stop() {
	l.once.Do(func() {
		close(l.stopCh)
	})
}

// Done is closed after Stop.
func (l *Loop) Done() <-chan struct{} {
	return l.stopCh
}

// Post enqueues a task. It never blocks. Returns false if the loop has been
// stopped and the task will not run.
func (l *Loop) Post(task Task) bool {
	select {
	case <-l.stopCh:
		return false
	default:
	}
	l.mx.Lock()
	l.queue = append(l.queue, task)
	l.mx.Unlock()
	select {
	case l.signal <- struct{}{}:
	default: // already signalled
	}
	return true
}

// Do executes f on the loop and waits for it to return. If ctx marks the
// caller as running on l already, f is called directly.
func (l *Loop) Do(ctx context.Context, f func(ctx context.Context) error) error {
	if l.OnLoop(ctx) {
		return f(ctx)
	}
	errch := make(chan error, 1)
	posted := l.Post(func(lctx context.Context) {
		if err := ctx.Err(); err != nil {
			errch <- err
			return
		}
		errch <- f(lctx)
	})
	if !posted {
		return ErrLoopStopped
	}
	select {
	case err := <-errch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		select { // task may have finished concurrently with Stop
		case err := <-errch:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

func (l *Loop) pop() Task {
	l.mx.Lock()
	defer l.mx.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task
}

// exec runs a task. A panicking task must not take down the loop.
func (l *Loop) exec(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			tracer().Errorf("%v", fmt.Errorf("panic in coordination task: %v", r))
		}
	}()
	task(ctx)
}
