package rangectl

import (
	"sync"
	"sync/atomic"
	"time"
)

// BatchState is the state of a BatchFetcher.
type BatchState int32

const (
	BatchIdle BatchState = iota
	BatchFetching
)

func (s BatchState) String() string {
	if s == BatchFetching {
		return "fetching"
	}
	return "idle"
}

// Diagnostics reports the history of a BatchFetcher. A fetcher which stays
// in state BatchFetching for a long time hints at a host which never
// completed its batch context.
type Diagnostics struct {
	State     BatchState
	Since     time.Time // time of the last state change
	Started   int
	Succeeded int
	Failed    int
}

// BatchFetcher guards the trailing edge of a collection against re-entrant
// fetches. It is a state machine Idle ⇄ Fetching; the transition back to
// Idle can only be made through the BatchContext handed out by Begin.
type BatchFetcher struct {
	mx      sync.Mutex
	current *BatchContext
	diag    Diagnostics
}

// NewBatchFetcher creates a fetcher in state BatchIdle.
func NewBatchFetcher() *BatchFetcher {
	return &BatchFetcher{diag: Diagnostics{Since: time.Now()}}
}

// Begin starts a fetch. If a fetch is in progress, no context is created and
// false is returned.
func (f *BatchFetcher) Begin() (*BatchContext, bool) {
	f.mx.Lock()
	defer f.mx.Unlock()
	if f.current != nil {
		batchFetches.WithLabelValues("suppressed").Inc()
		return nil, false
	}
	f.current = &BatchContext{fetcher: f}
	f.diag.State = BatchFetching
	f.diag.Since = time.Now()
	f.diag.Started++
	batchFetches.WithLabelValues("started").Inc()
	tracer().Debugf("batch fetch #%d started", f.diag.Started)
	return f.current, true
}

// State returns the current state.
func (f *BatchFetcher) State() BatchState {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.diag.State
}

// Diagnostics returns a copy of the fetcher's diagnostics.
func (f *BatchFetcher) Diagnostics() Diagnostics {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.diag
}

func (f *BatchFetcher) complete(c *BatchContext, success bool) {
	f.mx.Lock()
	defer f.mx.Unlock()
	if f.current != c {
		return
	}
	f.current = nil
	f.diag.State = BatchIdle
	f.diag.Since = time.Now()
	if success {
		f.diag.Succeeded++
		batchFetches.WithLabelValues("succeeded").Inc()
	} else {
		f.diag.Failed++
		batchFetches.WithLabelValues("failed").Inc()
	}
}

// BatchContext is a single-use completion token for a batch fetch. It may be
// completed from any goroutine.
type BatchContext struct {
	fetcher   *BatchFetcher
	completed atomic.Bool
}

// Complete signals the end of the fetch. It must be called exactly once;
// further calls return ErrBatchAlreadyCompleted.
func (c *BatchContext) Complete(success bool) error {
	if !c.completed.CompareAndSwap(false, true) {
		return ErrBatchAlreadyCompleted
	}
	c.fetcher.complete(c, success)
	tracer().Debugf("batch fetch completed, success=%v", success)
	return nil
}

// IsFetching is true until Complete has been called.
func (c *BatchContext) IsFetching() bool {
	return !c.completed.Load()
}
