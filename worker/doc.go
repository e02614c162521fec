/*
Package worker implements a pool of goroutines computing results keyed by
item identity.

Jobs come in two priorities. Display jobs are always taken before Preload
jobs. There is at most one job per key in flight: submitting a key which is
already queued or running returns the existing job, and a Display
submission upgrades a queued Preload job instead of starting a second
computation.

Cancellation is cooperative. A cancelled job is marked stale; its result,
should it still be computed, must not be used.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package worker

import (
	"fmt"
	"runtime"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/schuko/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tracer traces with key 'asynclist.worker'.
func tracer() tracing.Trace {
	return tracing.Select("asynclist.worker")
}

// ErrStale is the error of jobs which have been cancelled or dropped.
var ErrStale = fmt.Errorf("%w: job cancelled", contract.ErrStaleComputation)

// ErrPoolClosed is returned for submissions to a closed pool.
var ErrPoolClosed = fmt.Errorf("%w: worker pool closed", contract.ErrStaleComputation)

// Minimum and maximum number of workers, if not configured explicitly.
const (
	minWorkerCount int = 3
	maxWorkerCount int = 10
)

// DefaultWorkerCount is the number of CPUs, clamped to [3…10].
func DefaultWorkerCount() int {
	n := runtime.NumCPU()
	if n > maxWorkerCount {
		n = maxWorkerCount
	} else if n < minWorkerCount {
		n = minWorkerCount
	}
	return n
}

var (
	jobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asynclist_worker_jobs_submitted_total",
		Help: "Number of jobs submitted to worker pools",
	}, []string{"priority"})

	jobsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asynclist_worker_jobs_deduplicated_total",
		Help: "Number of submissions answered by a job already in flight",
	})

	jobsUpgraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asynclist_worker_jobs_upgraded_total",
		Help: "Number of queued preload jobs upgraded to display priority",
	})

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asynclist_worker_jobs_finished_total",
		Help: "Number of finished jobs by outcome",
	}, []string{"outcome"})

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asynclist_worker_jobs_in_flight",
		Help: "Number of jobs queued or running",
	})
)
