/*
Package rangectl decides which items of a collection need eagerly computed
layout and content, and which may stay deferred.

Items are partitioned into three disjoint range sets: Display (visible),
Preload (within a lookahead distance of the visible window) and Idle
(everything else, eligible for eviction of realized content). The lookahead
is expressed in screenfuls along the scrollable axis.

When the visible window approaches the trailing edge of known data, a
BatchFetcher hands out a single-use BatchContext to the host. While a
context is fetching, no further fetches are started.

Per-item size constraints come from an Inspector. Inspectors announce
optional capabilities explicitly; missing capabilities degrade to defaults.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package rangectl

import (
	"fmt"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/schuko/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tracer traces with key 'asynclist.rangectl'.
func tracer() tracing.Trace {
	return tracing.Select("asynclist.rangectl")
}

// ErrBatchAlreadyCompleted is returned when a batch context is completed a
// second time.
var ErrBatchAlreadyCompleted = fmt.Errorf("%w: batch fetch already completed", contract.ErrProtocolViolation)

var (
	rangeEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asynclist_range_evaluations_total",
		Help: "Number of range set computations",
	})

	batchFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asynclist_batch_fetches_total",
		Help: "Number of batch fetches by outcome",
	}, []string{"outcome"})
)
