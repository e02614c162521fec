/*
Package asynclist computes the layout and content of the items of a large,
changing collection off the coordination context, so that a scrolling list
or grid never blocks on measurement.

A Controller owns the item identities of a collection. Hosts describe
changes as batch updates; each batch becomes a generation which is measured
by a pool of workers and committed in staging order once the layouts of its
new items are resolved. Read paths (index path resolution, current layouts)
only ever see committed generations.

Which items are measured eagerly is decided by range sets computed from the
visible window of the host (see package rangectl). Near the end of the known
data, the host is asked to fetch more.

	ctl := asynclist.New(dataSource, asynclist.DefaultOptions())
	ctl.Start(ctx)
	defer ctl.Close()
	ctl.ReloadData(ctx)

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package asynclist

import (
	"errors"
	"fmt"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/schuko/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tracer traces with key 'asynclist'.
func tracer() tracing.Trace {
	return tracing.Select("asynclist")
}

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("asynclist controller closed")

// ErrMissingElement flags a data source which did not deliver an element
// for an index path it announced.
var ErrMissingElement = fmt.Errorf("%w: data source returned no element", contract.ErrHostContractViolation)

var (
	staleResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asynclist_stale_results_discarded_total",
		Help: "Number of computed results discarded because their item was gone or obsolete",
	})

	commits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "asynclist_commits_total",
		Help: "Number of committed generations",
	})
)
