/*
Package tree implements an all-purpose tree type with concurrent operations.

Trees are made of Nodes carrying a payload. Operations on a tree are
formulated with a Walker, which chains filter stages into a pipeline.
Every stage is performed by a small set of worker goroutines, so that
independent branches of a tree are processed in parallel:

    w := tree.NewWalker(root)
    future := w.TopDown(action).Promise()
    nodes, err := future()

Clients must call Promise() as the final link of a chain and must call the
returned future, even if they do not need the result set. Otherwise
goroutines of the pipeline will leak.

Results are sorted in depth-first pre-order if the ranks of the nodes have
been calculated beforehand (see CalcRank); otherwise the order of results is
undefined.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package tree

import (
	"errors"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'asynclist.tree'.
func tracer() tracing.Trace {
	return tracing.Select("asynclist.tree")
}

// ErrInvalidFilter is reported if a pipeline filter step is defunct.
var ErrInvalidFilter = errors.New("filter stage is invalid")

// ErrEmptyTree is reported if a Walker is called with an empty tree. Refer to
// the documentation of NewWalker() for details about this scenario.
var ErrEmptyTree = errors.New("cannot walk empty tree")

// ErrNoMoreFiltersAccepted is raised if a client already called Promise(), but tried to
// re-use a walker with another filter.
var ErrNoMoreFiltersAccepted = errors.New("in promise mode; will not accept new filters; use a new walker")
