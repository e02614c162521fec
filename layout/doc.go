/*
Package layout implements an immutable tree of sized and positioned layout
nodes.

A layout node is the result of measuring a described object against a size
range. Measuring happens bottom-up: children are sized first, then placed
by their parent, and finally attached to the parent's node. After
construction a node is immutable, apart from an advisory dirty flag and its
position, which may be set exactly once by the parent.

Nodes refer to the described object by a non-owning key (OwnerKey) only. The
tree owns geometry, never the lifetime of the objects described.

Dimensions are given in dimen.DU. An unresolved or infinite extent is
denoted by Infinity.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/tyse/core/dimen"
)

// tracer traces with key 'asynclist.layout'.
func tracer() tracing.Trace {
	return tracing.Select("asynclist.layout")
}

// Infinity denotes an unresolved or unbounded extent.
const Infinity = dimen.DU(math.MaxInt32)

// ErrInvalidChildPosition is returned if a node without a position is attached
// as a child to another node.
var ErrInvalidChildPosition = fmt.Errorf("%w: child layout has no position", contract.ErrProtocolViolation)

// ErrPositionAlreadySet is returned if a node's position is set more than once.
var ErrPositionAlreadySet = fmt.Errorf("%w: position of layout node already set", contract.ErrProtocolViolation)

// ErrInvalidSizeRange is returned for size ranges with min > max or negative min.
var ErrInvalidSizeRange = errors.New("invalid size range")

func assertThat(that bool, msg string, msgargs ...interface{}) {
	if !that {
		msg = fmt.Sprintf("layout: "+msg, msgargs...)
		panic(msg)
	}
}
