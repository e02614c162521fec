/*
Package section holds the per-section item identities of a collection.

Item identities are kept in two generations: an editing snapshot, which
reflects the most recent edit transaction, and a committed snapshot, which
reflects what is currently visible. Snapshots are immutable; a transaction
derives new snapshots from the editing one, and a commit swaps the
committed snapshot atomically. Closed transactions wait in a FIFO and are
committed strictly in the order they have been staged.

Identities are stable: an ItemID never changes its meaning and is never
reused. Index paths are derived from a snapshot and are only valid for
that snapshot. Resolving the index path of an item which is not part of the
committed snapshot yields Nothing; this is not an error.

Section identities (SectionID) are stable across moves of a section and are
the only handle to a section which survives a move.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package section

import (
	"fmt"

	"github.com/npillmayer/asynclist/contract"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'asynclist.section'.
func tracer() tracing.Trace {
	return tracing.Select("asynclist.section")
}

var (
	// ErrTransactionAlreadyOpen is returned by Begin if another transaction is active.
	ErrTransactionAlreadyOpen = fmt.Errorf("%w: edit transaction already open", contract.ErrProtocolViolation)
	// ErrNoOpenTransaction is returned for staging calls on a closed transaction.
	ErrNoOpenTransaction = fmt.Errorf("%w: no open edit transaction", contract.ErrProtocolViolation)
	// ErrIndexOutOfRange is returned for section or item indices not valid
	// for the editing snapshot.
	ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", contract.ErrProtocolViolation)
)

// ItemID identifies an item independently of its index path.
type ItemID uint64

// NoItem is the zero ItemID, never assigned to an item.
const NoItem ItemID = 0

// SectionID identifies a section independently of its position.
type SectionID int64

// IndexPath locates an item within a snapshot.
type IndexPath struct {
	Section, Item int
}

// Less orders index paths by section, then by item.
func (p IndexPath) Less(q IndexPath) bool {
	if p.Section != q.Section {
		return p.Section < q.Section
	}
	return p.Item < q.Item
}

func (p IndexPath) String() string {
	return fmt.Sprintf("(%d,%d)", p.Section, p.Item)
}

// SupplementaryPath locates a supplementary element, e.g. a header, within
// a snapshot.
type SupplementaryPath struct {
	Kind string
	IndexPath
}

func (p SupplementaryPath) String() string {
	return fmt.Sprintf("%s(%d,%d)", p.Kind, p.Section, p.Item)
}

// SectionInfo describes a section to be inserted.
type SectionInfo struct {
	DebugName string
}
