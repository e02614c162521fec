package asynclist

import (
	"context"

	"github.com/npillmayer/asynclist/layout"
	"github.com/npillmayer/asynclist/maybe"
	"github.com/npillmayer/asynclist/measure"
	"github.com/npillmayer/asynclist/rangectl"
	"github.com/npillmayer/asynclist/section"
)

// DataSource is implemented by hosts. Element queries are made on the
// coordination context while a batch update is staged, after the host has
// changed its backing store. They have to reflect the state after the
// update. ContentFor is called on worker goroutines.
//
// Embed BaseDataSource to get defaults for supplementary elements and
// content.
type DataSource interface {
	NumberOfSections() int
	NumberOfItems(sect int) int
	ElementFor(at section.IndexPath) measure.Element
	SupplementaryElementFor(kind string, at section.IndexPath) measure.Element
	ContentFor(ctx context.Context, id section.ItemID, node *layout.Node) (any, error)
}

// BaseDataSource has no supplementary elements and no content.
type BaseDataSource struct{}

func (BaseDataSource) SupplementaryElementFor(string, section.IndexPath) measure.Element {
	return nil
}

func (BaseDataSource) ContentFor(context.Context, section.ItemID, *layout.Node) (any, error) {
	return nil, nil
}

// Delegate receives notifications on the coordination context. Callbacks
// must not block on operations of the controller; reading is fine.
//
// Index paths handed to DidEndDisplay may no longer resolve, as the item may
// have been deleted.
type Delegate interface {
	WillDisplay(id section.ItemID, at section.IndexPath)
	DidEndDisplay(id section.ItemID, at maybe.Maybe[section.IndexPath])
	ShouldBatchFetch() bool
	WillBeginBatchFetch(bctx *rangectl.BatchContext)
	DidCommit(delta section.Delta)
}

// BaseDelegate ignores every notification and never vetoes a batch fetch.
// Note that an embedding delegate which does not override
// WillBeginBatchFetch leaves batch contexts uncompleted, which suppresses
// all further fetches.
type BaseDelegate struct{}

func (BaseDelegate) WillDisplay(section.ItemID, section.IndexPath)                {}
func (BaseDelegate) DidEndDisplay(section.ItemID, maybe.Maybe[section.IndexPath]) {}
func (BaseDelegate) ShouldBatchFetch() bool                                       { return true }
func (BaseDelegate) WillBeginBatchFetch(*rangectl.BatchContext)                   {}
func (BaseDelegate) DidCommit(section.Delta)                                      {}

// ItemState is the state of the layout of an item.
type ItemState int

const (
	ItemUnknown  ItemState = iota // not known to the controller
	ItemPending                   // layout is being computed
	ItemReady                     // layout available
	ItemFailed                    // measurement failed; the item is never displayed
	ItemDeferred                  // measurement postponed until the item comes into range
)

func (s ItemState) String() string {
	switch s {
	case ItemPending:
		return "pending"
	case ItemReady:
		return "ready"
	case ItemFailed:
		return "failed"
	case ItemDeferred:
		return "deferred"
	}
	return "unknown"
}
